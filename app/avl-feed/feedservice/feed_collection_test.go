package feedservice

import (
	"reflect"
	"testing"
	"time"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/iqskr/AVLSystem/business/data/avl"
	"github.com/iqskr/AVLSystem/business/data/feed"
	"github.com/matryer/is"
)

var testNow = time.Date(2020, 7, 1, 7, 0, 0, 0, time.UTC)

func makeTestVehiclePosition(deviceId string, now time.Time) *gtfsrt.FeedMessage {
	return feed.BuildVehiclePosition(feed.ResolvedContext{
		Fix:     avl.VehicleFix{DeviceId: deviceId, RouteId: "100", Latitude: 45.5, Longitude: -122.6},
		TripId:  "t1",
		RouteId: "100",
	}, now)
}

func entityIds(entities []*entityWrapper) []string {
	results := make([]string, 0, len(entities))
	for _, e := range entities {
		results = append(results, e.entity.GetId())
	}
	return results
}

func TestFeedCollection_addMessage(t *testing.T) {
	is := is.New(t)
	collection := makeFeedCollection()

	is.Equal(collection.addMessage(feed.VehiclePositionKind, makeTestVehiclePosition("2", testNow)), 1)
	is.Equal(collection.addMessage(feed.VehiclePositionKind, makeTestVehiclePosition("1", testNow)), 1)
	// newer replaces
	is.Equal(collection.addMessage(feed.VehiclePositionKind,
		makeTestVehiclePosition("1", testNow.Add(time.Minute))), 1)
	// older is discarded
	is.Equal(collection.addMessage(feed.VehiclePositionKind,
		makeTestVehiclePosition("1", testNow.Add(-time.Minute))), 0)

	entities := collection.entityList(feed.VehiclePositionKind)
	if got := entityIds(entities); !reflect.DeepEqual(got, []string{"1", "2"}) {
		t.Errorf("entityList() = %v", got)
	}
	is.Equal(entities[0].timestamp, uint64(testNow.Add(time.Minute).Unix()))
	is.Equal(len(collection.entityList(feed.TripUpdateKind)), 0)
}

func TestFeedCollection_expireEntities(t *testing.T) {
	tests := []struct {
		name            string
		at              time.Time
		expireAfter     int
		wantRemoved     int
		wantCurrentSize int
	}{
		{
			name:            "none expired",
			at:              testNow.Add(30 * time.Second),
			expireAfter:     60,
			wantRemoved:     0,
			wantCurrentSize: 2,
		},
		{
			name:            "older expired",
			at:              testNow.Add(90 * time.Second),
			expireAfter:     60,
			wantRemoved:     1,
			wantCurrentSize: 1,
		},
		{
			name:            "all expired",
			at:              testNow.Add(time.Hour),
			expireAfter:     60,
			wantRemoved:     2,
			wantCurrentSize: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			collection := makeFeedCollection()
			collection.addMessage(feed.VehiclePositionKind, makeTestVehiclePosition("1", testNow))
			collection.addMessage(feed.VehiclePositionKind, makeTestVehiclePosition("2", testNow.Add(time.Minute)))
			removed, currentSize := collection.expireEntities(tt.at, tt.expireAfter)
			if removed != tt.wantRemoved || currentSize != tt.wantCurrentSize {
				t.Errorf("expireEntities() = %d, %d want %d, %d", removed, currentSize, tt.wantRemoved,
					tt.wantCurrentSize)
			}
		})
	}
}
