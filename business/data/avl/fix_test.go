package avl

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/matryer/is"
)

func TestFixFromValues(t *testing.T) {
	receivedAt := time.Date(2020, 7, 1, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		name            string
		values          map[string]interface{}
		wantDevice      string
		wantRoute       string
		wantLat         float64
		wantLon         float64
		wantBearing     *float64
		wantErr         bool
		wantHasPosition bool
	}{
		{
			name: "json numbers",
			values: map[string]interface{}{"device_id": "1001", "route_id": 100.0, "latitude": 45.5,
				"longitude": -122.6, "bearing": 90.0},
			wantDevice: "1001", wantRoute: "100", wantLat: 45.5, wantLon: -122.6, wantBearing: floatPtr(90),
			wantHasPosition: true,
		},
		{
			name: "gps logger aliases as strings",
			values: map[string]interface{}{"device_id": "1001", "route_id": "100", "lat": "45.5",
				"lon": "-122.6", "dir": "180.5"},
			wantDevice: "1001", wantRoute: "100", wantLat: 45.5, wantLon: -122.6, wantBearing: floatPtr(180.5),
			wantHasPosition: true,
		},
		{
			name:       "missing position",
			values:     map[string]interface{}{"device_id": "1001"},
			wantDevice: "1001",
		},
		{
			name:       "position not numeric",
			values:     map[string]interface{}{"device_id": "1001", "latitude": "north", "longitude": -122.6},
			wantDevice: "1001", wantErr: true,
		},
		{
			name: "bearing not numeric",
			values: map[string]interface{}{"device_id": "1001", "latitude": 45.5, "longitude": -122.6,
				"bearing": "n/a"},
			wantDevice: "1001", wantLat: 45.5, wantLon: -122.6, wantHasPosition: true,
		},
		{
			name: "json.Number values",
			values: map[string]interface{}{"device_id": json.Number("42"), "latitude": json.Number("1.5"),
				"longitude": json.Number("2.5")},
			wantDevice: "42", wantLat: 1.5, wantLon: 2.5, wantHasPosition: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := is.New(t)
			got := FixFromValues(tt.values, receivedAt)
			is.Equal(got.DeviceId, tt.wantDevice)
			is.Equal(got.RouteId, tt.wantRoute)
			is.Equal(got.Latitude, tt.wantLat)
			is.Equal(got.Longitude, tt.wantLon)
			is.Equal(got.PositionErr != nil, tt.wantErr)
			is.Equal(got.HasPosition(), tt.wantHasPosition)
			is.Equal(got.Timestamp, receivedAt)
			if tt.wantBearing == nil {
				is.True(got.Bearing == nil)
			} else {
				is.True(got.Bearing != nil)
				is.Equal(*got.Bearing, *tt.wantBearing)
			}
		})
	}
}
