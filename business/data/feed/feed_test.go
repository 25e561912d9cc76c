package feed

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/iqskr/AVLSystem/business/data/avl"
	"github.com/iqskr/AVLSystem/business/data/gtfs"
	"github.com/matryer/is"
)

func getTestLocation(t *testing.T) *time.Location {
	location, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Fatalf("unable to load location: %v", err)
	}
	return location
}

func getTestContext(now time.Time) ResolvedContext {
	return ResolvedContext{
		Fix: avl.VehicleFix{
			DeviceId:  "1001",
			RouteId:   "100",
			Latitude:  45.5231,
			Longitude: -122.6765,
			Timestamp: now,
		},
		Label:       "Bus 1001",
		TripId:      "t1",
		RouteId:     "100",
		DirectionId: 1,
		ServiceDate: gtfs.Get12AmTime(now),
		Bearing:     87.5,
	}
}

func int64Ptr(value int64) *int64 {
	return &value
}

func int32Ptr(value int32) *int32 {
	return &value
}

func TestBuildVehiclePosition_roundTrip(t *testing.T) {
	is := is.New(t)
	now := time.Date(2020, 7, 1, 10, 15, 0, 0, getTestLocation(t))
	rc := getTestContext(now)

	data, err := Marshal(BuildVehiclePosition(rc, now))
	is.NoErr(err)
	message, err := Unmarshal(data)
	is.NoErr(err)

	is.Equal(message.GetHeader().GetGtfsRealtimeVersion(), "2.0")
	is.Equal(message.GetHeader().GetTimestamp(), uint64(now.Unix()))
	is.Equal(len(message.GetEntity()), 1)
	is.Equal(KindOf(message), VehiclePositionKind)

	entity := message.GetEntity()[0]
	is.Equal(entity.GetId(), "1001")
	vehicle := entity.GetVehicle()
	is.Equal(vehicle.GetVehicle().GetId(), "1001")
	is.Equal(vehicle.GetVehicle().GetLabel(), "Bus 1001")
	is.Equal(vehicle.GetTrip().GetTripId(), "t1")
	is.Equal(vehicle.GetTrip().GetRouteId(), "100")
	is.Equal(vehicle.GetTrip().GetDirectionId(), uint32(1))
	is.Equal(vehicle.GetTrip().GetStartDate(), "20200701")
	is.Equal(vehicle.GetPosition().GetLatitude(), float32(45.5231))
	is.Equal(vehicle.GetPosition().GetLongitude(), float32(-122.6765))
	is.Equal(vehicle.GetPosition().GetBearing(), float32(87.5))
	is.Equal(vehicle.GetTimestamp(), uint64(now.Unix()))
}

func TestBuildVehiclePosition_positionError(t *testing.T) {
	is := is.New(t)
	now := time.Date(2020, 7, 1, 10, 15, 0, 0, time.UTC)
	rc := getTestContext(now)
	rc.Fix.PositionErr = fmt.Errorf("latitude not numeric")

	position := BuildVehiclePosition(rc, now).GetEntity()[0].GetVehicle().GetPosition()
	is.Equal(position.GetLatitude(), float32(0))
	is.Equal(position.GetLongitude(), float32(0))
	is.Equal(position.GetBearing(), float32(0))
}

func TestBuildVehiclePosition_defaults(t *testing.T) {
	is := is.New(t)
	now := time.Date(2020, 7, 1, 10, 15, 0, 0, time.UTC)
	rc := ResolvedContext{Fix: avl.VehicleFix{DeviceId: "7"}, TripId: "t9", RouteId: "9"}

	vehicle := BuildVehiclePosition(rc, now).GetEntity()[0].GetVehicle()
	is.Equal(vehicle.GetVehicle().GetLabel(), "7")
	is.Equal(vehicle.GetTrip().GetStartDate(), "20200701")
}

func TestBuildTripUpdate(t *testing.T) {
	is := is.New(t)
	location := getTestLocation(t)
	now := time.Date(2020, 7, 1, 10, 15, 30, 0, location)
	rc := getTestContext(now)
	stops := []gtfs.TripStop{
		{StopSequence: 1, StopId: "A", StopName: "Alpha", ArrivalTime: "10:00:00", DepartureTime: "10:01:00"},
		{StopSequence: 2, StopId: "B", StopName: "Bravo", ArrivalTime: "bad", DepartureTime: ""},
		{StopSequence: 3, StopId: "C", StopName: "Charlie", ArrivalTime: "24:10:00", DepartureTime: "24:10:00"},
	}

	message := BuildTripUpdate(rc, stops, now)
	is.Equal(len(message.GetEntity()), 1)
	is.Equal(KindOf(message), TripUpdateKind)
	entity := message.GetEntity()[0]
	is.Equal(entity.GetId(), "trip_t1")

	update := entity.GetTripUpdate()
	is.Equal(update.GetTrip().GetTripId(), "t1")
	is.Equal(update.GetTrip().GetRouteId(), "100")
	is.Equal(update.GetTrip().GetDirectionId(), uint32(1))
	is.Equal(update.GetTrip().GetStartTime(), "10:15:30")
	is.Equal(update.GetTrip().GetStartDate(), "20200701")
	is.Equal(update.GetVehicle().GetId(), "1001")
	is.Equal(update.GetVehicle().GetLabel(), "Bus 1001")
	is.Equal(update.GetTimestamp(), uint64(now.Unix()))

	stopTimeUpdates := update.GetStopTimeUpdate()
	is.Equal(len(stopTimeUpdates), 3)
	for i, stopTimeUpdate := range stopTimeUpdates {
		is.Equal(stopTimeUpdate.GetStopSequence(), uint32(stops[i].StopSequence))
		is.Equal(stopTimeUpdate.GetStopId(), stops[i].StopId)
		is.Equal(stopTimeUpdate.GetScheduleRelationship(), gtfsrt.TripUpdate_StopTimeUpdate_SCHEDULED)
	}

	is.Equal(stopTimeUpdates[0].GetArrival().GetTime(), time.Date(2020, 7, 1, 10, 0, 0, 0, location).Unix())
	is.Equal(stopTimeUpdates[0].GetDeparture().GetTime(), time.Date(2020, 7, 1, 10, 1, 0, 0, location).Unix())
	// unparsable time falls back to now, empty time is omitted
	is.Equal(stopTimeUpdates[1].GetArrival().GetTime(), now.Unix())
	is.True(stopTimeUpdates[1].GetDeparture() == nil)
	// times past midnight land on the next day
	is.Equal(stopTimeUpdates[2].GetArrival().GetTime(), time.Date(2020, 7, 2, 0, 10, 0, 0, location).Unix())

	_, err := Marshal(message)
	is.NoErr(err)
}

func TestBuildTripUpdate_noStops(t *testing.T) {
	is := is.New(t)
	now := time.Date(2020, 7, 1, 10, 15, 30, 0, time.UTC)
	message := BuildTripUpdate(getTestContext(now), nil, now)
	is.Equal(len(message.GetEntity()[0].GetTripUpdate().GetStopTimeUpdate()), 0)
	_, err := Marshal(message)
	is.NoErr(err)
}

func TestBuildServiceAlert_defaults(t *testing.T) {
	is := is.New(t)
	now := time.Date(2020, 7, 1, 10, 15, 30, 0, time.UTC)

	message, err := BuildServiceAlert(AlertInput{}, now)
	is.NoErr(err)
	is.Equal(KindOf(message), ServiceAlertKind)
	entity := message.GetEntity()[0]
	is.True(strings.HasPrefix(entity.GetId(), "alert_"))
	is.True(len(entity.GetId()) > len("alert_"))

	alert := entity.GetAlert()
	is.Equal(alert.GetHeaderText().GetTranslation()[0].GetText(), "Service Alert")
	is.Equal(alert.GetDescriptionText().GetTranslation()[0].GetText(), "No details available")
	is.Equal(len(alert.GetActivePeriod()), 1)
	is.Equal(alert.GetActivePeriod()[0].GetStart(), uint64(now.Unix()))
	is.Equal(alert.GetActivePeriod()[0].GetEnd(), uint64(now.Unix()+3600))
	is.Equal(len(alert.GetInformedEntity()), 1)
	is.Equal(alert.GetInformedEntity()[0].GetRouteId(), "all_routes")
	is.Equal(alert.GetCause(), gtfsrt.Alert_UNKNOWN_CAUSE)
	is.Equal(alert.GetEffect(), gtfsrt.Alert_UNKNOWN_EFFECT)

	other, err := BuildServiceAlert(AlertInput{}, now)
	is.NoErr(err)
	is.True(other.GetEntity()[0].GetId() != entity.GetId())
}

func TestBuildServiceAlert(t *testing.T) {
	is := is.New(t)
	now := time.Date(2020, 7, 1, 10, 15, 30, 0, time.UTC)
	in := AlertInput{
		Id:               "detour",
		Header:           "Detour on 100",
		Description:      "Construction on Main St",
		DurationSeconds:  int64Ptr(600),
		AffectedEntities: []string{"100", "200"},
		Cause:            int32Ptr(int32(gtfsrt.Alert_CONSTRUCTION)),
		Effect:           int32Ptr(int32(gtfsrt.Alert_DETOUR)),
	}

	message, err := BuildServiceAlert(in, now)
	is.NoErr(err)
	entity := message.GetEntity()[0]
	is.Equal(entity.GetId(), "alert_detour")
	alert := entity.GetAlert()
	is.Equal(alert.GetHeaderText().GetTranslation()[0].GetText(), "Detour on 100")
	is.Equal(alert.GetDescriptionText().GetTranslation()[0].GetText(), "Construction on Main St")
	is.Equal(alert.GetActivePeriod()[0].GetEnd(), uint64(now.Unix()+600))
	is.Equal(alert.GetInformedEntity()[1].GetRouteId(), "200")
	is.Equal(alert.GetCause(), gtfsrt.Alert_CONSTRUCTION)
	is.Equal(alert.GetEffect(), gtfsrt.Alert_DETOUR)

	_, err = Marshal(message)
	is.NoErr(err)
}

func TestBuildServiceAlert_invalid(t *testing.T) {
	now := time.Date(2020, 7, 1, 10, 15, 30, 0, time.UTC)
	tests := []struct {
		name string
		in   AlertInput
	}{
		{name: "negative duration", in: AlertInput{DurationSeconds: int64Ptr(-1)}},
		{name: "unknown cause", in: AlertInput{Cause: int32Ptr(99)}},
		{name: "unknown effect", in: AlertInput{Effect: int32Ptr(0)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			message, err := BuildServiceAlert(tt.in, now)
			if !errors.Is(err, ErrInvalidAlert) {
				t.Errorf("BuildServiceAlert() error = %v, want ErrInvalidAlert", err)
			}
			if message != nil {
				t.Errorf("BuildServiceAlert() returned message with error")
			}
		})
	}
}

func TestParseAlertInputs(t *testing.T) {
	is := is.New(t)
	alerts, err := ParseAlertInputs([]byte(`
alerts:
  - id: a1
    header: Elevator out
    duration: 120
    affected_entities: ["100"]
    cause: 9
    effect: 7
  - description: no header
`))
	is.NoErr(err)
	is.Equal(len(alerts), 2)
	is.Equal(alerts[0].Id, "a1")
	is.Equal(*alerts[0].DurationSeconds, int64(120))
	is.Equal(*alerts[0].Cause, int32(9))
	is.Equal(*alerts[0].Effect, int32(7))
	is.Equal(alerts[0].AffectedEntities, []string{"100"})
	is.True(alerts[1].DurationSeconds == nil)
	is.Equal(alerts[1].Description, "no header")
	is.True(len(alerts[1].Id) > 0)

	_, err = ParseAlertInputs([]byte("alerts: {"))
	is.True(err != nil)
}

func TestParseAlertInputs_contentId(t *testing.T) {
	is := is.New(t)
	data := []byte("alerts:\n  - header: Detour\n    affected_entities: [\"100\"]\n  - header: Elevator out\n")
	first, err := ParseAlertInputs(data)
	is.NoErr(err)
	second, err := ParseAlertInputs(data)
	is.NoErr(err)

	is.Equal(first[0].Id, second[0].Id)
	is.Equal(first[1].Id, second[1].Id)
	is.True(first[0].Id != first[1].Id)

	message, err := BuildServiceAlert(first[0], time.Date(2020, 7, 1, 10, 15, 30, 0, time.UTC))
	is.NoErr(err)
	is.Equal(message.GetEntity()[0].GetId(), "alert_"+first[0].Id)
}

func TestParseKind(t *testing.T) {
	is := is.New(t)
	for _, kind := range Kinds {
		got, err := ParseKind(string(kind))
		is.NoErr(err)
		is.Equal(got, kind)
	}
	_, err := ParseKind("vehicle_positions")
	is.True(err != nil)
	is.Equal(KindOf(&gtfsrt.FeedMessage{}), Kind(""))
}

func TestFormats(t *testing.T) {
	is := is.New(t)
	now := time.Date(2020, 7, 1, 10, 15, 30, 0, time.UTC)
	message := BuildVehiclePosition(getTestContext(now), now)

	text := FormatText(message)
	is.True(strings.Contains(text, `trip_id:`))
	is.True(strings.Contains(text, `"t1"`))

	data, err := MarshalJSON(message)
	is.NoErr(err)
	is.True(strings.Contains(string(data), `"gtfs_realtime_version"`))
	is.True(strings.Contains(string(data), `"1001"`))
}
