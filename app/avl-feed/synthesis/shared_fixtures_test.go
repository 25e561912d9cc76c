package synthesis

import (
	"context"
	"errors"
	"log"
	"strings"
	"testing"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/iqskr/AVLSystem/business/data/avl"
	"github.com/iqskr/AVLSystem/business/data/feed"
	"github.com/iqskr/AVLSystem/business/data/gtfs"
)

type testLogWriter struct {
	logLines []string
	log      *log.Logger
}

func makeTestLogWriter() *testLogWriter {
	logWriter := testLogWriter{
		logLines: make([]string, 0),
	}
	logger := log.New(&logWriter, "AVL_FEED : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logWriter.log = logger
	return &logWriter
}

func (t *testLogWriter) Write(p []byte) (n int, err error) {
	t.logLines = append(t.logLines, string(p))
	return len(p), nil
}

// contains returns true if any logged line contains text
func (t *testLogWriter) contains(text string) bool {
	for _, line := range t.logLines {
		if strings.Contains(line, text) {
			return true
		}
	}
	return false
}

type fakeTelemetrySource struct {
	fixes []avl.VehicleFix
	err   error
	calls int
}

// FetchTelemetry returns the next fix, repeating the last one once they run out
func (f *fakeTelemetrySource) FetchTelemetry(_ context.Context) (avl.VehicleFix, error) {
	if f.err != nil {
		return avl.VehicleFix{}, f.err
	}
	fix := f.fixes[len(f.fixes)-1]
	if f.calls < len(f.fixes) {
		fix = f.fixes[f.calls]
	}
	f.calls++
	return fix, nil
}

type fakeScheduleSource struct {
	index *gtfs.ScheduleIndex
	err   error
}

func (f *fakeScheduleSource) FetchSchedule(_ context.Context) (*gtfs.ScheduleIndex, error) {
	return f.index, f.err
}

type fakeAlertSource struct {
	alerts []feed.AlertInput
	err    error
}

func (f *fakeAlertSource) FetchAlerts(_ context.Context) ([]feed.AlertInput, error) {
	return f.alerts, f.err
}

type recordedMessage struct {
	kind    feed.Kind
	message *gtfsrt.FeedMessage
}

type memoryRecorder struct {
	records []recordedMessage
	err     error
}

func (m *memoryRecorder) Record(_ context.Context, kind feed.Kind, message *gtfsrt.FeedMessage) error {
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, recordedMessage{kind: kind, message: message})
	return nil
}

func (m *memoryRecorder) ofKind(kind feed.Kind) []*gtfsrt.FeedMessage {
	var results []*gtfsrt.FeedMessage
	for _, r := range m.records {
		if r.kind == kind {
			results = append(results, r.message)
		}
	}
	return results
}

var errTestFailure = errors.New("test failure")

const testVehiclesYAML = `
vehicles:
  "1001":
    label: Bus 1001
    routes:
      "100":
        trips:
          - {trip_id: t2, direction_id: 1, start_time: "09:00:00"}
          - {trip_id: t1, direction_id: 0, start_time: "06:00:00"}
      "200":
        trips: []
`

func getTestVehicleConfigs(t *testing.T) *avl.VehicleConfigs {
	t.Helper()
	configs, err := avl.ParseVehicleConfigs([]byte(testVehiclesYAML))
	if err != nil {
		t.Fatalf("unable to parse vehicle configs: %v", err)
	}
	return configs
}

func getTestScheduleIndex() *gtfs.ScheduleIndex {
	return gtfs.BuildScheduleIndex(gtfs.RawTables{
		Routes: []gtfs.Record{
			{"route_id": "100", "route_long_name": "Blue Line", "route_type": "3"},
		},
		Trips: []gtfs.Record{
			{"route_id": "100", "service_id": "W", "trip_id": "t1", "direction_id": "0"},
			{"route_id": "100", "service_id": "W", "trip_id": "t2", "direction_id": "1"},
		},
		Stops: []gtfs.Record{
			{"stop_id": "A", "stop_name": "Alpha", "stop_lat": "45.5", "stop_lon": "-122.6"},
			{"stop_id": "B", "stop_name": "Bravo", "stop_lat": "45.6", "stop_lon": "-122.7"},
		},
		StopTimes: []gtfs.Record{
			{"trip_id": "t1", "arrival_time": "06:00:00", "departure_time": "06:00:00", "stop_id": "A",
				"stop_sequence": "1"},
			{"trip_id": "t1", "arrival_time": "06:10:00", "departure_time": "06:10:00", "stop_id": "B",
				"stop_sequence": "2"},
			{"trip_id": "t2", "arrival_time": "09:00:00", "departure_time": "09:00:00", "stop_id": "A",
				"stop_sequence": "1"},
		},
		Calendar: []gtfs.Record{
			{"service_id": "W", "monday": "1", "tuesday": "1", "wednesday": "1", "thursday": "1", "friday": "1",
				"saturday": "0", "sunday": "0", "start_date": "20200101", "end_date": "20201231"},
		},
	})
}

func makeTestFix(deviceId, routeId string, lat, lon float64) avl.VehicleFix {
	return avl.VehicleFix{
		DeviceId:  deviceId,
		RouteId:   routeId,
		Latitude:  lat,
		Longitude: lon,
	}
}
