package feed

import (
	"time"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/iqskr/AVLSystem/business/data/gtfs"
	"google.golang.org/protobuf/proto"
)

// BuildTripUpdate creates a trip update message for rc with a scheduled stop time update for each of stops.
// The entity id is "trip_" followed by the trip id.
// Stop times are placed on rc's service date. A stop time that cannot be parsed is reported as now, an empty
// stop time is left out.
func BuildTripUpdate(rc ResolvedContext, stops []gtfs.TripStop, now time.Time) *gtfsrt.FeedMessage {
	serviceDate := rc.serviceDate(now)

	trip := rc.tripDescriptor(now)
	trip.StartTime = proto.String(now.Format("15:04:05"))

	updates := make([]*gtfsrt.TripUpdate_StopTimeUpdate, 0, len(stops))
	for _, stop := range stops {
		updates = append(updates, &gtfsrt.TripUpdate_StopTimeUpdate{
			StopSequence:         proto.Uint32(uint32(stop.StopSequence)),
			StopId:               proto.String(stop.StopId),
			Arrival:              makeStopTimeEvent(serviceDate, stop.ArrivalTime, now),
			Departure:            makeStopTimeEvent(serviceDate, stop.DepartureTime, now),
			ScheduleRelationship: gtfsrt.TripUpdate_StopTimeUpdate_SCHEDULED.Enum(),
		})
	}

	entity := &gtfsrt.FeedEntity{
		Id: proto.String("trip_" + rc.TripId),
		TripUpdate: &gtfsrt.TripUpdate{
			Trip:           trip,
			Vehicle:        rc.vehicleDescriptor(),
			StopTimeUpdate: updates,
			Timestamp:      proto.Uint64(uint64(now.Unix())),
		},
	}
	return makeFeedMessage(now, entity)
}

//makeStopTimeEvent resolves a schedule time on serviceDate, nil if scheduleTime is empty
func makeStopTimeEvent(serviceDate time.Time, scheduleTime string, now time.Time) *gtfsrt.TripUpdate_StopTimeEvent {
	if len(scheduleTime) == 0 {
		return nil
	}
	at := now
	if seconds, err := gtfs.ParseScheduleTime(scheduleTime); err == nil {
		at = gtfs.MakeScheduleTime(serviceDate, seconds)
	}
	return &gtfsrt.TripUpdate_StopTimeEvent{
		Time: proto.Int64(at.Unix()),
	}
}
