package feed

import (
	"time"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/iqskr/AVLSystem/business/data/avl"
	"github.com/iqskr/AVLSystem/business/data/gtfs"
	"google.golang.org/protobuf/proto"
)

// ResolvedContext is a vehicle fix joined with the vehicle's configuration and the trip it is serving
type ResolvedContext struct {
	Fix         avl.VehicleFix
	Label       string
	TripId      string
	RouteId     string
	DirectionId int
	// ServiceDate is 12am of the trip's service day, today is used when zero
	ServiceDate time.Time
	// Bearing is the heading estimated for the fix
	Bearing float64
}

func (rc ResolvedContext) label() string {
	if len(rc.Label) == 0 {
		return rc.Fix.DeviceId
	}
	return rc.Label
}

func (rc ResolvedContext) serviceDate(now time.Time) time.Time {
	if rc.ServiceDate.IsZero() {
		return gtfs.Get12AmTime(now)
	}
	return rc.ServiceDate
}

func (rc ResolvedContext) tripDescriptor(now time.Time) *gtfsrt.TripDescriptor {
	return &gtfsrt.TripDescriptor{
		TripId:      proto.String(rc.TripId),
		RouteId:     proto.String(rc.RouteId),
		DirectionId: proto.Uint32(uint32(rc.DirectionId)),
		StartDate:   proto.String(gtfs.FormatServiceDate(rc.serviceDate(now))),
	}
}

func (rc ResolvedContext) vehicleDescriptor() *gtfsrt.VehicleDescriptor {
	return &gtfsrt.VehicleDescriptor{
		Id:    proto.String(rc.Fix.DeviceId),
		Label: proto.String(rc.label()),
	}
}

// BuildVehiclePosition creates a vehicle position message for rc. The entity id is the device id.
// When the fix's position could not be read latitude, longitude and bearing are all 0.
func BuildVehiclePosition(rc ResolvedContext, now time.Time) *gtfsrt.FeedMessage {
	position := &gtfsrt.Position{
		Latitude:  proto.Float32(float32(rc.Fix.Latitude)),
		Longitude: proto.Float32(float32(rc.Fix.Longitude)),
		Bearing:   proto.Float32(float32(rc.Bearing)),
	}
	if rc.Fix.PositionErr != nil {
		position = &gtfsrt.Position{
			Latitude:  proto.Float32(0),
			Longitude: proto.Float32(0),
			Bearing:   proto.Float32(0),
		}
	}

	entity := &gtfsrt.FeedEntity{
		Id: proto.String(rc.Fix.DeviceId),
		Vehicle: &gtfsrt.VehiclePosition{
			Trip:      rc.tripDescriptor(now),
			Vehicle:   rc.vehicleDescriptor(),
			Position:  position,
			Timestamp: proto.Uint64(uint64(now.Unix())),
		},
	}
	return makeFeedMessage(now, entity)
}
