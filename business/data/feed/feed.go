// Package feed builds gtfs-realtime feed messages for vehicle positions, trip updates and service alerts.
// Every message built here holds a header and exactly one entity.
package feed

import (
	"fmt"
	"time"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/encoding/prototext"
	"google.golang.org/protobuf/proto"
)

// GtfsRealtimeVersion is written in the header of every message
const GtfsRealtimeVersion = "2.0"

// Kind identifies which of the three message types a FeedMessage carries
type Kind string

const (
	VehiclePositionKind Kind = "vehicle_position"
	TripUpdateKind      Kind = "trip_update"
	ServiceAlertKind    Kind = "service_alert"
)

// Kinds lists every Kind in the order a cycle emits them
var Kinds = []Kind{VehiclePositionKind, TripUpdateKind, ServiceAlertKind}

// ParseKind returns the Kind named by value
func ParseKind(value string) (Kind, error) {
	for _, kind := range Kinds {
		if string(kind) == value {
			return kind, nil
		}
	}
	return "", fmt.Errorf("unknown feed kind %q", value)
}

// KindOf returns the Kind of the first entity in message, empty if message has no entities
func KindOf(message *gtfsrt.FeedMessage) Kind {
	for _, entity := range message.GetEntity() {
		switch {
		case entity.GetVehicle() != nil:
			return VehiclePositionKind
		case entity.GetTripUpdate() != nil:
			return TripUpdateKind
		case entity.GetAlert() != nil:
			return ServiceAlertKind
		}
	}
	return ""
}

//makeFeedMessage wraps entity in a FeedMessage with a full dataset header stamped with now
func makeFeedMessage(now time.Time, entity *gtfsrt.FeedEntity) *gtfsrt.FeedMessage {
	return &gtfsrt.FeedMessage{
		Header: &gtfsrt.FeedHeader{
			GtfsRealtimeVersion: proto.String(GtfsRealtimeVersion),
			Incrementality:      gtfsrt.FeedHeader_FULL_DATASET.Enum(),
			Timestamp:           proto.Uint64(uint64(now.Unix())),
		},
		Entity: []*gtfsrt.FeedEntity{entity},
	}
}

// Marshal encodes message in the gtfs-realtime protocol buffer wire format
func Marshal(message *gtfsrt.FeedMessage) ([]byte, error) {
	return proto.Marshal(message)
}

// Unmarshal decodes a gtfs-realtime protocol buffer
func Unmarshal(data []byte) (*gtfsrt.FeedMessage, error) {
	var message gtfsrt.FeedMessage
	if err := proto.Unmarshal(data, &message); err != nil {
		return nil, fmt.Errorf("unable to decode feed message: %w", err)
	}
	return &message, nil
}

// FormatText returns the multiline protocol buffer text format of message
func FormatText(message *gtfsrt.FeedMessage) string {
	return prototext.MarshalOptions{Multiline: true}.Format(message)
}

// MarshalJSON encodes message using the protocol buffer json mapping with original field names
func MarshalJSON(message *gtfsrt.FeedMessage) ([]byte, error) {
	return protojson.MarshalOptions{UseProtoNames: true}.Marshal(message)
}
