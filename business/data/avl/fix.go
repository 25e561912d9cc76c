// Package avl holds the vehicle side of feed synthesis: telemetry fixes, the per vehicle route and trip
// configuration, trip selection and heading estimation.
package avl

import (
	"fmt"
	"time"

	"github.com/iqskr/AVLSystem/foundation/coerce"
)

// VehicleFix is a single position report received from a vehicle's gps logger
type VehicleFix struct {
	DeviceId string
	RouteId  string
	// Latitude and Longitude are 0 when not reported. (0,0) means the position is unknown
	Latitude  float64
	Longitude float64
	// Bearing is nil when not reported or not numeric
	Bearing   *float64
	Timestamp time.Time
	// PositionErr is set when a coordinate was reported but could not be read as a number
	PositionErr error
}

// HasPosition returns true when the fix carries a usable coordinate
func (f VehicleFix) HasPosition() bool {
	return f.PositionErr == nil && !IsSentinel(f.Latitude, f.Longitude)
}

// IsSentinel returns true for the (0,0) coordinate used for unknown positions
func IsSentinel(lat, lon float64) bool {
	return lat == 0 && lon == 0
}

// FixFromValues builds a VehicleFix from decoded telemetry values, as produced by a json object or a form
// encoded gps logger request. "lat"/"lon" are accepted in place of "latitude"/"longitude" and "dir" in place of
// "bearing".
func FixFromValues(values map[string]interface{}, receivedAt time.Time) VehicleFix {
	fix := VehicleFix{Timestamp: receivedAt}
	fix.DeviceId, _ = coerce.AnyString(values["device_id"])
	fix.RouteId, _ = coerce.AnyString(values["route_id"])

	var latOk, lonOk bool
	fix.Latitude, latOk = readCoordinate(values, "latitude", "lat")
	fix.Longitude, lonOk = readCoordinate(values, "longitude", "lon")
	if !latOk || !lonOk {
		fix.PositionErr = fmt.Errorf("position not numeric latitude:%v longitude:%v",
			firstPresent(values, "latitude", "lat"), firstPresent(values, "longitude", "lon"))
		fix.Latitude = 0
		fix.Longitude = 0
	}

	if raw := firstPresent(values, "bearing", "dir"); raw != nil {
		if bearing, ok := coerce.AnyFloat(raw, 0); ok {
			fix.Bearing = &bearing
		}
	}
	return fix
}

// readCoordinate returns 0 and true when the value is absent, false only when present and not numeric
func readCoordinate(values map[string]interface{}, names ...string) (float64, bool) {
	raw := firstPresent(values, names...)
	if raw == nil {
		return 0, true
	}
	return coerce.AnyFloat(raw, 0)
}

func firstPresent(values map[string]interface{}, names ...string) interface{} {
	for _, name := range names {
		if value, present := values[name]; present && value != nil {
			return value
		}
	}
	return nil
}
