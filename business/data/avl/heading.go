package avl

import (
	"math"
	"time"
)

// LastFix is the most recent position stored for a device
type LastFix struct {
	Latitude  float64
	Longitude float64
	Timestamp time.Time
	lastCycle int64
}

// HeadingTable holds the last known position of each device between synthesis cycles.
// Not safe for concurrent use, a single synthesis loop owns it.
type HeadingTable struct {
	entries map[string]LastFix
	cycle   int64
}

// NewHeadingTable creates an empty HeadingTable
func NewHeadingTable() *HeadingTable {
	return &HeadingTable{entries: make(map[string]LastFix)}
}

// Get retrieves the last fix stored for deviceId
func (t *HeadingTable) Get(deviceId string) (LastFix, bool) {
	fix, present := t.entries[deviceId]
	return fix, present
}

// Put stores fix as the last position for deviceId during the current cycle
func (t *HeadingTable) Put(deviceId string, fix LastFix) {
	fix.lastCycle = t.cycle
	t.entries[deviceId] = fix
}

// Len returns the number of devices with a stored fix
func (t *HeadingTable) Len() int {
	return len(t.entries)
}

// EndCycle closes the current cycle, removing devices not updated during the last maxIdleCycles cycles.
// maxIdleCycles of 0 or less keeps every device. Returns the number of devices removed.
func (t *HeadingTable) EndCycle(maxIdleCycles int) int {
	removed := 0
	if maxIdleCycles > 0 {
		for deviceId, fix := range t.entries {
			if t.cycle-fix.lastCycle >= int64(maxIdleCycles) {
				delete(t.entries, deviceId)
				removed++
			}
		}
	}
	t.cycle++
	return removed
}

// HeadingEstimator derives a vehicle's bearing from its previous and current position
type HeadingEstimator struct {
	table *HeadingTable
}

// NewHeadingEstimator creates HeadingEstimator storing positions in table
func NewHeadingEstimator(table *HeadingTable) *HeadingEstimator {
	return &HeadingEstimator{table: table}
}

// Estimate returns the bearing from the device's previous fix to (lat, lon).
// When there is no previous fix or either position is (0,0) fallback is returned, 0 when fallback is nil.
// The stored fix is always replaced with the current one, including an unknown (0,0) position, so the next
// estimate after a bad fix falls back as well.
func (h *HeadingEstimator) Estimate(deviceId string, lat, lon float64, fallback *float64, at time.Time) float64 {
	bearing := 0.0
	if fallback != nil {
		bearing = *fallback
	}

	previous, present := h.table.Get(deviceId)
	if present && !IsSentinel(previous.Latitude, previous.Longitude) && !IsSentinel(lat, lon) {
		bearing = InitialBearing(previous.Latitude, previous.Longitude, lat, lon)
	}

	h.table.Put(deviceId, LastFix{Latitude: lat, Longitude: lon, Timestamp: at})
	return bearing
}

// Evict ends the estimator's cycle, see HeadingTable.EndCycle
func (h *HeadingEstimator) Evict(maxIdleCycles int) int {
	return h.table.EndCycle(maxIdleCycles)
}

// InitialBearing computes the great circle initial bearing in degrees [0, 360) travelling from point 1 to
// point 2, 0 is north
func InitialBearing(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	deltaLambda := (lon2 - lon1) * math.Pi / 180

	y := math.Sin(deltaLambda) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(deltaLambda)
	return math.Mod(math.Atan2(y, x)*180/math.Pi+360, 360)
}
