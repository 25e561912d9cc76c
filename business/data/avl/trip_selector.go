package avl

import (
	"time"

	"github.com/iqskr/AVLSystem/business/data/gtfs"
)

// lateTripWindow is how long after it started a trip of yesterday's service day written with a start time before
// 24:00:00 can still be selected after midnight
const lateTripWindow = 4 * 60 * 60

// SelectedTrip is the trip a vehicle is assumed to be serving along with the service day it belongs to
type SelectedTrip struct {
	TripConfig
	// ServiceDate is 12am of the service day the trip's start time is measured from
	ServiceDate time.Time
}

// SelectTrip picks the trip a vehicle on this route is serving at now: the latest trip that has started.
// Trips with start times past 24:00:00 also compete as trips of yesterday's service day so a vehicle running
// after midnight stays on the trip it started the previous evening. Yesterday's trips written before 24:00:00
// compete only while they started less than four hours ago.
// When no trip has started the first trip of today is used. Returns false only when the route has no trips.
func (r *RouteConfig) SelectTrip(now time.Time) (SelectedTrip, bool) {
	if r == nil || len(r.trips) == 0 {
		return SelectedTrip{}, false
	}
	today := gtfs.Get12AmTime(now)
	nowSeconds := gtfs.SecondsSinceMidnight(now)

	todayIndex := r.latestStarted(nowSeconds, 0)
	yesterdayMinimum := nowSeconds + gtfs.SecondsPerDay - lateTripWindow
	if yesterdayMinimum > gtfs.SecondsPerDay {
		yesterdayMinimum = gtfs.SecondsPerDay
	}
	yesterdayIndex := r.latestStarted(nowSeconds+gtfs.SecondsPerDay, yesterdayMinimum)

	switch {
	case todayIndex < 0 && yesterdayIndex < 0:
		return SelectedTrip{TripConfig: r.trips[0], ServiceDate: today}, true
	case yesterdayIndex < 0:
		return SelectedTrip{TripConfig: r.trips[todayIndex], ServiceDate: today}, true
	case todayIndex < 0:
		return SelectedTrip{TripConfig: r.trips[yesterdayIndex], ServiceDate: today.AddDate(0, 0, -1)}, true
	}

	// both started, the one started most recently wins
	todayStart := r.trips[todayIndex].startSeconds
	yesterdayStart := r.trips[yesterdayIndex].startSeconds - gtfs.SecondsPerDay
	if yesterdayStart > todayStart {
		return SelectedTrip{TripConfig: r.trips[yesterdayIndex], ServiceDate: today.AddDate(0, 0, -1)}, true
	}
	return SelectedTrip{TripConfig: r.trips[todayIndex], ServiceDate: today}, true
}

// latestStarted returns the index of the last trip starting at or after minimumStart and at or before
// elapsedSeconds, -1 if there is none
func (r *RouteConfig) latestStarted(elapsedSeconds int, minimumStart int) int {
	result := -1
	for i, trip := range r.trips {
		if trip.startSeconds > elapsedSeconds {
			break
		}
		if trip.startSeconds >= minimumStart {
			result = i
		}
	}
	return result
}
