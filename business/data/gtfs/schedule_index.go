package gtfs

import (
	"sort"
)

// ScheduleIndex holds a static gtfs schedule indexed for lookups by id.
// It is built once per schedule refresh and never modified afterwards.
type ScheduleIndex struct {
	DataSet DataSet
	Routes  map[string]Route
	Trips   map[string]Trip
	Stops   map[string]Stop
	// StopSequences holds the stop times of each trip keyed by tripId, ordered by StopSequence
	StopSequences map[string][]StopSequenceEntry
	Calendars     map[string]Calendar
	CalendarDates []CalendarDate
}

// BuildScheduleIndex creates ScheduleIndex from tables.
// Missing tables produce empty maps. Rows with unparsable numeric columns are kept with zero values in those columns.
func BuildScheduleIndex(tables RawTables) *ScheduleIndex {
	index := ScheduleIndex{
		Routes:        make(map[string]Route, len(tables.Routes)),
		Trips:         make(map[string]Trip, len(tables.Trips)),
		Stops:         make(map[string]Stop, len(tables.Stops)),
		StopSequences: make(map[string][]StopSequenceEntry),
		Calendars:     make(map[string]Calendar, len(tables.Calendar)),
		CalendarDates: make([]CalendarDate, 0, len(tables.CalendarDates)),
	}

	for _, row := range tables.Routes {
		route := buildRoute(row)
		index.Routes[route.RouteId] = route
	}

	for _, row := range tables.Trips {
		trip := buildTrip(row)
		index.Trips[trip.TripId] = trip
	}

	for _, row := range tables.Stops {
		stop := buildStop(row)
		index.Stops[stop.StopId] = stop
	}

	for _, row := range tables.StopTimes {
		tripId := row.str("trip_id")
		index.StopSequences[tripId] = append(index.StopSequences[tripId], buildStopSequenceEntry(row))
	}
	for _, entries := range index.StopSequences {
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].StopSequence < entries[j].StopSequence
		})
	}

	for _, row := range tables.Calendar {
		calendar := buildCalendar(row)
		index.Calendars[calendar.ServiceId] = calendar
	}

	for _, row := range tables.CalendarDates {
		index.CalendarDates = append(index.CalendarDates, buildCalendarDate(row))
	}

	return &index
}

// TripStops returns the stops visited by tripId in stop sequence order, joined with their stop names.
// Stop times referencing a stop missing from stops.txt are left out.
// returns empty slice if tripId is unknown
func (s *ScheduleIndex) TripStops(tripId string) []TripStop {
	results := make([]TripStop, 0)
	if s == nil {
		return results
	}
	for _, entry := range s.StopSequences[tripId] {
		stop, present := s.Stops[entry.StopId]
		if !present {
			continue
		}
		results = append(results, TripStop{
			StopSequence:  entry.StopSequence,
			StopId:        entry.StopId,
			StopName:      stop.Name,
			ArrivalTime:   entry.ArrivalTime,
			DepartureTime: entry.DepartureTime,
		})
	}
	return results
}

// Summary returns counts of indexed records for logging
func (s *ScheduleIndex) Summary() map[string]int {
	stopTimes := 0
	for _, entries := range s.StopSequences {
		stopTimes += len(entries)
	}
	return map[string]int{
		"routes":         len(s.Routes),
		"trips":          len(s.Trips),
		"stops":          len(s.Stops),
		"stop_times":     stopTimes,
		"calendar":       len(s.Calendars),
		"calendar_dates": len(s.CalendarDates),
	}
}
