package gtfs

// StopSequenceEntry contains a record from a gtfs stop_times.txt file
// represents a scheduled arrival and departure at a stop.
// Arrival and departure are kept in their HH:MM:SS schedule form, they are only resolved to a date when a feed is built
type StopSequenceEntry struct {
	StopSequence  int    `json:"stop_sequence"`
	StopId        string `json:"stop_id"`
	ArrivalTime   string `json:"arrival_time"`
	DepartureTime string `json:"departure_time"`
	Headsign      string `json:"stop_headsign"`
	PickupType    int    `json:"pickup_type"`
	DropOffType   int    `json:"drop_off_type"`
}

func buildStopSequenceEntry(r Record) StopSequenceEntry {
	return StopSequenceEntry{
		StopSequence:  r.intOr("stop_sequence", 0),
		StopId:        r.str("stop_id"),
		ArrivalTime:   r.str("arrival_time"),
		DepartureTime: r.str("departure_time"),
		Headsign:      r.str("stop_headsign"),
		PickupType:    r.intOr("pickup_type", 0),
		DropOffType:   r.intOr("drop_off_type", 0),
	}
}

// TripStop is a StopSequenceEntry joined with the name of its stop
type TripStop struct {
	StopSequence  int    `json:"stop_sequence"`
	StopId        string `json:"stop_id"`
	StopName      string `json:"stop_name"`
	ArrivalTime   string `json:"arrival_time"`
	DepartureTime string `json:"departure_time"`
}
