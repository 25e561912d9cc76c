package gtfs

// Route contains data from a gtfs route definition in a routes.txt file
type Route struct {
	RouteId   string `json:"route_id"`
	Name      string `json:"route_name"`
	Type      int    `json:"route_type"`
	Color     string `json:"route_color"`
	TextColor string `json:"route_text_color"`
}

func buildRoute(r Record) Route {
	return Route{
		RouteId:   r.str("route_id"),
		Name:      r.str("route_long_name"),
		Type:      r.intOr("route_type", 0),
		Color:     r.str("route_color"),
		TextColor: r.str("route_text_color"),
	}
}

// Trip contains data from a gtfs trip definition in a trips.txt file
type Trip struct {
	TripId               string `json:"trip_id"`
	RouteId              string `json:"route_id"`
	ServiceId            string `json:"service_id"`
	DirectionId          int    `json:"direction_id"`
	ShapeId              string `json:"shape_id"`
	WheelchairAccessible int    `json:"wheelchair_accessible"`
}

func buildTrip(r Record) Trip {
	return Trip{
		TripId:               r.str("trip_id"),
		RouteId:              r.str("route_id"),
		ServiceId:            r.str("service_id"),
		DirectionId:          r.intOr("direction_id", 0),
		ShapeId:              r.str("shape_id"),
		WheelchairAccessible: r.intOr("wheelchair_accessible", 0),
	}
}

// Stop contains data from a gtfs stops.txt file
type Stop struct {
	StopId string  `json:"stop_id"`
	Name   string  `json:"stop_name"`
	Lat    float64 `json:"stop_lat"`
	Lon    float64 `json:"stop_lon"`
	Code   string  `json:"stop_code"`
	Desc   string  `json:"stop_desc"`
}

func buildStop(r Record) Stop {
	return Stop{
		StopId: r.str("stop_id"),
		Name:   r.str("stop_name"),
		Lat:    r.floatOr("stop_lat", 0),
		Lon:    r.floatOr("stop_lon", 0),
		Code:   r.str("stop_code"),
		Desc:   r.str("stop_desc"),
	}
}
