package avl

import (
	"fmt"
	"os"
	"reflect"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/iqskr/AVLSystem/business/data/gtfs"
	"gopkg.in/yaml.v3"
)

// TripConfig is a scheduled trip a vehicle may serve on a route
type TripConfig struct {
	TripId      string `yaml:"trip_id" json:"trip_id" validate:"required"`
	DirectionId int    `yaml:"direction_id" json:"direction_id" validate:"gte=0,lte=1"`
	// StartTime is the trip start in gtfs HH:MM:SS form, may be past 24:00:00 for trips after midnight
	StartTime    string `yaml:"start_time" json:"start_time" validate:"required,gtfstime"`
	startSeconds int
}

// StartSeconds returns StartTime as seconds since the start of the service day
func (t TripConfig) StartSeconds() int {
	return t.startSeconds
}

// RouteConfig holds the trips configured for a route, always sorted by start time
type RouteConfig struct {
	trips []TripConfig
}

// NewRouteConfig creates RouteConfig with trips ordered by start time, trips with equal start time keep their
// order. Returns error if any start time is not a valid gtfs time.
func NewRouteConfig(trips []TripConfig) (*RouteConfig, error) {
	sorted := make([]TripConfig, 0, len(trips))
	for _, trip := range trips {
		seconds, err := gtfs.ParseScheduleTime(trip.StartTime)
		if err != nil {
			return nil, fmt.Errorf("trip %s has invalid start_time: %w", trip.TripId, err)
		}
		trip.startSeconds = seconds
		sorted = append(sorted, trip)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].startSeconds < sorted[j].startSeconds
	})
	return &RouteConfig{trips: sorted}, nil
}

// Trips returns a copy of the route's trips in start time order
func (r *RouteConfig) Trips() []TripConfig {
	return append([]TripConfig(nil), r.trips...)
}

// VehicleConfig maps a gps device to the label shown to riders and the routes it may serve
type VehicleConfig struct {
	DeviceId string
	Label    string
	Routes   map[string]*RouteConfig
}

// RouteIds returns the configured route ids in sorted order
func (v VehicleConfig) RouteIds() []string {
	results := make([]string, 0, len(v.Routes))
	for routeId := range v.Routes {
		results = append(results, routeId)
	}
	sort.Strings(results)
	return results
}

// VehicleConfigs holds all configured vehicles by device id
type VehicleConfigs struct {
	vehicles map[string]VehicleConfig
}

// NewVehicleConfigs creates VehicleConfigs from vehicles
func NewVehicleConfigs(vehicles ...VehicleConfig) *VehicleConfigs {
	result := VehicleConfigs{vehicles: make(map[string]VehicleConfig, len(vehicles))}
	for _, vehicle := range vehicles {
		result.vehicles[vehicle.DeviceId] = vehicle
	}
	return &result
}

// Lookup returns the configuration for deviceId.
// Devices not configured get a default with the device id as label and no routes.
func (c *VehicleConfigs) Lookup(deviceId string) VehicleConfig {
	if c != nil {
		if vehicle, present := c.vehicles[deviceId]; present {
			return vehicle
		}
	}
	return VehicleConfig{
		DeviceId: deviceId,
		Label:    deviceId,
		Routes:   map[string]*RouteConfig{},
	}
}

// Len returns the number of configured vehicles
func (c *VehicleConfigs) Len() int {
	return len(c.vehicles)
}

type routeFile struct {
	Trips []TripConfig `yaml:"trips" validate:"dive"`
}

type vehicleFile struct {
	DeviceId string               `yaml:"device_id"`
	Label    string               `yaml:"label"`
	Routes   map[string]routeFile `yaml:"routes" validate:"dive"`
}

type vehiclesFile struct {
	Vehicles map[string]vehicleFile `yaml:"vehicles" validate:"dive"`
}

// LoadVehicleConfigs reads the vehicle configuration file at path. The file may be yaml or json:
//
//	vehicles:
//	  "1001":
//	    label: Bus 1001
//	    routes:
//	      "100":
//	        trips:
//	          - {trip_id: t1, direction_id: 0, start_time: "06:00:00"}
func LoadVehicleConfigs(path string) (*VehicleConfigs, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read vehicle configuration: %w", err)
	}
	return ParseVehicleConfigs(data)
}

// ParseVehicleConfigs decodes and validates vehicle configuration from yaml or json data
func ParseVehicleConfigs(data []byte) (*VehicleConfigs, error) {
	var file vehiclesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("unable to parse vehicle configuration: %w", err)
	}
	if err := newValidator().Struct(file); err != nil {
		return nil, fmt.Errorf("invalid vehicle configuration: %w", err)
	}

	vehicles := make([]VehicleConfig, 0, len(file.Vehicles))
	for key, vf := range file.Vehicles {
		vehicle := VehicleConfig{
			DeviceId: key,
			Label:    vf.Label,
			Routes:   make(map[string]*RouteConfig, len(vf.Routes)),
		}
		if len(vf.DeviceId) > 0 {
			vehicle.DeviceId = vf.DeviceId
		}
		if len(vehicle.Label) == 0 {
			vehicle.Label = vehicle.DeviceId
		}
		for routeId, rf := range vf.Routes {
			routeConfig, err := NewRouteConfig(rf.Trips)
			if err != nil {
				return nil, fmt.Errorf("vehicle %s route %s: %w", key, routeId, err)
			}
			vehicle.Routes[routeId] = routeConfig
		}
		vehicles = append(vehicles, vehicle)
	}
	return NewVehicleConfigs(vehicles...), nil
}

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("gtfstime", func(fl validator.FieldLevel) bool {
		if fl.Field().Kind() != reflect.String {
			return false
		}
		_, err := gtfs.ParseScheduleTime(fl.Field().String())
		return err == nil
	})
	return v
}
