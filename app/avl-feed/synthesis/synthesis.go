// Package synthesis runs feed synthesis cycles: it fetches a telemetry fix and the static schedule, resolves the
// vehicle's trip, and hands vehicle position, trip update and service alert messages to each FeedRecorder.
package synthesis

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/iqskr/AVLSystem/business/data/avl"
	"github.com/iqskr/AVLSystem/business/data/feed"
	"github.com/iqskr/AVLSystem/business/data/gtfs"
)

// State is the stage a cycle is in, or ended in
type State int

const (
	Idle State = iota
	FetchingInputs
	ResolvingContext
	BuildingFeeds
	Done
	Failed
)

var stateNames = map[State]string{
	Idle:             "idle",
	FetchingInputs:   "fetching_inputs",
	ResolvingContext: "resolving_context",
	BuildingFeeds:    "building_feeds",
	Done:             "done",
	Failed:           "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var (
	// ErrInputUnavailable is returned when telemetry or the schedule could not be fetched
	ErrInputUnavailable = errors.New("input unavailable")
	// ErrUnknownVehicle is returned when telemetry does not identify a device
	ErrUnknownVehicle = errors.New("unknown vehicle")
	// ErrNoResolvableTrip is returned when the vehicle's route has no trips
	ErrNoResolvableTrip = errors.New("no resolvable trip")
)

// UnknownRouteError is returned when the reported route is not configured for the vehicle
type UnknownRouteError struct {
	DeviceId  string
	RouteId   string
	Available []string
}

func (e *UnknownRouteError) Error() string {
	return fmt.Sprintf("no route information found for route %q on vehicle %s, available routes: [%s]",
		e.RouteId, e.DeviceId, strings.Join(e.Available, ", "))
}

// TelemetrySource provides the latest fix reported by the vehicle
type TelemetrySource interface {
	FetchTelemetry(ctx context.Context) (avl.VehicleFix, error)
}

// ScheduleSource provides the static schedule
type ScheduleSource interface {
	FetchSchedule(ctx context.Context) (*gtfs.ScheduleIndex, error)
}

// AlertSource provides the service alerts to publish each cycle
type AlertSource interface {
	FetchAlerts(ctx context.Context) ([]feed.AlertInput, error)
}

// FeedRecorder sends a feed message to its destination
type FeedRecorder interface {
	Record(ctx context.Context, kind feed.Kind, message *gtfsrt.FeedMessage) error
}

// Config holds the pipeline's optional behavior
type Config struct {
	// CheckServiceCalendar skips the trip update when the trip's service does not run on the service date
	CheckServiceCalendar bool
	// Holidays are run on sunday service when CheckServiceCalendar is set, may be nil
	Holidays *gtfs.HolidayCalendar
	// HeadingEvictCycles drops heading state for devices not seen for this many cycles, 0 keeps everything
	HeadingEvictCycles int
}

// CycleResult is the outcome of one RunCycle
type CycleResult struct {
	State   State
	Err     error
	Emitted map[feed.Kind]int
}

// Pipeline turns telemetry and schedule inputs into feed messages. Only heading state carries from one cycle to
// the next. RunCycle must not be called concurrently.
type Pipeline struct {
	log       *log.Logger
	cfg       Config
	telemetry TelemetrySource
	schedule  ScheduleSource
	alerts    AlertSource
	vehicles  *avl.VehicleConfigs
	recorders []FeedRecorder
	headings  *avl.HeadingTable
	estimator *avl.HeadingEstimator
	metrics   *Metrics
	state     State
}

// NewPipeline creates a Pipeline. alerts and metrics may be nil.
func NewPipeline(log *log.Logger,
	cfg Config,
	telemetry TelemetrySource,
	schedule ScheduleSource,
	alerts AlertSource,
	vehicles *avl.VehicleConfigs,
	metrics *Metrics,
	recorders ...FeedRecorder) *Pipeline {
	headings := avl.NewHeadingTable()
	return &Pipeline{
		log:       log,
		cfg:       cfg,
		telemetry: telemetry,
		schedule:  schedule,
		alerts:    alerts,
		vehicles:  vehicles,
		recorders: recorders,
		headings:  headings,
		estimator: avl.NewHeadingEstimator(headings),
		metrics:   metrics,
		state:     Idle,
	}
}

// State returns the state of the last cycle
func (p *Pipeline) State() State {
	return p.state
}

// Headings returns the heading table carried between cycles
func (p *Pipeline) Headings() *avl.HeadingTable {
	return p.headings
}

// RunCycle runs one synthesis cycle as of now
func (p *Pipeline) RunCycle(ctx context.Context, now time.Time) CycleResult {
	result := CycleResult{Emitted: make(map[feed.Kind]int)}
	start := time.Now()
	defer func() {
		evicted := p.estimator.Evict(p.cfg.HeadingEvictCycles)
		if evicted > 0 {
			p.log.Printf("evicted heading state for %d idle vehicles", evicted)
		}
		p.metrics.observeCycle(result, p.headings.Len(), time.Since(start))
	}()

	fail := func(err error) CycleResult {
		p.state = Failed
		result.State = Failed
		result.Err = err
		p.log.Printf("cycle failed. error:%v", err)
		return result
	}

	p.state = FetchingInputs
	fix, err := p.telemetry.FetchTelemetry(ctx)
	if err != nil {
		return fail(fmt.Errorf("%w: fetching telemetry: %w", ErrInputUnavailable, err))
	}
	schedule, err := p.schedule.FetchSchedule(ctx)
	if err != nil {
		return fail(fmt.Errorf("%w: fetching schedule: %w", ErrInputUnavailable, err))
	}

	p.state = ResolvingContext
	rc, err := p.resolveContext(fix, now)
	if err != nil {
		return fail(err)
	}

	p.state = BuildingFeeds
	rc.Bearing = p.estimator.Estimate(fix.DeviceId, fix.Latitude, fix.Longitude, fix.Bearing, now)
	if fix.PositionErr != nil {
		p.log.Printf("vehicle %s reported unreadable position, sending unknown position. error:%v",
			fix.DeviceId, fix.PositionErr)
	}

	p.record(ctx, &result, feed.VehiclePositionKind, feed.BuildVehiclePosition(rc, now))

	if p.cfg.CheckServiceCalendar && !schedule.IsTripActive(rc.TripId, rc.ServiceDate, p.cfg.Holidays) {
		p.log.Printf("trip %s does not run on %s, skipping trip update", rc.TripId,
			gtfs.FormatServiceDate(rc.ServiceDate))
	} else {
		stops := schedule.TripStops(rc.TripId)
		p.record(ctx, &result, feed.TripUpdateKind, feed.BuildTripUpdate(rc, stops, now))
	}

	p.recordAlerts(ctx, &result, now)

	p.state = Done
	result.State = Done
	return result
}

//resolveContext joins fix with the vehicle's configuration and the trip it is serving at now
func (p *Pipeline) resolveContext(fix avl.VehicleFix, now time.Time) (feed.ResolvedContext, error) {
	if len(fix.DeviceId) == 0 {
		return feed.ResolvedContext{}, fmt.Errorf("%w: telemetry has no device_id", ErrUnknownVehicle)
	}
	vehicle := p.vehicles.Lookup(fix.DeviceId)
	route, ok := vehicle.Routes[fix.RouteId]
	if !ok {
		return feed.ResolvedContext{}, &UnknownRouteError{
			DeviceId:  vehicle.DeviceId,
			RouteId:   fix.RouteId,
			Available: vehicle.RouteIds(),
		}
	}
	selected, ok := route.SelectTrip(now)
	if !ok {
		return feed.ResolvedContext{}, fmt.Errorf("%w: route %s on vehicle %s has no trips",
			ErrNoResolvableTrip, fix.RouteId, vehicle.DeviceId)
	}
	p.log.Printf("vehicle %s on route %s selected trip %s direction %d starting %s on %s", vehicle.DeviceId,
		fix.RouteId, selected.TripId, selected.DirectionId, selected.StartTime,
		gtfs.FormatServiceDate(selected.ServiceDate))

	return feed.ResolvedContext{
		Fix:         fix,
		Label:       vehicle.Label,
		TripId:      selected.TripId,
		RouteId:     fix.RouteId,
		DirectionId: selected.DirectionId,
		ServiceDate: selected.ServiceDate,
	}, nil
}

//recordAlerts builds and records one message per alert input, a bad alert does not stop the others
func (p *Pipeline) recordAlerts(ctx context.Context, result *CycleResult, now time.Time) {
	if p.alerts == nil {
		return
	}
	inputs, err := p.alerts.FetchAlerts(ctx)
	if err != nil {
		p.log.Printf("unable to load service alerts, continuing without them. error:%v", err)
		return
	}
	for _, input := range inputs {
		message, err := feed.BuildServiceAlert(input, now)
		if err != nil {
			p.log.Printf("skipping service alert %q. error:%v", input.Id, err)
			p.metrics.alertFailed()
			continue
		}
		p.record(ctx, result, feed.ServiceAlertKind, message)
	}
}

//record hands message to every recorder, failures are logged and don't end the cycle
func (p *Pipeline) record(ctx context.Context, result *CycleResult, kind feed.Kind, message *gtfsrt.FeedMessage) {
	result.Emitted[kind]++
	p.metrics.emitted(kind)
	for _, recorder := range p.recorders {
		if err := recorder.Record(ctx, kind, message); err != nil {
			p.log.Printf("failed to record %s. error:%v", kind, err)
			p.metrics.recordFailed(kind)
		}
	}
}
