// Package device boots the sensor node and runs its tasks.
// Each task owns its resources exclusively: the link supervisor owns the
// link state, the session keeper the platform session, the telemetry
// publisher the sensor and display, and the sequencer the output lines.
package device

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/sweeney/env-sensor/internal/actuator"
	"github.com/sweeney/env-sensor/internal/config"
	"github.com/sweeney/env-sensor/internal/display"
	"github.com/sweeney/env-sensor/internal/gpio"
	"github.com/sweeney/env-sensor/internal/link"
	"github.com/sweeney/env-sensor/internal/logic"
	"github.com/sweeney/env-sensor/internal/mqtt"
	"github.com/sweeney/env-sensor/internal/sensor"
	"github.com/sweeney/env-sensor/internal/session"
	"github.com/sweeney/env-sensor/internal/status"
	"github.com/sweeney/env-sensor/internal/telemetry"
)

// Deps are the hardware and network collaborators. Outputs may be nil when
// the actuator task is disabled.
type Deps struct {
	Display display.Display
	Sensor  sensor.Sensor
	Link    link.Driver
	Client  mqtt.Client
	Outputs gpio.Writer
	Clock   clock.Clock // nil uses the wall clock
	Tracker *status.Tracker
}

type task struct {
	name string
	run  func(context.Context) error
}

// Runtime is the booted device.
type Runtime struct {
	deps  Deps
	tasks []task

	keeper *session.Keeper
	group  *errgroup.Group
}

// New initialises the display and sensor and builds the enabled tasks.
// Display and sensor failures are logged, not fatal: the tasks keep
// running and the sensor is retried every cycle.
func New(cfg config.Config, deps Deps) (*Runtime, error) {
	if cfg.Enabled(config.TaskActuator) && deps.Outputs == nil {
		return nil, errors.New("device: actuator task enabled without outputs")
	}
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	rt := &Runtime{deps: deps}

	rt.initDisplay(cfg.Display.Greeting)
	if err := deps.Sensor.Begin(); err != nil {
		log.Printf("device: sensor begin: %v", err)
	}

	var linkStatus link.Status = link.DriverStatus{Driver: deps.Link, Tracker: deps.Tracker}
	// Seed the status page; the keeper refreshes it on every tick.
	if !cfg.Enabled(config.TaskLink) && deps.Link != nil {
		linkStatus.State()
	}
	if cfg.Enabled(config.TaskLink) {
		sup := link.NewSupervisor(deps.Link, link.SupervisorConfig{
			SSID:     cfg.Network.SSID,
			Password: cfg.Network.Password,
			Poll:     cfg.Intervals.LinkPoll,
			Check:    cfg.Intervals.LinkCheck,
			Clock:    deps.Clock,
			Tracker:  deps.Tracker,
		})
		linkStatus = sup
		rt.tasks = append(rt.tasks, task{config.TaskLink, sup.Maintain})
	}

	var sink telemetry.Sink = offline{}
	if cfg.Enabled(config.TaskSession) {
		rt.keeper = session.New(deps.Client, linkStatus, deps.Link, session.Config{
			Server:  cfg.Platform.Server,
			Port:    cfg.Platform.Port,
			Token:   cfg.Platform.Token,
			Retry:   cfg.Intervals.SessionRetry,
			Clock:   deps.Clock,
			Tracker: deps.Tracker,
		})
		sink = rt.keeper
		rt.tasks = append(rt.tasks, task{config.TaskSession, rt.keeper.Run})
	}

	if cfg.Enabled(config.TaskTelemetry) {
		pub := telemetry.New(deps.Sensor, sink, deps.Display, telemetry.Config{
			Interval: cfg.Intervals.Telemetry,
			Labels: logic.Labels{
				Temperature: cfg.Display.TemperatureLabel,
				Humidity:    cfg.Display.HumidityLabel,
			},
			Clock:   deps.Clock,
			Tracker: deps.Tracker,
		})
		rt.tasks = append(rt.tasks, task{config.TaskTelemetry, pub.Run})
	}

	if cfg.Enabled(config.TaskActuator) {
		seq := actuator.New(deps.Outputs, actuator.Config{Clock: deps.Clock, Tracker: deps.Tracker})
		rt.tasks = append(rt.tasks, task{config.TaskActuator, seq.Run})
	}

	return rt, nil
}

func (rt *Runtime) initDisplay(greeting string) {
	d := rt.deps.Display
	steps := []struct {
		name string
		fn   func() error
	}{
		{"init", d.Init},
		{"backlight", d.Backlight},
		{"clear", d.Clear},
		{"greeting", func() error { return d.Println(greeting) }},
	}
	for _, st := range steps {
		if err := st.fn(); err != nil {
			log.Printf("device: display %s: %v", st.name, err)
		}
	}
}

// Tasks returns the names of the enabled tasks in start order.
func (rt *Runtime) Tasks() []string {
	names := make([]string, len(rt.tasks))
	for i, t := range rt.tasks {
		names[i] = t.name
	}
	return names
}

// Start spawns every enabled task and returns immediately. Tasks run until
// ctx is done.
func (rt *Runtime) Start(ctx context.Context) {
	g := &errgroup.Group{}
	for _, t := range rt.tasks {
		log.Printf("device: starting %s task", t.name)
		g.Go(func() error {
			err := t.run(ctx)
			if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
				// The other tasks keep running.
				log.Printf("device: %s task stopped: %v", t.name, err)
				return fmt.Errorf("%s: %w", t.name, err)
			}
			return nil
		})
	}
	rt.group = g
}

// Wait blocks until every task has returned, then clears the display,
// switches the outputs off and closes the session.
func (rt *Runtime) Wait() error {
	var err error
	if rt.group != nil {
		err = rt.group.Wait()
	}
	return multierr.Append(err, rt.shutdown())
}

func (rt *Runtime) shutdown() error {
	var err error
	if e := rt.deps.Display.Clear(); e != nil {
		err = multierr.Append(err, fmt.Errorf("display: %w", e))
	}
	if rt.deps.Outputs != nil {
		if e := rt.deps.Outputs.Close(); e != nil {
			err = multierr.Append(err, fmt.Errorf("outputs: %w", e))
		}
	}
	if rt.keeper != nil {
		err = multierr.Append(err, rt.keeper.Close())
	}
	return err
}

// offline stands in for the session when the session task is disabled.
type offline struct{}

func (offline) PublishTelemetry(string, any) error {
	return session.ErrNotConnected
}
