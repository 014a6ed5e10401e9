// Package telemetry samples the sensor on a fixed cadence, forwards the
// reading to the platform session and redraws the display.
package telemetry

import (
	"context"
	"log"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/sweeney/env-sensor/internal/display"
	"github.com/sweeney/env-sensor/internal/logic"
	"github.com/sweeney/env-sensor/internal/sensor"
	"github.com/sweeney/env-sensor/internal/status"
)

// Sink accepts telemetry values. Failures are reported but never fatal.
type Sink interface {
	PublishTelemetry(key string, value any) error
}

// Config configures a Publisher.
type Config struct {
	Interval time.Duration
	Labels   logic.Labels
	Clock    clock.Clock // nil uses the wall clock
	Tracker  *status.Tracker
}

// Publisher is the only user of the sensor and, after startup, the display.
type Publisher struct {
	sensor   sensor.Sensor
	sink     Sink
	display  display.Display
	interval time.Duration
	labels   logic.Labels
	clock    clock.Clock
	tracker  *status.Tracker
}

// New creates a Publisher.
func New(s sensor.Sensor, sink Sink, d display.Display, cfg Config) *Publisher {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Publisher{
		sensor:   s,
		sink:     sink,
		display:  d,
		interval: cfg.Interval,
		labels:   cfg.Labels,
		clock:    clk,
		tracker:  cfg.Tracker,
	}
}

// Run performs one Cycle per Interval until ctx is done.
// Cycles start on a fixed ticker, so the cadence does not depend on how
// long the sensor or the network took.
func (p *Publisher) Run(ctx context.Context) error {
	ticker := p.clock.Ticker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		p.Cycle()
	}
}

// Cycle reads the sensor, publishes both values and redraws the display.
// A failed read is logged and the driver's last values are used with
// Valid=false.
func (p *Publisher) Cycle() logic.Reading {
	r := logic.Reading{Time: p.clock.Now(), Valid: true}
	if err := p.sensor.Read(); err != nil {
		log.Printf("telemetry: failed to read sensor: %v", err)
		r.Valid = false
	}
	r.Temperature = p.sensor.Temperature()
	r.Humidity = p.sensor.Humidity()
	log.Printf("telemetry: temperature %.2f °C, humidity %.2f %%", r.Temperature, r.Humidity)
	p.tracker.RecordReading(r)

	p.publish(logic.KeyTemperature, r.Temperature)
	p.publish(logic.KeyHumidity, logic.RoundHumidity(r.Humidity))

	p.redraw(r)
	return r
}

func (p *Publisher) publish(key string, value float64) {
	err := p.sink.PublishTelemetry(key, value)
	p.tracker.RecordPublish(err == nil)
	if err != nil {
		log.Printf("telemetry: %s not sent: %v", key, err)
	}
}

func (p *Publisher) redraw(r logic.Reading) {
	if err := p.display.Clear(); err != nil {
		log.Printf("telemetry: display: %v", err)
		return
	}
	for _, line := range logic.DisplayLines(r, p.labels) {
		if err := p.display.Println(line); err != nil {
			log.Printf("telemetry: display: %v", err)
			return
		}
	}
}
