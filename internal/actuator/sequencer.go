// Package actuator runs the output sequence on the two GPIO lines.
// It has no dependency on the network or the session.
package actuator

import (
	"context"
	"errors"
	"log"

	"github.com/benbjohnson/clock"

	"github.com/sweeney/env-sensor/internal/gpio"
	"github.com/sweeney/env-sensor/internal/logic"
	"github.com/sweeney/env-sensor/internal/status"
)

// Config configures a Sequencer.
type Config struct {
	Phases  []logic.Phase // nil uses logic.DefaultPhases
	Clock   clock.Clock   // nil uses the wall clock
	Tracker *status.Tracker
}

// Sequencer is the only writer of the output lines while it runs.
type Sequencer struct {
	out     gpio.Writer
	phases  []logic.Phase
	clock   clock.Clock
	tracker *status.Tracker
}

// New creates a Sequencer driving out.
func New(out gpio.Writer, cfg Config) *Sequencer {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}
	phases := cfg.Phases
	if phases == nil {
		phases = logic.DefaultPhases
	}
	return &Sequencer{
		out:     out,
		phases:  phases,
		clock:   clk,
		tracker: cfg.Tracker,
	}
}

// Run cycles through the phases until ctx is done, then drives both
// outputs low. A failed write is logged and the phase is held anyway.
func (s *Sequencer) Run(ctx context.Context) error {
	if len(s.phases) == 0 {
		return errors.New("actuator: empty phase table")
	}
	defer s.off()

	cycle := logic.NewPhaseCycle(s.phases)
	for {
		_, ph := cycle.Next()
		if err := s.out.Set(ph.A, ph.B); err != nil {
			log.Printf("actuator: set %s: %v", ph.Label, err)
		}
		log.Printf("actuator: %s light on", ph.Label)
		s.tracker.SetPhase(ph.Label)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.clock.After(ph.Hold):
		}
	}
}

func (s *Sequencer) off() {
	if err := s.out.Set(false, false); err != nil {
		log.Printf("actuator: switch off: %v", err)
	}
	s.tracker.SetPhase("")
}
