package link

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/sweeney/env-sensor/internal/logic"
	"github.com/sweeney/env-sensor/internal/status"
)

// SupervisorConfig configures a Supervisor.
type SupervisorConfig struct {
	SSID     string
	Password string
	Poll     time.Duration // link poll while waiting for association
	Check    time.Duration // re-check interval once connected
	Clock    clock.Clock   // nil uses the wall clock
	Tracker  *status.Tracker
}

// Supervisor owns LinkState. It is the only writer; other tasks read it
// through State.
type Supervisor struct {
	driver   Driver
	ssid     string
	password string
	poll     time.Duration
	check    time.Duration
	clock    clock.Clock
	tracker  *status.Tracker
	state    atomic.Int32
}

// NewSupervisor creates a Supervisor in the Disconnected state.
func NewSupervisor(driver Driver, cfg SupervisorConfig) *Supervisor {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Supervisor{
		driver:   driver,
		ssid:     cfg.SSID,
		password: cfg.Password,
		poll:     cfg.Poll,
		check:    cfg.Check,
		clock:    clk,
		tracker:  cfg.Tracker,
	}
}

// State returns the current link state. Safe for concurrent use.
func (s *Supervisor) State() logic.LinkState {
	return logic.LinkState(s.state.Load())
}

func (s *Supervisor) setState(st logic.LinkState) {
	s.state.Store(int32(st))
	s.tracker.SetLink(st)
}

// EnsureConnected blocks until the link is Connected or ctx is done.
// If the link is not already up it starts association first, then polls
// the driver every Poll interval, logging each wait.
func (s *Supervisor) EnsureConnected(ctx context.Context) error {
	if s.driver.Status() == logic.LinkConnected {
		s.setState(logic.LinkConnected)
		return nil
	}

	s.setState(logic.LinkConnecting)
	log.Printf("link: connecting to %q", s.ssid)
	if err := s.driver.Begin(ctx, s.ssid, s.password); err != nil {
		// Not fatal: the driver may still associate on its own.
		log.Printf("link: begin: %v", err)
	}

	waits := 0
	for s.driver.Status() != logic.LinkConnected {
		waits++
		log.Printf("link: waiting for association (%v elapsed)", time.Duration(waits)*s.poll)
		select {
		case <-ctx.Done():
			s.setState(logic.LinkDisconnected)
			return ctx.Err()
		case <-s.clock.After(s.poll):
		}
	}

	s.setState(logic.LinkConnected)
	log.Printf("link: connected, local address %s", s.driver.LocalAddress())
	return nil
}

// Maintain keeps the link up until ctx is done. Any observed drop is
// treated as unexpected: the driver is disconnected cleanly and association
// starts again. There is no backoff and no attempt limit.
func (s *Supervisor) Maintain(ctx context.Context) error {
	if err := s.EnsureConnected(ctx); err != nil {
		return err
	}

	for {
		if s.driver.Status() != logic.LinkConnected {
			log.Printf("link: connection lost, reconnecting")
			s.setState(logic.LinkDisconnected)
			if err := s.driver.Disconnect(); err != nil {
				log.Printf("link: disconnect: %v", err)
			}
			if err := s.EnsureConnected(ctx); err != nil {
				return err
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.clock.After(s.check):
		}
	}
}
