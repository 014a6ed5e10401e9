// Package status provides a thread-safe status tracker for the env-sensor daemon.
// Each task writes only its own fields; the HTTP server reads snapshots.
// All methods are safe to call on a nil *Tracker and do nothing.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/env-sensor/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	TelemetryMs    int64
	LinkCheckMs    int64
	SessionRetryMs int64
	Server         string
	Port           int
	SSID           string
	HTTPAddr       string
	Tasks          []string
}

// Counts are monotonically increasing event counters since startup.
type Counts struct {
	Readings        int
	SensorFailures  int
	Published       int
	Dropped         int
	SessionConnects int
	LinkDrops       int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	Link      logic.LinkState
	Session   logic.SessionState
	Reading   logic.Reading
	HasRead   bool
	Phase     string
	Counts    Counts
	Network   *logic.NetworkInfo
	StartTime time.Time
	Now       time.Time
	Config    Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// SetLink records the link state. Called by the link supervisor.
func (t *Tracker) SetLink(s logic.LinkState) {
	if t == nil {
		return
	}
	t.mu.Lock()
	if t.snap.Link == logic.LinkConnected && s != logic.LinkConnected {
		t.snap.Counts.LinkDrops++
	}
	t.snap.Link = s
	t.mu.Unlock()
}

// SetSession records the session state. Called by the session keeper.
func (t *Tracker) SetSession(s logic.SessionState) {
	if t == nil {
		return
	}
	t.mu.Lock()
	if t.snap.Session != logic.SessionConnected && s == logic.SessionConnected {
		t.snap.Counts.SessionConnects++
	}
	t.snap.Session = s
	t.mu.Unlock()
}

// SetNetwork records the link metadata last published as attributes.
func (t *Tracker) SetNetwork(info logic.NetworkInfo) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.snap.Network = &info
	t.mu.Unlock()
}

// RecordReading stores the latest sensor reading. Called by the telemetry publisher.
func (t *Tracker) RecordReading(r logic.Reading) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.snap.Reading = r
	t.snap.HasRead = true
	t.snap.Counts.Readings++
	if !r.Valid {
		t.snap.Counts.SensorFailures++
	}
	t.mu.Unlock()
}

// RecordPublish counts a telemetry publish outcome.
func (t *Tracker) RecordPublish(delivered bool) {
	if t == nil {
		return
	}
	t.mu.Lock()
	if delivered {
		t.snap.Counts.Published++
	} else {
		t.snap.Counts.Dropped++
	}
	t.mu.Unlock()
}

// SetPhase records the active actuator phase label. Called by the sequencer.
func (t *Tracker) SetPhase(label string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.snap.Phase = label
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	if t == nil {
		return Snapshot{Now: time.Now()}
	}
	t.mu.RLock()
	s := t.snap
	if s.Network != nil {
		n := *s.Network
		s.Network = &n
	}
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
