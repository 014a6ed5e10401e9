package status

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/env-sensor/internal/logic"
)

func TestNewTracker(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := Config{TelemetryMs: 10000, Server: "app.coreiot.io", Port: 1883, HTTPAddr: ":80"}
	tr := NewTracker(start, cfg)

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.Config.TelemetryMs != 10000 {
		t.Errorf("Config.TelemetryMs: got %d, want 10000", snap.Config.TelemetryMs)
	}
	if snap.Link != logic.LinkDisconnected {
		t.Errorf("Link: got %v, want DISCONNECTED", snap.Link)
	}
	if snap.Session != logic.SessionDisconnected {
		t.Errorf("Session: got %v, want DISCONNECTED", snap.Session)
	}
	if snap.HasRead {
		t.Error("expected HasRead=false initially")
	}
}

func TestSetLinkCountsDrops(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.SetLink(logic.LinkConnecting)
	tr.SetLink(logic.LinkConnected)
	tr.SetLink(logic.LinkDisconnected)
	tr.SetLink(logic.LinkConnecting)
	tr.SetLink(logic.LinkConnected)

	snap := tr.Snapshot()
	if snap.Link != logic.LinkConnected {
		t.Errorf("Link: got %v, want CONNECTED", snap.Link)
	}
	if snap.Counts.LinkDrops != 1 {
		t.Errorf("LinkDrops: got %d, want 1", snap.Counts.LinkDrops)
	}
}

func TestSetSessionCountsConnects(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.SetSession(logic.SessionConnected)
	tr.SetSession(logic.SessionConnected)
	tr.SetSession(logic.SessionDisconnected)
	tr.SetSession(logic.SessionConnected)

	if got := tr.Snapshot().Counts.SessionConnects; got != 2 {
		t.Errorf("SessionConnects: got %d, want 2", got)
	}
}

func TestRecordReading(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.RecordReading(logic.Reading{Temperature: 21.5, Humidity: 40.1, Valid: true})
	tr.RecordReading(logic.Reading{Temperature: 21.5, Humidity: 40.1, Valid: false})

	snap := tr.Snapshot()
	if !snap.HasRead {
		t.Fatal("expected HasRead=true")
	}
	if snap.Reading.Valid {
		t.Error("expected last reading to be invalid")
	}
	if snap.Counts.Readings != 2 {
		t.Errorf("Readings: got %d, want 2", snap.Counts.Readings)
	}
	if snap.Counts.SensorFailures != 1 {
		t.Errorf("SensorFailures: got %d, want 1", snap.Counts.SensorFailures)
	}
}

func TestRecordPublish(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.RecordPublish(true)
	tr.RecordPublish(true)
	tr.RecordPublish(false)

	snap := tr.Snapshot()
	if snap.Counts.Published != 2 {
		t.Errorf("Published: got %d, want 2", snap.Counts.Published)
	}
	if snap.Counts.Dropped != 1 {
		t.Errorf("Dropped: got %d, want 1", snap.Counts.Dropped)
	}
}

func TestNilTrackerIsNoop(t *testing.T) {
	var tr *Tracker

	tr.SetLink(logic.LinkConnected)
	tr.SetSession(logic.SessionConnected)
	tr.SetNetwork(logic.NetworkInfo{})
	tr.RecordReading(logic.Reading{})
	tr.RecordPublish(true)
	tr.SetPhase("Green")

	snap := tr.Snapshot()
	if snap.Now.IsZero() {
		t.Error("nil tracker snapshot should still carry Now")
	}
}

func TestSnapshotNetworkIsCopy(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	tr.SetNetwork(logic.NetworkInfo{LocalAddress: "192.168.1.42"})

	snap := tr.Snapshot()
	snap.Network.LocalAddress = "changed"

	if got := tr.Snapshot().Network.LocalAddress; got != "192.168.1.42" {
		t.Errorf("tracker network mutated through snapshot: %q", got)
	}
}

func TestSnapshotUptime(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		StartTime: start,
		Now:       start.Add(15 * time.Minute),
	}

	if snap.Uptime() != 15*time.Minute {
		t.Errorf("Uptime: got %v, want 15m", snap.Uptime())
	}
}

func TestFormatJSON(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Link:    logic.LinkConnected,
		Session: logic.SessionConnected,
		Phase:   "Yellow",
		Reading: logic.Reading{Temperature: 24.37, Humidity: 55.2, Valid: true, Time: start.Add(time.Minute)},
		HasRead: true,
		Counts:  Counts{Readings: 6, SensorFailures: 1, Published: 10, Dropped: 2, SessionConnects: 1},
		Network: &logic.NetworkInfo{
			MACAddress:     "B8:27:EB:00:00:01",
			SignalStrength: -55,
			Channel:        11,
			BSSID:          "AA:BB:CC:DD:EE:FF",
			LocalAddress:   "10.0.0.7",
			SSID:           "lab",
		},
		StartTime: start,
		Now:       start.Add(15 * time.Minute),
		Config:    Config{TelemetryMs: 10000, Server: "app.coreiot.io", Port: 1883, Tasks: []string{"telemetry"}},
	}

	var parsed StatusJSON
	if err := json.Unmarshal(FormatJSON(snap), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Status.Link != "CONNECTED" {
		t.Errorf("Link: got %q, want CONNECTED", parsed.Status.Link)
	}
	if parsed.Status.Session != "CONNECTED" {
		t.Errorf("Session: got %q, want CONNECTED", parsed.Status.Session)
	}
	if parsed.Status.Phase != "Yellow" {
		t.Errorf("Phase: got %q, want Yellow", parsed.Status.Phase)
	}
	if parsed.Status.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", parsed.Status.UptimeSeconds)
	}
	if parsed.Status.Reading == nil {
		t.Fatal("expected reading")
	}
	if parsed.Status.Reading.Temperature != 24.37 {
		t.Errorf("Reading.Temperature: got %v, want 24.37", parsed.Status.Reading.Temperature)
	}
	if parsed.Status.Reading.Timestamp != "2026-01-01T00:01:00Z" {
		t.Errorf("Reading.Timestamp: got %q", parsed.Status.Reading.Timestamp)
	}
	if parsed.Status.Counts.Dropped != 2 {
		t.Errorf("Counts.Dropped: got %d, want 2", parsed.Status.Counts.Dropped)
	}
	if parsed.Status.Network == nil || parsed.Status.Network.Channel != 11 {
		t.Errorf("Network: got %+v", parsed.Status.Network)
	}
	if len(parsed.Status.Config.Tasks) != 1 || parsed.Status.Config.Tasks[0] != "telemetry" {
		t.Errorf("Config.Tasks: got %v", parsed.Status.Config.Tasks)
	}
}

func TestFormatJSONOmitsEmpty(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC),
	}

	var raw map[string]map[string]any
	if err := json.Unmarshal(FormatJSON(snap), &raw); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	for _, key := range []string{"reading", "network", "phase"} {
		if _, ok := raw["status"][key]; ok {
			t.Errorf("expected %q to be omitted", key)
		}
	}
	if raw["status"]["link"] != "DISCONNECTED" {
		t.Errorf("link: got %v, want DISCONNECTED", raw["status"]["link"])
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(4)
		go func() {
			defer wg.Done()
			tr.SetLink(logic.LinkConnected)
		}()
		go func() {
			defer wg.Done()
			tr.RecordReading(logic.Reading{Valid: true})
		}()
		go func() {
			defer wg.Done()
			tr.SetPhase("Red")
		}()
		go func() {
			defer wg.Done()
			_ = tr.Snapshot()
		}()
	}
	wg.Wait()

	if got := tr.Snapshot().Counts.Readings; got != 50 {
		t.Errorf("Readings: got %d, want 50", got)
	}
}
