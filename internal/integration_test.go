package internal

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"periph.io/x/conn/v3/i2c/i2ctest"

	"github.com/sweeney/env-sensor/internal/bus"
	"github.com/sweeney/env-sensor/internal/display"
	"github.com/sweeney/env-sensor/internal/link"
	"github.com/sweeney/env-sensor/internal/logic"
	"github.com/sweeney/env-sensor/internal/mqtt"
	"github.com/sweeney/env-sensor/internal/sensor"
	"github.com/sweeney/env-sensor/internal/session"
	"github.com/sweeney/env-sensor/internal/status"
	"github.com/sweeney/env-sensor/internal/telemetry"
)

var (
	start = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	trigger = i2ctest.IO{Addr: sensor.DefaultAddr, W: []byte{0xAC, 0x33, 0x00}}
	// 25.0 °C, 50.0 %RH
	frame = i2ctest.IO{Addr: sensor.DefaultAddr, R: []byte{0x1C, 0x80, 0x00, 0x06, 0x00, 0x00, 0x4E}}
)

// TestIntegrationSampleToPlatform drives the DHT20 driver over a recorded
// I2C bus through the publisher and the session keeper into a fake broker.
func TestIntegrationSampleToPlatform(t *testing.T) {
	pb := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: sensor.DefaultAddr, R: []byte{0x18}}, // calibrated
			trigger, frame,
			trigger, frame,
			trigger, frame,
		},
		DontPanic: true,
	}
	sensorBus := bus.New(pb)
	defer sensorBus.Close()

	lcdBus := &i2ctest.Record{}
	lcd := display.NewLCD(lcdBus, 0x21, 16, 2)
	if err := lcd.Init(); err != nil {
		t.Fatalf("lcd init: %v", err)
	}

	dht := sensor.NewDHT20(sensorBus, sensor.DefaultAddr)
	if err := dht.Begin(); err != nil {
		t.Fatalf("sensor begin: %v", err)
	}

	drv := link.NewFakeDriver()
	drv.Network = logic.NetworkInfo{MACAddress: "B8:27:EB:00:00:01", LocalAddress: "10.0.0.7", SSID: "lab"}
	if err := drv.Begin(context.Background(), "lab", "secret"); err != nil {
		t.Fatalf("link begin: %v", err)
	}

	tracker := status.NewTracker(start, status.Config{TelemetryMs: 10000})
	client := mqtt.NewFakeClient()
	keeper := session.New(client, link.DriverStatus{Driver: drv}, drv, session.Config{
		Server:  "app.coreiot.io",
		Port:    1883,
		Token:   "tok",
		Tracker: tracker,
	})
	pub := telemetry.New(dht, keeper, lcd, telemetry.Config{
		Labels:  logic.Labels{Temperature: "Temp", Humidity: "Hum"},
		Tracker: tracker,
	})

	keeper.Tick()
	if keeper.State() != logic.SessionConnected {
		t.Fatalf("session: got %v, want CONNECTED", keeper.State())
	}
	if got := len(client.Attributes()); got != 6 {
		t.Fatalf("attributes after connect: got %d, want 6", got)
	}

	// Cycle 1: delivered
	r := pub.Cycle()
	if !r.Valid || r.Temperature != 25.0 || r.Humidity != 50.0 {
		t.Fatalf("reading: got %+v", r)
	}
	tel := client.Telemetry()
	if len(tel) != 2 {
		t.Fatalf("telemetry: got %d messages, want 2", len(tel))
	}
	if tel[0].Key != logic.KeyTemperature || tel[1].Key != logic.KeyHumidity {
		t.Errorf("telemetry keys: got %s, %s", tel[0].Key, tel[1].Key)
	}

	// Cycle 2: broker gone, both values dropped
	client.Drop()
	if r := pub.Cycle(); !r.Valid {
		t.Errorf("sampling must continue while the session is down, got %+v", r)
	}
	if got := len(client.Telemetry()); got != 2 {
		t.Errorf("telemetry while disconnected: got %d, want 2", got)
	}

	// Keeper notices and reconnects on its next tick
	keeper.Tick()
	if client.Connects() != 2 {
		t.Errorf("Connects: got %d, want 2", client.Connects())
	}
	if got := len(client.Attributes()); got != 12 {
		t.Errorf("attributes after reconnect: got %d, want 12", got)
	}

	// Cycle 3: delivered again
	pub.Cycle()
	if got := len(client.Telemetry()); got != 4 {
		t.Errorf("telemetry after reconnect: got %d, want 4", got)
	}

	if err := pb.Close(); err != nil {
		t.Errorf("unconsumed sensor ops: %v", err)
	}
	if len(lcdBus.Ops) == 0 {
		t.Error("expected display traffic")
	}
	for i, op := range lcdBus.Ops {
		if op.Addr != 0x21 {
			t.Fatalf("lcd op %d: addr 0x%02x, want 0x21", i, op.Addr)
		}
	}

	var parsed status.StatusJSON
	if err := json.Unmarshal(status.FormatJSON(tracker.Snapshot()), &parsed); err != nil {
		t.Fatalf("status JSON: %v", err)
	}
	c := parsed.Status.Counts
	if c.Readings != 3 || c.SensorFailures != 0 {
		t.Errorf("readings: got %d (failures %d), want 3 (0)", c.Readings, c.SensorFailures)
	}
	if c.Published != 4 || c.Dropped != 2 {
		t.Errorf("publish counts: got %d/%d, want 4/2", c.Published, c.Dropped)
	}
	if c.SessionConnects != 2 {
		t.Errorf("SessionConnects: got %d, want 2", c.SessionConnects)
	}
	if parsed.Status.Network == nil || parsed.Status.Network.IP != "10.0.0.7" {
		t.Errorf("network: got %+v", parsed.Status.Network)
	}
}

// TestIntegrationSensorFailure checks that a corrupted frame still yields a
// stale reading that is published and shown.
func TestIntegrationSensorFailure(t *testing.T) {
	corrupt := i2ctest.IO{Addr: sensor.DefaultAddr, R: []byte{0x1C, 0x80, 0x00, 0x06, 0x00, 0x00, 0x00}}
	pb := &i2ctest.Playback{Ops: []i2ctest.IO{trigger, corrupt}, DontPanic: true}

	dht := sensor.NewDHT20(pb, sensor.DefaultAddr)
	client := mqtt.NewFakeClient()
	if err := client.Connect("app.coreiot.io", "tok", 1883); err != nil {
		t.Fatalf("connect: %v", err)
	}
	drv := link.NewFakeDriver()
	_ = drv.Begin(context.Background(), "lab", "")
	keeper := session.New(client, link.DriverStatus{Driver: drv}, drv, session.Config{Server: "app.coreiot.io", Port: 1883, Token: "tok"})
	keeper.Tick()

	lcd := display.NewFakeDisplay()
	tracker := status.NewTracker(start, status.Config{})
	pub := telemetry.New(dht, keeper, lcd, telemetry.Config{
		Labels:  logic.Labels{Temperature: "T", Humidity: "H"},
		Tracker: tracker,
	})

	r := pub.Cycle()
	if r.Valid {
		t.Fatalf("expected invalid reading, got %+v", r)
	}
	if got := len(client.Telemetry()); got != 2 {
		t.Errorf("telemetry: got %d, want 2 (stale values are still published)", got)
	}
	if got := len(lcd.Screen()); got != 2 {
		t.Errorf("display lines: got %d, want 2", got)
	}
	if snap := tracker.Snapshot(); snap.Counts.SensorFailures != 1 {
		t.Errorf("SensorFailures: got %d, want 1", snap.Counts.SensorFailures)
	}
}
