package device

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/env-sensor/internal/config"
	"github.com/sweeney/env-sensor/internal/display"
	"github.com/sweeney/env-sensor/internal/gpio"
	"github.com/sweeney/env-sensor/internal/link"
	"github.com/sweeney/env-sensor/internal/logic"
	"github.com/sweeney/env-sensor/internal/mqtt"
	"github.com/sweeney/env-sensor/internal/sensor"
	"github.com/sweeney/env-sensor/internal/status"
)

type fixture struct {
	cfg     config.Config
	mock    *clock.Mock
	display *display.FakeDisplay
	sensor  *sensor.FakeSensor
	link    *link.FakeDriver
	client  *mqtt.FakeClient
	outputs *gpio.FakeWriter
	tracker *status.Tracker
}

func newFixture(tasks ...string) *fixture {
	cfg := config.Default()
	cfg.Network.SSID = "lab"
	cfg.Platform.Token = "tok"
	cfg.Intervals.Telemetry = 2 * time.Second
	if len(tasks) > 0 {
		cfg.Tasks = tasks
	}
	drv := link.NewFakeDriver()
	drv.PollsToConnect = 2
	drv.Network = logic.NetworkInfo{SSID: "lab", LocalAddress: "10.0.0.7"}
	return &fixture{
		cfg:     cfg,
		mock:    clock.NewMock(),
		display: display.NewFakeDisplay(),
		sensor:  sensor.NewFakeSensor(sensor.FakeReading{Temperature: 22.4, Humidity: 45.56}),
		link:    drv,
		client:  mqtt.NewFakeClient(),
		outputs: gpio.NewFakeWriter(),
		tracker: status.NewTracker(time.Now(), status.Config{}),
	}
}

func (f *fixture) deps() Deps {
	return Deps{
		Display: f.display,
		Sensor:  f.sensor,
		Link:    f.link,
		Client:  f.client,
		Outputs: f.outputs,
		Clock:   f.mock,
		Tracker: f.tracker,
	}
}

// advanceUntil steps the mock clock until cond holds.
func advanceUntil(t *testing.T, mock *clock.Mock, step time.Duration, cond func() bool) {
	t.Helper()
	for i := 0; i < 1000; i++ {
		if cond() {
			return
		}
		mock.Add(step)
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached")
}

func TestNewInitialisesDisplayAndSensor(t *testing.T) {
	f := newFixture()
	rt, err := New(f.cfg, f.deps())
	require.NoError(t, err)

	assert.Equal(t, 1, f.display.Inits())
	assert.True(t, f.display.BacklightOn())
	assert.Equal(t, 1, f.display.Clears())
	assert.Equal(t, []string{"Hello!"}, f.display.Screen())
	assert.True(t, f.sensor.Begun())
	assert.Equal(t, []string{"link", "session", "telemetry"}, rt.Tasks())

	snap := f.tracker.Snapshot()
	assert.Equal(t, logic.LinkDisconnected, snap.Link)
	assert.Equal(t, logic.SessionDisconnected, snap.Session)
}

func TestNewSensorBeginFailureIsNotFatal(t *testing.T) {
	f := newFixture()
	f.sensor.BeginError = errors.New("no ack")

	_, err := New(f.cfg, f.deps())
	assert.NoError(t, err)
}

func TestNewActuatorNeedsOutputs(t *testing.T) {
	f := newFixture(config.TaskActuator)
	deps := f.deps()
	deps.Outputs = nil

	_, err := New(f.cfg, deps)
	assert.Error(t, err)
}

func TestRunsDefaultTasksEndToEnd(t *testing.T) {
	f := newFixture()
	rt, err := New(f.cfg, f.deps())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	rt.Start(ctx)

	advanceUntil(t, f.mock, 250*time.Millisecond, func() bool {
		return len(f.client.Telemetry()) >= 2
	})

	snap := f.tracker.Snapshot()
	assert.Equal(t, logic.LinkConnected, snap.Link)
	assert.Equal(t, logic.SessionConnected, snap.Session)
	assert.Len(t, f.client.Attributes(), 6)
	assert.Contains(t, f.client.Telemetry(), mqtt.KeyValue{Key: "humidity", Value: 45.6})
	want := []string{"Nhiệt độ: 22 °C", "Độ ẩm: 45.6 %"}
	assert.Eventually(t, func() bool { return assert.ObjectsAreEqual(want, f.display.Screen()) },
		time.Second, time.Millisecond)

	cancel()
	require.NoError(t, rt.Wait())
	assert.Empty(t, f.display.Screen(), "display cleared on shutdown")
	assert.False(t, f.client.Connected(), "session closed on shutdown")
	assert.True(t, f.outputs.Closed())
}

func TestTelemetryOnlyDropsPublishes(t *testing.T) {
	f := newFixture(config.TaskTelemetry)
	rt, err := New(f.cfg, f.deps())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	rt.Start(ctx)

	advanceUntil(t, f.mock, 250*time.Millisecond, func() bool {
		return f.tracker.Snapshot().Counts.Dropped >= 2
	})
	cancel()
	require.NoError(t, rt.Wait())

	assert.Equal(t, 0, f.link.BeginCalls(), "link task disabled")
	assert.Equal(t, 0, f.client.Connects(), "session task disabled")
	assert.Equal(t, 0, f.tracker.Snapshot().Counts.Published)
}

func TestLinkDropDoesNotStopSampling(t *testing.T) {
	f := newFixture()
	rt, err := New(f.cfg, f.deps())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rt.Start(ctx)

	advanceUntil(t, f.mock, 250*time.Millisecond, func() bool {
		return f.tracker.Snapshot().Session == logic.SessionConnected
	})

	f.link.SetConnected(false)
	f.client.Drop()
	readsAtDrop := f.sensor.Reads()

	advanceUntil(t, f.mock, 250*time.Millisecond, func() bool {
		return f.tracker.Snapshot().Counts.LinkDrops == 1 && f.sensor.Reads() >= readsAtDrop+2
	})

	// Link comes back by itself after the supervisor re-associates; the
	// keeper then reconnects and publishes the attributes again.
	advanceUntil(t, f.mock, 250*time.Millisecond, func() bool {
		return f.client.Connects() == 2 && f.tracker.Snapshot().Session == logic.SessionConnected
	})
	assert.Len(t, f.client.Attributes(), 12)
}

func TestUnmanagedLinkIsReported(t *testing.T) {
	f := newFixture(config.TaskSession, config.TaskTelemetry)
	f.link.SetConnected(true)
	rt, err := New(f.cfg, f.deps())
	require.NoError(t, err)
	assert.Equal(t, logic.LinkConnected, f.tracker.Snapshot().Link, "seeded from the driver")

	ctx, cancel := context.WithCancel(context.Background())
	rt.Start(ctx)

	advanceUntil(t, f.mock, 250*time.Millisecond, func() bool {
		return f.tracker.Snapshot().Session == logic.SessionConnected
	})

	f.link.SetConnected(false)
	advanceUntil(t, f.mock, 250*time.Millisecond, func() bool {
		snap := f.tracker.Snapshot()
		return snap.Link == logic.LinkDisconnected && snap.Session == logic.SessionDisconnected
	})
	cancel()
	require.NoError(t, rt.Wait())

	assert.Equal(t, 0, f.link.BeginCalls(), "link task disabled")
	assert.Equal(t, 1, f.tracker.Snapshot().Counts.LinkDrops)
}

func TestActuatorTask(t *testing.T) {
	f := newFixture(config.TaskActuator)
	rt, err := New(f.cfg, f.deps())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	rt.Start(ctx)

	advanceUntil(t, f.mock, 500*time.Millisecond, func() bool {
		return f.tracker.Snapshot().Phase == "Red"
	})
	cancel()
	require.NoError(t, rt.Wait())

	history := f.outputs.History()
	require.GreaterOrEqual(t, len(history), 3)
	assert.Equal(t, gpio.Levels{A: true}, history[0])
	assert.Equal(t, gpio.Levels{B: true}, history[1])
	assert.Equal(t, gpio.Levels{A: true, B: true}, history[2])
	assert.Equal(t, gpio.Levels{}, f.outputs.Current())
	assert.True(t, f.outputs.Closed())
}
