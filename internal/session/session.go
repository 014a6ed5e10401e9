// Package session keeps the telemetry platform session alive.
// The Keeper is the only writer of SessionState; it reconnects on a fixed
// retry cadence while the network link is up and publishes the device
// attributes once per established session.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/sweeney/env-sensor/internal/link"
	"github.com/sweeney/env-sensor/internal/logic"
	"github.com/sweeney/env-sensor/internal/mqtt"
	"github.com/sweeney/env-sensor/internal/status"
)

// ErrNotConnected is returned by publishes attempted without a session.
// Callers drop the value; it is not buffered.
var ErrNotConnected = errors.New("session: not connected")

// MethodSetValue is the RPC method echoed back as the "value" attribute.
const MethodSetValue = "setValue"

// Config configures a Keeper.
type Config struct {
	Server  string
	Port    int
	Token   string
	Retry   time.Duration // tick interval
	Clock   clock.Clock   // nil uses the wall clock
	Tracker *status.Tracker
}

// Keeper owns SessionState.
type Keeper struct {
	client  mqtt.Client
	link    link.Status
	info    link.Info
	server  string
	port    int
	token   string
	retry   time.Duration
	clock   clock.Clock
	tracker *status.Tracker
	state   atomic.Int32
}

// New creates a Keeper in the Disconnected state. linkStatus gates connect
// attempts; info supplies the attribute metadata.
func New(client mqtt.Client, linkStatus link.Status, info link.Info, cfg Config) *Keeper {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Keeper{
		client:  client,
		link:    linkStatus,
		info:    info,
		server:  cfg.Server,
		port:    cfg.Port,
		token:   cfg.Token,
		retry:   cfg.Retry,
		clock:   clk,
		tracker: cfg.Tracker,
	}
}

// State returns the current session state. Safe for concurrent use.
func (k *Keeper) State() logic.SessionState {
	return logic.SessionState(k.state.Load())
}

func (k *Keeper) setState(s logic.SessionState) {
	k.state.Store(int32(s))
	k.tracker.SetSession(s)
}

// Run ticks every Retry interval until ctx is done, then closes the session.
// The first tick happens one interval after Run starts.
func (k *Keeper) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			if err := k.Close(); err != nil {
				log.Printf("%v", err)
			}
			return ctx.Err()
		case <-k.clock.After(k.retry):
		}
		k.Tick()
	}
}

// Tick performs one keeper step. It is called only from Run, or directly by
// tests that drive the keeper synchronously.
func (k *Keeper) Tick() {
	ls := k.link.State()
	if k.State() == logic.SessionConnected {
		switch {
		case ls != logic.LinkConnected:
			// The client may not notice until its keepalive expires.
			log.Printf("session: link %s, dropping session to %s", ls, k.server)
			k.setState(logic.SessionDisconnected)
			if err := k.client.Disconnect(); err != nil {
				log.Printf("session: disconnect: %v", err)
			}
			return
		case k.client.Connected():
			return
		default:
			log.Printf("session: connection to %s lost", k.server)
			k.setState(logic.SessionDisconnected)
		}
	}

	if ls != logic.LinkConnected {
		log.Printf("session: link %s, not connecting", ls)
		return
	}

	log.Printf("session: connecting to %s:%d", k.server, k.port)
	if err := k.client.Connect(k.server, k.token, k.port); err != nil {
		log.Printf("session: failed to connect to %s, retrying in %v: %v", k.server, k.retry, err)
		return
	}
	k.setState(logic.SessionConnected)
	log.Printf("session: connected to %s", k.server)

	k.publishAttributes()
	if err := k.client.SubscribeRPC(k.handleRPC); err != nil {
		log.Printf("session: rpc subscribe: %v", err)
	}
}

func (k *Keeper) publishAttributes() {
	info := link.ReadInfo(k.info)
	for _, attr := range logic.DeviceAttributes(info) {
		if err := k.client.SendAttribute(attr.Key, attr.Value); err != nil {
			log.Printf("session: attribute %s: %v", attr.Key, err)
		}
	}
	k.tracker.SetNetwork(info)
}

func (k *Keeper) handleRPC(req mqtt.RPCRequest) {
	if req.Method != MethodSetValue {
		log.Printf("session: ignoring rpc %q", req.Method)
		return
	}
	var value any
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &value); err != nil {
			log.Printf("session: rpc %s params: %v", req.Method, err)
			return
		}
	}
	log.Printf("session: rpc %s(%v)", req.Method, value)
	if err := k.PublishAttribute("value", value); err != nil {
		log.Printf("session: rpc reply: %v", err)
	}
}

// PublishTelemetry sends one telemetry value. It returns ErrNotConnected
// without side effects when there is no session.
func (k *Keeper) PublishTelemetry(key string, value any) error {
	if !k.connected() {
		return ErrNotConnected
	}
	if err := k.client.SendTelemetry(key, value); err != nil {
		return fmt.Errorf("publish %s: %w", key, err)
	}
	return nil
}

// PublishAttribute sends one client attribute. It returns ErrNotConnected
// without side effects when there is no session.
func (k *Keeper) PublishAttribute(key string, value any) error {
	if !k.connected() {
		return ErrNotConnected
	}
	if err := k.client.SendAttribute(key, value); err != nil {
		return fmt.Errorf("publish attribute %s: %w", key, err)
	}
	return nil
}

func (k *Keeper) connected() bool {
	return k.State() == logic.SessionConnected && k.client.Connected()
}

// Close disconnects an open session.
func (k *Keeper) Close() error {
	if k.State() != logic.SessionConnected {
		return nil
	}
	k.setState(logic.SessionDisconnected)
	if err := k.client.Disconnect(); err != nil {
		return fmt.Errorf("session: disconnect: %w", err)
	}
	log.Printf("session: disconnected from %s", k.server)
	return nil
}
