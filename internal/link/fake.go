package link

import (
	"context"
	"sync"

	"github.com/sweeney/env-sensor/internal/logic"
)

// FakeDriver is a scripted test double. Safe for concurrent use.
type FakeDriver struct {
	mu sync.Mutex

	// PollsToConnect is how many Status calls after Begin report
	// Disconnected before the fake reports Connected.
	PollsToConnect int

	// BeginError, if set, is returned by Begin and association never starts.
	BeginError error

	// Network is returned by the Info methods.
	Network logic.NetworkInfo

	connected   bool
	associating bool
	pending     int

	beginCalls      int
	statusCalls     int
	disconnectCalls int
}

// NewFakeDriver creates a disconnected FakeDriver.
func NewFakeDriver() *FakeDriver {
	return &FakeDriver{}
}

// Begin starts scripted association.
func (f *FakeDriver) Begin(_ context.Context, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.beginCalls++
	if f.BeginError != nil {
		return f.BeginError
	}
	f.associating = true
	f.pending = f.PollsToConnect
	if f.pending == 0 {
		f.connected = true
		f.associating = false
	}
	return nil
}

// Status reports the scripted link state.
func (f *FakeDriver) Status() logic.LinkState {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	if f.associating {
		if f.pending == 0 {
			f.connected = true
			f.associating = false
		} else {
			f.pending--
		}
	}
	if f.connected {
		return logic.LinkConnected
	}
	return logic.LinkDisconnected
}

// Disconnect drops the link.
func (f *FakeDriver) Disconnect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnectCalls++
	f.connected = false
	f.associating = false
	return nil
}

// SetConnected forces the link state, simulating the access point
// appearing or vanishing.
func (f *FakeDriver) SetConnected(up bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = up
	f.associating = false
}

// BeginCalls returns the number of Begin calls.
func (f *FakeDriver) BeginCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.beginCalls
}

// StatusCalls returns the number of Status calls.
func (f *FakeDriver) StatusCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statusCalls
}

// DisconnectCalls returns the number of Disconnect calls.
func (f *FakeDriver) DisconnectCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disconnectCalls
}

func (f *FakeDriver) LocalAddress() string { return f.info().LocalAddress }
func (f *FakeDriver) MACAddress() string   { return f.info().MACAddress }
func (f *FakeDriver) SignalStrength() int  { return f.info().SignalStrength }
func (f *FakeDriver) Channel() int         { return f.info().Channel }
func (f *FakeDriver) BSSID() string        { return f.info().BSSID }
func (f *FakeDriver) SSID() string         { return f.info().SSID }

func (f *FakeDriver) info() logic.NetworkInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Network
}
