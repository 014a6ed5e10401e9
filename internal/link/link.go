// Package link supervises the device's network association.
// The real driver shells out to NetworkManager and iw on Linux.
// The fake driver allows testing without a radio.
package link

import (
	"context"

	"github.com/sweeney/env-sensor/internal/logic"
	"github.com/sweeney/env-sensor/internal/status"
)

// Info exposes the link metadata published as device attributes.
type Info interface {
	LocalAddress() string
	MACAddress() string
	SignalStrength() int
	Channel() int
	BSSID() string
	SSID() string
}

// Driver associates with a network and reports link state.
// All calls block the calling task only.
type Driver interface {
	// Begin starts association with the given network.
	Begin(ctx context.Context, ssid, password string) error

	// Status returns the driver's current view of the link.
	Status() logic.LinkState

	// Disconnect drops the current association.
	Disconnect() error

	Info
}

// Status reports the link state without mutating it.
type Status interface {
	State() logic.LinkState
}

// DriverStatus reports the driver's own status. It stands in for the
// supervisor when the link task is disabled and the OS keeps the link up.
// Each observed state is recorded on Tracker, which may be nil.
type DriverStatus struct {
	Driver  Driver
	Tracker *status.Tracker
}

// State returns the driver's current link state.
func (d DriverStatus) State() logic.LinkState {
	s := d.Driver.Status()
	d.Tracker.SetLink(s)
	return s
}

// Snapshotter is implemented by drivers that can read all link metadata
// in one consistent pass.
type Snapshotter interface {
	NetworkInfo() logic.NetworkInfo
}

// ReadInfo collects the attribute metadata from i, in one pass when i is a
// Snapshotter.
func ReadInfo(i Info) logic.NetworkInfo {
	if s, ok := i.(Snapshotter); ok {
		return s.NetworkInfo()
	}
	return logic.NetworkInfo{
		MACAddress:     i.MACAddress(),
		SignalStrength: i.SignalStrength(),
		Channel:        i.Channel(),
		BSSID:          i.BSSID(),
		LocalAddress:   i.LocalAddress(),
		SSID:           i.SSID(),
	}
}
