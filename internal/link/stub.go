//go:build !linux

package link

import (
	"context"
	"errors"

	"github.com/sweeney/env-sensor/internal/logic"
)

// RealDriver is not available on non-Linux platforms.
type RealDriver struct{}

// NewRealDriver returns an error on non-Linux platforms.
func NewRealDriver(iface string) (*RealDriver, error) {
	return nil, errors.New("link: not supported on this platform (requires Linux)")
}

func (d *RealDriver) Begin(ctx context.Context, ssid, password string) error {
	return errors.New("link: not supported")
}

func (d *RealDriver) Status() logic.LinkState { return logic.LinkDisconnected }
func (d *RealDriver) Disconnect() error       { return nil }
func (d *RealDriver) LocalAddress() string    { return "" }
func (d *RealDriver) MACAddress() string      { return "" }
func (d *RealDriver) SignalStrength() int     { return 0 }
func (d *RealDriver) Channel() int            { return 0 }
func (d *RealDriver) BSSID() string           { return "" }
func (d *RealDriver) SSID() string            { return "" }
