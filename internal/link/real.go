//go:build linux

package link

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/sweeney/env-sensor/internal/logic"
)

const (
	wirelessInfoPath = "/proc/net/wireless"
	sysClassNet      = "/sys/class/net"
	commandTimeout   = 30 * time.Second
)

// RealDriver manages a Wi-Fi interface through NetworkManager (nmcli) and
// reads link metadata from iw, procfs and the kernel's interface table.
type RealDriver struct {
	iface string

	// paths and command runner are overridable for tests
	wirelessPath string
	sysNet       string
	run          func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewRealDriver creates a driver for the named interface.
func NewRealDriver(iface string) (*RealDriver, error) {
	if _, err := exec.LookPath("nmcli"); err != nil {
		return nil, fmt.Errorf("link: nmcli not found: %w", err)
	}
	return &RealDriver{
		iface:        iface,
		wirelessPath: wirelessInfoPath,
		sysNet:       sysClassNet,
		run:          runCommand,
	}, nil
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Begin asks NetworkManager to associate with ssid.
func (d *RealDriver) Begin(ctx context.Context, ssid, password string) error {
	args := []string{"device", "wifi", "connect", ssid, "ifname", d.iface}
	if password != "" {
		args = append(args, "password", password)
	}
	out, err := d.run(ctx, "nmcli", args...)
	if err != nil {
		return fmt.Errorf("nmcli connect %s: %w: %s", ssid, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Status reports Connected when the interface is operationally up and has
// an IPv4 address.
func (d *RealDriver) Status() logic.LinkState {
	state, err := os.ReadFile(filepath.Join(d.sysNet, d.iface, "operstate"))
	if err != nil || strings.TrimSpace(string(state)) != "up" {
		return logic.LinkDisconnected
	}
	if d.LocalAddress() == "" {
		return logic.LinkConnecting
	}
	return logic.LinkConnected
}

// Disconnect drops the association.
func (d *RealDriver) Disconnect() error {
	out, err := d.run(context.Background(), "nmcli", "device", "disconnect", d.iface)
	if err != nil {
		return fmt.Errorf("nmcli disconnect %s: %w: %s", d.iface, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// LocalAddress returns the first IPv4 address on the interface.
func (d *RealDriver) LocalAddress() string {
	ifi, err := net.InterfaceByName(d.iface)
	if err != nil {
		return ""
	}
	addrs, err := ifi.Addrs()
	if err != nil {
		return ""
	}
	for _, a := range addrs {
		if ipn, ok := a.(*net.IPNet); ok {
			if ip4 := ipn.IP.To4(); ip4 != nil {
				return ip4.String()
			}
		}
	}
	return ""
}

// MACAddress returns the interface hardware address in upper case.
func (d *RealDriver) MACAddress() string {
	ifi, err := net.InterfaceByName(d.iface)
	if err != nil {
		return ""
	}
	return strings.ToUpper(ifi.HardwareAddr.String())
}

// SignalStrength returns the signal level in dBm, or 0 if unavailable.
func (d *RealDriver) SignalStrength() int {
	dump, err := os.ReadFile(filepath.Clean(d.wirelessPath))
	if err != nil {
		return 0
	}
	level, err := parseWirelessLevel(string(dump), d.iface)
	if err != nil {
		return 0
	}
	return level
}

// Channel returns the current channel number, or 0 if unavailable.
func (d *RealDriver) Channel() int {
	return frequencyToChannel(d.iwLink().Frequency)
}

// BSSID returns the access point's hardware address.
func (d *RealDriver) BSSID() string {
	return d.iwLink().BSSID
}

// SSID returns the associated network name.
func (d *RealDriver) SSID() string {
	return d.iwLink().SSID
}

// NetworkInfo reads every attribute with a single iw call so BSSID, SSID
// and channel describe the same association.
func (d *RealDriver) NetworkInfo() logic.NetworkInfo {
	iw := d.iwLink()
	return logic.NetworkInfo{
		MACAddress:     d.MACAddress(),
		SignalStrength: d.SignalStrength(),
		Channel:        frequencyToChannel(iw.Frequency),
		BSSID:          iw.BSSID,
		LocalAddress:   d.LocalAddress(),
		SSID:           iw.SSID,
	}
}

func (d *RealDriver) iwLink() iwLink {
	out, err := d.run(context.Background(), "iw", "dev", d.iface, "link")
	if err != nil {
		return iwLink{}
	}
	return parseIWLink(string(out))
}
