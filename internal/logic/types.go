// Package logic contains the pure domain model of the sensor node.
// This package has NO external dependencies (no GPIO, I2C, MQTT, OS, or time.Sleep).
// Durations are plain values; the task loops that consume them own the clock.
package logic

import (
	"fmt"
	"time"
)

// LinkState is the local network association status.
// Owned by the link supervisor; every other task only reads it.
type LinkState int32

const (
	LinkDisconnected LinkState = iota
	LinkConnecting
	LinkConnected
)

func (s LinkState) String() string {
	switch s {
	case LinkDisconnected:
		return "DISCONNECTED"
	case LinkConnecting:
		return "CONNECTING"
	case LinkConnected:
		return "CONNECTED"
	}
	return fmt.Sprintf("LinkState(%d)", int32(s))
}

// SessionState is the status of the platform session.
// Owned by the session keeper and mutated only inside its loop.
type SessionState int32

const (
	SessionDisconnected SessionState = iota
	SessionConnected
)

func (s SessionState) String() string {
	switch s {
	case SessionDisconnected:
		return "DISCONNECTED"
	case SessionConnected:
		return "CONNECTED"
	}
	return fmt.Sprintf("SessionState(%d)", int32(s))
}

// Reading is one sampling cycle's output. It is not retained across cycles
// by the publisher; Valid is false when the sensor read failed, in which case
// Temperature and Humidity carry whatever the driver last held.
type Reading struct {
	Temperature float64 // °C
	Humidity    float64 // %RH
	Valid       bool
	Time        time.Time
}

// Telemetry keys published for every reading.
const (
	KeyTemperature = "temperature"
	KeyHumidity    = "humidity"
)

// Attribute is a single device attribute key/value pair.
type Attribute struct {
	Key   string
	Value any
}
