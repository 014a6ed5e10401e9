// Package sensor reads temperature and humidity.
// The real driver talks to a DHT20 (AHT20 core) over I2C.
// The fake driver allows scripted readings in tests.
package sensor

import "errors"

// Sensor is a temperature/humidity sensor. Temperature and Humidity return
// the values of the last successful Read.
type Sensor interface {
	Begin() error
	Read() error
	Temperature() float64 // °C
	Humidity() float64    // %RH
}

// Read errors.
var (
	ErrBusy          = errors.New("sensor: measurement not ready")
	ErrChecksum      = errors.New("sensor: checksum mismatch")
	ErrNotCalibrated = errors.New("sensor: not calibrated")
)
