package sensor

import (
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/i2c"
)

// DefaultAddr is the fixed DHT20 bus address.
const DefaultAddr = 0x38

const (
	statusBusy       = 0x80
	statusCalibrated = 0x18

	measureDelay = 80 * time.Millisecond
	powerOnDelay = 100 * time.Millisecond
)

var cmdTrigger = []byte{0xAC, 0x33, 0x00}

// calibration registers rewritten when the sensor reports an uncalibrated status
var initRegisters = []byte{0x1B, 0x1C, 0x1E}

// DHT20 is an I2C DHT20 driver. Failed reads keep the previous values.
type DHT20 struct {
	dev   *i2c.Dev
	sleep func(time.Duration)

	mu          sync.Mutex
	temperature float64
	humidity    float64
}

// NewDHT20 creates a driver for the sensor at addr on bus.
func NewDHT20(bus i2c.Bus, addr uint16) *DHT20 {
	return &DHT20{
		dev:   &i2c.Dev{Bus: bus, Addr: addr},
		sleep: time.Sleep,
	}
}

// String implements fmt.Stringer.
func (d *DHT20) String() string {
	return fmt.Sprintf("DHT20{%s}", d.dev)
}

// Begin checks the calibration status and restores it if needed.
func (d *DHT20) Begin() error {
	d.sleep(powerOnDelay)
	st, err := d.status()
	if err != nil {
		return fmt.Errorf("sensor: read status: %w", err)
	}
	if st&statusCalibrated == statusCalibrated {
		return nil
	}
	for _, reg := range initRegisters {
		if err := d.resetRegister(reg); err != nil {
			return fmt.Errorf("sensor: reset register 0x%02X: %w", reg, err)
		}
	}
	if st, err = d.status(); err != nil {
		return fmt.Errorf("sensor: read status: %w", err)
	}
	if st&statusCalibrated != statusCalibrated {
		return ErrNotCalibrated
	}
	return nil
}

func (d *DHT20) status() (byte, error) {
	var b [1]byte
	if err := d.dev.Tx(nil, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *DHT20) resetRegister(reg byte) error {
	if err := d.dev.Tx([]byte{reg, 0x00, 0x00}, nil); err != nil {
		return err
	}
	d.sleep(5 * time.Millisecond)
	var v [3]byte
	if err := d.dev.Tx(nil, v[:]); err != nil {
		return err
	}
	d.sleep(10 * time.Millisecond)
	return d.dev.Tx([]byte{0xB0 | reg, v[1], v[2]}, nil)
}

// Read triggers a measurement and waits for it.
func (d *DHT20) Read() error {
	if err := d.dev.Tx(cmdTrigger, nil); err != nil {
		return fmt.Errorf("sensor: trigger: %w", err)
	}
	d.sleep(measureDelay)

	var data [7]byte
	if err := d.dev.Tx(nil, data[:]); err != nil {
		return fmt.Errorf("sensor: read: %w", err)
	}
	if data[0]&statusBusy != 0 {
		return ErrBusy
	}
	if crc8(data[:6]) != data[6] {
		return ErrChecksum
	}

	t, h := convert(data)
	d.mu.Lock()
	d.temperature = t
	d.humidity = h
	d.mu.Unlock()
	return nil
}

// Temperature returns the last measured temperature in °C.
func (d *DHT20) Temperature() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.temperature
}

// Humidity returns the last measured relative humidity in %.
func (d *DHT20) Humidity() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.humidity
}

// convert decodes the two 20-bit raw values of a measurement frame.
func convert(data [7]byte) (temperature, humidity float64) {
	rawH := uint32(data[1])<<12 | uint32(data[2])<<4 | uint32(data[3])>>4
	rawT := uint32(data[3]&0x0F)<<16 | uint32(data[4])<<8 | uint32(data[5])
	humidity = float64(rawH) / (1 << 20) * 100
	temperature = float64(rawT)/(1<<20)*200 - 50
	return temperature, humidity
}

// crc8 is CRC-8 with polynomial 0x31 and initial value 0xFF.
func crc8(data []byte) byte {
	crc := byte(0xFF)
	for _, b := range data {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ 0x31
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
