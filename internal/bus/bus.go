// Package bus shares one I2C bus between the sensor and display drivers.
package bus

import (
	"fmt"
	"io"
	"sync"

	"go.uber.org/multierr"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// Shared serialises transactions on an underlying bus. Each Tx is atomic
// with respect to other devices on the bus.
type Shared struct {
	mu      sync.Mutex
	bus     i2c.Bus
	closers []io.Closer
}

// New wraps b. If b implements io.Closer it is closed by Close.
func New(b i2c.Bus) *Shared {
	s := &Shared{bus: b}
	if c, ok := b.(io.Closer); ok {
		s.closers = append(s.closers, c)
	}
	return s
}

// OnClose registers c to be closed with the bus, in reverse registration order.
func (s *Shared) OnClose(c io.Closer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closers = append(s.closers, c)
}

// Tx implements i2c.Bus.
func (s *Shared) Tx(addr uint16, w, r []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bus == nil {
		return fmt.Errorf("i2c: bus closed")
	}
	return s.bus.Tx(addr, w, r)
}

// SetSpeed implements i2c.Bus.
func (s *Shared) SetSpeed(f physic.Frequency) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bus == nil {
		return fmt.Errorf("i2c: bus closed")
	}
	return s.bus.SetSpeed(f)
}

// String implements i2c.Bus.
func (s *Shared) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bus == nil {
		return "shared(closed)"
	}
	return "shared(" + s.bus.String() + ")"
}

// Dev returns a device handle at addr on the shared bus.
func (s *Shared) Dev(addr uint16) *i2c.Dev {
	return &i2c.Dev{Bus: s, Addr: addr}
}

// Close releases the bus and every registered closer. Errors are combined.
func (s *Shared) Close() error {
	s.mu.Lock()
	closers := s.closers
	s.closers = nil
	s.bus = nil
	s.mu.Unlock()

	var err error
	for i := len(closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, closers[i].Close())
	}
	return err
}
