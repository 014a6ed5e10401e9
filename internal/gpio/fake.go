package gpio

import "sync"

// Levels is one recorded output pattern.
type Levels struct {
	A bool
	B bool
}

// FakeWriter records every output pattern. Safe for concurrent use.
type FakeWriter struct {
	mu sync.Mutex

	// SetError, if set, will be returned by Set().
	SetError error

	history []Levels
	closed  bool
}

// NewFakeWriter creates a FakeWriter with both outputs low.
func NewFakeWriter() *FakeWriter {
	return &FakeWriter{}
}

// Set records the pattern.
func (f *FakeWriter) Set(a, b bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SetError != nil {
		return f.SetError
	}
	f.history = append(f.history, Levels{A: a, B: b})
	return nil
}

// Close drives both outputs low and marks the writer closed.
func (f *FakeWriter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history = append(f.history, Levels{})
	f.closed = true
	return nil
}

// Current returns the last pattern written, or both low.
func (f *FakeWriter) Current() Levels {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.history) == 0 {
		return Levels{}
	}
	return f.history[len(f.history)-1]
}

// History returns a copy of every pattern written.
func (f *FakeWriter) History() []Levels {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Levels(nil), f.history...)
}

// Closed reports whether Close was called.
func (f *FakeWriter) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
