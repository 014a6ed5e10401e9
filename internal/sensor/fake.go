package sensor

import "sync"

// FakeReading is one scripted Read outcome.
type FakeReading struct {
	Temperature float64
	Humidity    float64
	Err         error
}

// FakeSensor returns scripted readings. Once the script is exhausted the
// last entry repeats. Safe for concurrent use.
type FakeSensor struct {
	mu          sync.Mutex
	script      []FakeReading
	next        int
	BeginError  error
	begun       bool
	reads       int
	temperature float64
	humidity    float64
}

// NewFakeSensor creates a FakeSensor with the given script.
func NewFakeSensor(script ...FakeReading) *FakeSensor {
	return &FakeSensor{script: script}
}

// Begin records the call.
func (f *FakeSensor) Begin() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.begun = true
	return f.BeginError
}

// Read plays the next scripted outcome. Errors keep the previous values.
func (f *FakeSensor) Read() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if len(f.script) == 0 {
		return nil
	}
	r := f.script[f.next]
	if f.next < len(f.script)-1 {
		f.next++
	}
	if r.Err != nil {
		return r.Err
	}
	f.temperature = r.Temperature
	f.humidity = r.Humidity
	return nil
}

// Temperature returns the last successful temperature.
func (f *FakeSensor) Temperature() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.temperature
}

// Humidity returns the last successful humidity.
func (f *FakeSensor) Humidity() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.humidity
}

// Reads returns the number of Read calls.
func (f *FakeSensor) Reads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

// Begun reports whether Begin was called.
func (f *FakeSensor) Begun() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.begun
}
