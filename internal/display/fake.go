package display

import "sync"

// FakeDisplay records display calls for test assertions. Safe for concurrent use.
type FakeDisplay struct {
	mu        sync.Mutex
	inits     int
	clears    int
	backlight bool
	screen    []string
	history   []string
}

// NewFakeDisplay creates an empty FakeDisplay.
func NewFakeDisplay() *FakeDisplay {
	return &FakeDisplay{}
}

// Init records the call and blanks the screen.
func (f *FakeDisplay) Init() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inits++
	f.screen = nil
	return nil
}

// Backlight records the call.
func (f *FakeDisplay) Backlight() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.backlight = true
	return nil
}

// Clear blanks the screen.
func (f *FakeDisplay) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clears++
	f.screen = nil
	return nil
}

// Println appends a line to the screen.
func (f *FakeDisplay) Println(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.screen = append(f.screen, text)
	f.history = append(f.history, text)
	return nil
}

// Screen returns the lines printed since the last Clear.
func (f *FakeDisplay) Screen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.screen...)
}

// History returns every line ever printed.
func (f *FakeDisplay) History() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.history...)
}

// Clears returns the number of Clear calls.
func (f *FakeDisplay) Clears() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clears
}

// Inits returns the number of Init calls.
func (f *FakeDisplay) Inits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inits
}

// BacklightOn reports whether Backlight was called.
func (f *FakeDisplay) BacklightOn() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.backlight
}
