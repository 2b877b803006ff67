package gpio

import "sync"

// FakeLED is a test double that records LED writes.
// Safe for concurrent use; pulse timers write from their own goroutine.
type FakeLED struct {
	mu     sync.Mutex
	on     bool
	writes []bool
	closed bool

	// SetError, if set, will be returned by Set.
	SetError error
}

// NewFakeLED creates a FakeLED that starts off.
func NewFakeLED() *FakeLED {
	return &FakeLED{}
}

// Set records the write.
func (f *FakeLED) Set(on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SetError != nil {
		return f.SetError
	}
	f.on = on
	f.writes = append(f.writes, on)
	return nil
}

// Close marks the LED as closed and off.
func (f *FakeLED) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.on = false
	f.closed = true
	return nil
}

// On reports the last written state.
func (f *FakeLED) On() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.on
}

// Writes returns a copy of every value passed to Set.
func (f *FakeLED) Writes() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bool(nil), f.writes...)
}

// Closed reports whether Close was called.
func (f *FakeLED) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
