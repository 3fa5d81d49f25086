package clock

import (
	"sync"
	"time"
)

// Clock supplies the current time. The booking engine and the cleanup
// sweeper take it as a dependency so tests can control time.
type Clock interface {
	Now() time.Time
}

// System reads the wall clock, normalized to UTC.
type System struct{}

func (System) Now() time.Time {
	return time.Now().UTC()
}

// Fake is a manually advanced clock for tests.
type Fake struct {
	mu      sync.Mutex
	current time.Time
}

func NewFake(start time.Time) *Fake {
	return &Fake{current: start.UTC()}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// Set moves the clock to the given instant.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	f.current = t.UTC()
	f.mu.Unlock()
}

// Advance moves the clock forward by d and returns the updated time.
func (f *Fake) Advance(d time.Duration) time.Time {
	f.mu.Lock()
	f.current = f.current.Add(d)
	updated := f.current
	f.mu.Unlock()
	return updated
}
