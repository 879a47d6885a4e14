// Package timeutil is the time source for track timestamps and the poll
// loop's waits. Tests swap in MockClock to age tracks and release waits
// without sleeping.
package timeutil

import (
	"sync"
	"time"
)

// Clock reads the current time and arms one-shot waits.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) Timer
}

// Timer fires once on C unless stopped first.
type Timer interface {
	C() <-chan time.Time
	Stop() bool
}

// RealClock is backed by the time package.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

func (RealClock) NewTimer(d time.Duration) Timer {
	return realTimer{time.NewTimer(d)}
}

type realTimer struct{ *time.Timer }

func (t realTimer) C() <-chan time.Time { return t.Timer.C }

// MockClock only moves when told to. Timers fire from Advance or Set once
// their deadline is reached.
type MockClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*MockTimer
}

// NewMockClock returns a clock frozen at start.
func NewMockClock(start time.Time) *MockClock {
	return &MockClock{now: start}
}

func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
	c.fireDue()
}

// Set jumps the clock to t, which may be in the past.
func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
	c.fireDue()
}

// Pending reports how many timers are armed and not yet fired or stopped.
// Loop tests poll it to know the loop is parked before advancing.
func (c *MockClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if t.active() {
			n++
		}
	}
	return n
}

func (c *MockClock) NewTimer(d time.Duration) Timer {
	c.mu.Lock()
	t := &MockTimer{ch: make(chan time.Time, 1), deadline: c.now.Add(d)}
	c.timers = append(c.timers, t)
	c.mu.Unlock()
	// A non-positive wait is already due.
	c.fireDue()
	return t
}

func (c *MockClock) fireDue() {
	c.mu.Lock()
	now := c.now
	var keep []*MockTimer
	var due []*MockTimer
	for _, t := range c.timers {
		switch {
		case !t.active():
		case now.Before(t.deadline):
			keep = append(keep, t)
		default:
			due = append(due, t)
		}
	}
	c.timers = keep
	c.mu.Unlock()

	for _, t := range due {
		t.fire(now)
	}
}

// MockTimer is created by MockClock.NewTimer.
type MockTimer struct {
	mu       sync.Mutex
	ch       chan time.Time
	deadline time.Time
	done     bool
}

func (t *MockTimer) C() <-chan time.Time { return t.ch }

// Stop reports whether the timer was still armed.
func (t *MockTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	armed := !t.done
	t.done = true
	return armed
}

func (t *MockTimer) active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.done
}

func (t *MockTimer) fire(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return
	}
	t.done = true
	t.ch <- now
}
