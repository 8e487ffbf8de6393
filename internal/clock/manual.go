package clock

import (
	"sync"
	"time"
)

// Manual is a Clock driven by hand, for tests.
type Manual struct {
	mu      sync.Mutex
	now     time.Time
	running bool
	period  time.Duration
	c       chan time.Time
}

func NewManual(now time.Time) *Manual {
	return &Manual{now: now, c: make(chan time.Time)}
}

func (m *Manual) Start(period time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = true
	m.period = period
}

func (m *Manual) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = false
}

func (m *Manual) C() <-chan time.Time { return m.c }

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Set moves Now to t without emitting a tick.
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
}

// Advance moves Now forward by d and emits a tick at the new time.
// It blocks until the tick is received and reports false if the clock is stopped.
func (m *Manual) Advance(d time.Duration) bool {
	m.mu.Lock()
	m.now = m.now.Add(d)
	at, running := m.now, m.running
	m.mu.Unlock()

	if !running {
		return false
	}
	m.c <- at
	return true
}

// Running reports whether Start was called without a later Stop.
func (m *Manual) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Period returns the period passed to the last Start.
func (m *Manual) Period() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.period
}
