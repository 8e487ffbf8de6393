package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// go test -v --run TestTickerEmitsTicks
func TestTickerEmitsTicks(t *testing.T) {
	c := NewTicker()
	c.Start(10 * time.Millisecond)
	defer c.Stop()

	for i := 0; i < 3; i++ {
		select {
		case <-c.C():
		case <-time.After(time.Second):
			t.Fatalf("tick %d not received", i)
		}
	}
}

// go test -v --run TestTickerStopIdempotent
func TestTickerStopIdempotent(t *testing.T) {
	c := NewTicker()
	c.Stop()

	c.Start(5 * time.Millisecond)
	c.Stop()
	c.Stop()

	// drain a tick that may have been buffered before Stop
	select {
	case <-c.C():
	default:
	}

	select {
	case <-c.C():
		t.Fatal("tick received after Stop")
	case <-time.After(50 * time.Millisecond):
	}
}

// go test -v --run TestTickerNoCatchUpBurst
func TestTickerNoCatchUpBurst(t *testing.T) {
	c := NewTicker()
	c.Start(2 * time.Millisecond)
	defer c.Stop()

	// stall the receiver for many periods
	time.Sleep(50 * time.Millisecond)

	received := 0
	timeout := time.After(time.Millisecond)
loop:
	for {
		select {
		case <-c.C():
			received++
		case <-timeout:
			break loop
		}
	}
	assert.LessOrEqual(t, received, 2)
}

// go test -v --run TestManualClock
func TestManualClock(t *testing.T) {
	start := time.Date(2025, 1, 2, 15, 0, 0, 0, time.UTC)
	m := NewManual(start)

	assert.False(t, m.Advance(time.Second), "stopped clock must not tick")
	assert.Equal(t, start.Add(time.Second), m.Now())

	m.Start(4 * time.Second)
	require.True(t, m.Running())
	assert.Equal(t, 4*time.Second, m.Period())

	got := make(chan time.Time, 1)
	go func() { got <- <-m.C() }()
	require.True(t, m.Advance(4*time.Second))
	assert.Equal(t, start.Add(5*time.Second), <-got)

	m.Stop()
	m.Stop()
	assert.False(t, m.Running())
}
