package clock

import (
	"sync"
	"time"
)

// Clock emits a recurring tick and is the only time source the engine reads.
type Clock interface {
	// Start begins emitting ticks every period. Calling Start on a running
	// clock has no effect.
	Start(period time.Duration)
	// Stop cancels pending ticks. Safe to call more than once.
	Stop()
	// C delivers tick times. It is never closed.
	C() <-chan time.Time
	Now() time.Time
}

// Ticker is a Clock backed by time.Ticker. Ticks that the receiver is not
// ready for are dropped, so a slow consumer never sees a catch-up burst.
type Ticker struct {
	mu     sync.Mutex
	ticker *time.Ticker
	done   chan struct{}
	c      chan time.Time
}

func NewTicker() *Ticker {
	return &Ticker{c: make(chan time.Time, 1)}
}

func (t *Ticker) Start(period time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.ticker != nil {
		return
	}
	t.ticker = time.NewTicker(period)
	t.done = make(chan struct{})
	go t.forward(t.ticker, t.done)
}

func (t *Ticker) forward(ticker *time.Ticker, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case at := <-ticker.C:
			select {
			case t.c <- at:
			default:
			}
		}
	}
}

func (t *Ticker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.ticker == nil {
		return
	}
	t.ticker.Stop()
	close(t.done)
	t.ticker = nil
	t.done = nil
}

func (t *Ticker) C() <-chan time.Time { return t.c }

func (t *Ticker) Now() time.Time { return time.Now() }
