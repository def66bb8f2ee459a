package scheduler

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// TickFunc is invoked on every tick with the loop generation that produced it
// and the clock time of the tick.
type TickFunc func(gen uint64, now time.Time)

// Loop runs a TickFunc periodically on a clockwork clock.
type Loop struct {
	clock clockwork.Clock

	mu      sync.Mutex
	gen     uint64
	running bool
	ticker  clockwork.Ticker
	quit    chan struct{}
}

// NewLoop creates a stopped loop on the given clock. A nil clock means the
// real wall clock.
func NewLoop(clock clockwork.Clock) *Loop {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Loop{clock: clock}
}

// Start begins calling fn every interval and returns the new generation.
// The ticker is registered before Start returns. Starting a running loop
// restarts it with a new generation.
func (l *Loop) Start(interval time.Duration, fn TickFunc) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.stopLocked()
	l.gen++
	l.running = true
	l.ticker = l.clock.NewTicker(interval)
	l.quit = make(chan struct{})

	go run(l.gen, l.ticker, l.quit, fn)
	return l.gen
}

func run(gen uint64, ticker clockwork.Ticker, quit <-chan struct{}, fn TickFunc) {
	for {
		select {
		case <-quit:
			return
		case now := <-ticker.Chan():
			select {
			case <-quit:
				return
			default:
			}
			fn(gen, now)
		}
	}
}

// Stop halts the loop. It does not wait for a callback already running.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopLocked()
}

func (l *Loop) stopLocked() {
	if !l.running {
		return
	}
	l.ticker.Stop()
	close(l.quit)
	l.running = false
	l.gen++
}

// Generation returns the current generation. A callback whose generation
// differs was scheduled by a loop that has since been stopped or restarted.
func (l *Loop) Generation() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.gen
}
