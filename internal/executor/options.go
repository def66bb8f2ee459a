package executor

import (
	"math/rand/v2"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/vk/flowgrid/internal/nodes"
	"github.com/vk/flowgrid/internal/runstate"
	"github.com/vk/flowgrid/internal/validator"
)

const (
	// DefaultTickInterval is roughly one frame at 60Hz.
	DefaultTickInterval = 16 * time.Millisecond
	// DefaultCompletionGrace is how long completed run-state stays visible.
	DefaultCompletionGrace = 3 * time.Second
	// MaxDepth bounds synchronous propagation, catching delay-free cycles.
	MaxDepth = 1000
)

type options struct {
	clock      clockwork.Clock
	tick       time.Duration
	transit    time.Duration
	speed      float64
	validation validator.Options
	runState   runstate.Store
	rand       *rand.Rand
	notifier   nodes.Notifier
	lookupEnv  func(string) (string, bool)
	observers  []Observer
	grace      time.Duration
}

func defaultOptions() options {
	return options{
		clock:      clockwork.NewRealClock(),
		tick:       DefaultTickInterval,
		speed:      1,
		validation: validator.DefaultOptions(),
		grace:      DefaultCompletionGrace,
	}
}

// Option configures an Executor.
type Option func(*options)

// WithClock sets the clock driving ticks, delays and timestamps.
func WithClock(c clockwork.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithTickInterval sets how often the tick function runs while running.
func WithTickInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.tick = d
		}
	}
}

// WithTransitDelay makes every forward take d (scaled by speed) to traverse
// its connection. Zero forwards synchronously.
func WithTransitDelay(d time.Duration) Option {
	return func(o *options) { o.transit = max(d, 0) }
}

// WithSpeed sets the initial speed factor. Non-positive values are ignored.
func WithSpeed(f float64) Option {
	return func(o *options) {
		if f > 0 {
			o.speed = f
		}
	}
}

// WithValidatorOptions sets the validation policies applied by Start.
func WithValidatorOptions(v validator.Options) Option {
	return func(o *options) { o.validation = v }
}

// WithRunState sets the store that receives presentation run-state.
func WithRunState(s runstate.Store) Option {
	return func(o *options) { o.runState = s }
}

// WithRand sets the random source used by random splitters and constants.
func WithRand(r *rand.Rand) Option {
	return func(o *options) { o.rand = r }
}

// WithNotifier sets the notifier bell nodes ring.
func WithNotifier(n nodes.Notifier) Option {
	return func(o *options) { o.notifier = n }
}

// WithEnvLookup replaces os.LookupEnv for env nodes.
func WithEnvLookup(f func(string) (string, bool)) Option {
	return func(o *options) { o.lookupEnv = f }
}

// WithObserver subscribes an observer before the first run.
func WithObserver(obs Observer) Option {
	return func(o *options) { o.observers = append(o.observers, obs) }
}

// WithCompletionGrace sets how long run-state stays visible after
// completion before it is reset to idle. Zero keeps it.
func WithCompletionGrace(d time.Duration) Option {
	return func(o *options) { o.grace = max(d, 0) }
}
