package nodes

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/vk/flowgrid/internal/graph"
	"github.com/vk/flowgrid/internal/message"
)

// Behavior is the processing contract every node kind implements. The set of
// implementations is closed to this package.
type Behavior interface {
	Kind() Kind
	// Process handles one arriving message. A nil effect means the node
	// absorbed the message and is waiting for more input.
	Process(ctx context.Context, in Input) (*Effect, error)

	sealed()
}

// Source is implemented by behaviors that originate messages. For a source,
// Process ignores in.Message and creates a new one.
type Source interface {
	Behavior
	// Interval is the period between firings; zero fires once.
	Interval() time.Duration
	// ShouldContinue reports whether another firing is allowed.
	ShouldContinue(st *State) bool
}

// Input is everything Process may look at.
type Input struct {
	Message message.Message
	Node    *graph.Node
	// Port is the input port the message arrived on, or "" when the node is
	// triggered by the engine.
	Port string
	// Incoming lists the connections feeding the node.
	Incoming []graph.Connection
	State    *State
	Env      Env
}

// Env exposes the host facilities a behavior may use.
type Env struct {
	Now       func() time.Time
	Rand      *rand.Rand
	Notifier  Notifier
	LookupEnv func(key string) (string, bool)
}

func (e Env) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

func (e Env) nowMillis() int64 { return e.now().UnixMilli() }

func (e Env) float64() float64 {
	if e.Rand == nil {
		return rand.Float64()
	}
	return e.Rand.Float64()
}

// Chime describes an audible notification requested by a bell node.
type Chime struct {
	NodeID   string
	Sound    string
	Volume   float64
	Duration time.Duration
}

// Notifier performs bell side effects. Implementations may block; bells call
// them off the processing path.
type Notifier interface {
	Notify(ctx context.Context, c Chime) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, c Chime) error

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, c Chime) error { return f(ctx, c) }

type base struct{ kind Kind }

func (b base) Kind() Kind { return b.kind }

func (base) sealed() {}

func stamp(in Input) message.Message { return in.Message.WithPath(in.Node.ID) }
