package nodes

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/flowgrid/internal/graph"
)

// Delay holds each message for a fixed duration.
type Delay struct {
	base
	d time.Duration
}

func newDelay(p graph.Properties) (Behavior, error) {
	ms := p.Float("ms", 1000)
	if ms < 0 {
		return nil, fmt.Errorf("ms must not be negative, got %v", ms)
	}
	return &Delay{base: base{KindDelay}, d: time.Duration(ms * float64(time.Millisecond))}, nil
}

// Duration returns the configured delay.
func (d *Delay) Duration() time.Duration { return d.d }

func (d *Delay) Process(ctx context.Context, in Input) (*Effect, error) {
	msg := stamp(in).WithPayload(map[string]any{
		"_delay_" + in.Node.ID: map[string]any{
			"ms":        d.d.Milliseconds(),
			"startedAt": in.Env.nowMillis(),
		},
	})
	return &Effect{Message: msg, OutputPort: graph.PortOutput, Delay: d.d}, nil
}

// Repeater forwards each message several times.
type Repeater struct {
	base
	repeat Repeat
}

func newRepeater(p graph.Properties) (Behavior, error) {
	count := p.Int("count", 3)
	if count < 1 {
		return nil, fmt.Errorf("count must be at least 1, got %d", count)
	}
	ms := p.Float("delay", 0)
	if ms < 0 {
		return nil, fmt.Errorf("delay must not be negative, got %v", ms)
	}
	return &Repeater{
		base:   base{KindRepeater},
		repeat: Repeat{Count: count, Delay: time.Duration(ms * float64(time.Millisecond))},
	}, nil
}

// Repeat returns the repeat configuration.
func (r *Repeater) Repeat() Repeat { return r.repeat }

func (r *Repeater) Process(ctx context.Context, in Input) (*Effect, error) {
	rep := r.repeat
	return &Effect{Message: stamp(in), OutputPort: graph.PortOutput, Repeat: &rep}, nil
}

// End terminates a branch and stamps completion metadata.
type End struct{ base }

func newEnd(graph.Properties) (Behavior, error) { return &End{base{KindEnd}}, nil }

func (e *End) Process(ctx context.Context, in Input) (*Effect, error) {
	msg := stamp(in)
	msg = msg.WithPayload(map[string]any{
		"_completedAt": in.Env.nowMillis(),
		"_finalPath":   msg.Path(),
	})
	return &Effect{Message: msg}, nil
}

// Action marks a step of the flow and optionally records it in the payload.
type Action struct {
	base
	description string
	outputKey   string
}

func newAction(p graph.Properties) (Behavior, error) {
	return &Action{
		base:        base{KindAction},
		description: p.String("description", ""),
		outputKey:   p.String("outputKey", ""),
	}, nil
}

func (a *Action) Process(ctx context.Context, in Input) (*Effect, error) {
	msg := stamp(in)
	if a.outputKey != "" {
		msg = msg.WithPayload(map[string]any{
			a.outputKey: map[string]any{
				"action":     a.description,
				"executedAt": in.Env.nowMillis(),
			},
		})
	}
	return forward(msg, graph.PortOutput), nil
}
