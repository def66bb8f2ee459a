package nodes

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/flowgrid/internal/graph"
	"github.com/vk/flowgrid/internal/message"
)

// Start fires exactly once when a run begins.
type Start struct{ base }

func newStart(graph.Properties) (Behavior, error) {
	return &Start{base{KindStart}}, nil
}

// Interval is zero: a start node fires once.
func (s *Start) Interval() time.Duration { return 0 }

// ShouldContinue is true until the node has fired.
func (s *Start) ShouldContinue(st *State) bool { return st.RunCount() == 0 }

// Process originates the run's initial message.
func (s *Start) Process(ctx context.Context, in Input) (*Effect, error) {
	now := in.Env.now()
	in.State.mu.Lock()
	in.State.runCount++
	in.State.mu.Unlock()

	msg := message.NewAt(in.Node.ID, map[string]any{"_startedAt": now.UnixMilli()}, now)
	return forward(msg.WithPath(in.Node.ID), graph.PortOutput), nil
}

// Scheduler fires periodically, a bounded or unbounded number of times.
type Scheduler struct {
	base
	interval time.Duration
	repeats  int
}

func newScheduler(p graph.Properties) (Behavior, error) {
	secs := p.Float("interval", 5)
	if secs <= 0 {
		return nil, fmt.Errorf("interval must be positive, got %v", secs)
	}
	return &Scheduler{
		base:     base{KindScheduler},
		interval: time.Duration(secs * float64(time.Second)),
		repeats:  p.Int("repeats", -1),
	}, nil
}

// Interval returns the firing period.
func (s *Scheduler) Interval() time.Duration { return s.interval }

// ShouldContinue is false once the node has used its firing budget. A
// negative budget never runs out.
func (s *Scheduler) ShouldContinue(st *State) bool {
	return s.repeats < 0 || st.RunCount() < s.repeats
}

// Process originates a new message tagged with the run number.
func (s *Scheduler) Process(ctx context.Context, in Input) (*Effect, error) {
	now := in.Env.now()
	in.State.mu.Lock()
	in.State.runCount++
	run := in.State.runCount
	in.State.mu.Unlock()

	msg := message.NewAt(in.Node.ID, map[string]any{
		"_schedulerRun": run,
		"_scheduledAt":  now.UnixMilli(),
	}, now)
	return forward(msg.WithPath(in.Node.ID), graph.PortOutput), nil
}

var (
	_ Source = (*Start)(nil)
	_ Source = (*Scheduler)(nil)
)
