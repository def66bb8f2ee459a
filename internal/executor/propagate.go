package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/flowgrid/internal/ctxlog"
	"github.com/vk/flowgrid/internal/graph"
	"github.com/vk/flowgrid/internal/message"
	"github.com/vk/flowgrid/internal/nodes"
	"github.com/vk/flowgrid/internal/runstate"
)

var errDepthExceeded = errors.New("propagation depth exceeded")

// originate fires every source once and schedules the periodic ones, then
// primes data sources that nothing feeds.
func (e *Executor) originate() {
	for _, n := range e.store.Nodes(e.runCtx) {
		src, ok := e.behaviors[n.ID].(nodes.Source)
		if !ok {
			continue
		}
		if !e.fireSource(n, src) || src.Interval() <= 0 {
			continue
		}
		e.pending.schedulers = append(e.pending.schedulers, &schedulerEntry{
			node:      n,
			src:       src,
			remaining: src.Interval(),
		})
		e.rs.SetNode(n.ID, runstate.NodeWaiting)
	}

	for _, n := range e.store.Nodes(e.runCtx) {
		b, ok := e.behaviors[n.ID]
		if !ok || !b.Kind().IsDataSource() {
			continue
		}
		if len(e.store.ConnectionsTo(e.runCtx, n.ID)) > 0 {
			continue
		}
		e.process(n.ID, "", message.Message{})
	}
}

// fireSource runs one firing of a source and reports whether it may fire
// again.
func (e *Executor) fireSource(n *graph.Node, src nodes.Source) bool {
	st := e.states[n.ID]
	if e.faulted[n.ID] || !src.ShouldContinue(st) {
		e.rs.SetNode(n.ID, runstate.NodeCompleted)
		return false
	}
	e.process(n.ID, "", message.Message{})
	if e.faulted[n.ID] {
		return false
	}
	if !src.ShouldContinue(st) {
		e.rs.SetNode(n.ID, runstate.NodeCompleted)
		return false
	}
	e.rs.SetNode(n.ID, runstate.NodeWaiting)
	return true
}

// process hands msg to a node and applies the resulting effect.
func (e *Executor) process(nodeID, port string, msg message.Message) {
	if e.faulted[nodeID] {
		ctxlog.FromContext(e.runCtx).Debug("Dropping message at failed node.", "node", nodeID, "message", msg.ID())
		return
	}
	n, ok := e.store.Node(e.runCtx, nodeID)
	b, hasBehavior := e.behaviors[nodeID]
	if !ok || !hasBehavior {
		ctxlog.FromContext(e.runCtx).Warn("Message addressed to unknown node.", "node", nodeID)
		return
	}

	e.depth++
	defer func() { e.depth-- }()
	if e.depth > MaxDepth {
		e.fault(n, b, fmt.Errorf("%w: %w", ErrNodeFault, errDepthExceeded))
		return
	}

	e.rs.SetNode(n.ID, runstate.NodeActive)
	e.emit(Event{Type: EventNodeActivated, NodeID: n.ID, Kind: b.Kind(), Message: msg})

	in := nodes.Input{
		Message:  msg,
		Node:     n,
		Port:     port,
		Incoming: e.store.ConnectionsTo(e.runCtx, n.ID),
		State:    e.states[n.ID],
		Env: nodes.Env{
			Now:       e.clock.Now,
			Rand:      e.rand,
			Notifier:  e.opts.notifier,
			LookupEnv: e.opts.lookupEnv,
		},
	}
	ctx := ctxlog.With(e.runCtx, "node", n.ID, "type", n.Type)
	eff, err := invoke(ctx, b, in)
	if err != nil {
		e.fault(n, b, err)
		return
	}
	if eff == nil {
		e.rs.SetNode(n.ID, runstate.NodeWaiting)
		return
	}
	e.apply(n, eff)
}

func invoke(ctx context.Context, b nodes.Behavior, in nodes.Input) (eff *nodes.Effect, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrNodeFault, r)
		}
	}()
	eff, err = b.Process(ctx, in)
	if err != nil && !errors.Is(err, ErrNodeFault) {
		err = fmt.Errorf("%w: %w", ErrNodeFault, err)
	}
	return eff, err
}

// fault isolates a node for the rest of the run.
func (e *Executor) fault(n *graph.Node, b nodes.Behavior, err error) {
	e.faulted[n.ID] = true
	e.rs.SetNode(n.ID, runstate.NodeError)
	ctxlog.FromContext(e.runCtx).Error("Node failed.", "node", n.ID, "type", n.Type, "error", err)
	e.emit(Event{Type: EventNodeFailed, NodeID: n.ID, Kind: b.Kind(), Err: err})
}

// apply schedules or performs an effect.
func (e *Executor) apply(n *graph.Node, eff *nodes.Effect) {
	if eff.Delay > 0 {
		e.pending.delays = append(e.pending.delays, &delayEntry{
			node:      n,
			effect:    eff,
			remaining: eff.Delay,
			total:     eff.Delay,
		})
		e.rs.SetNode(n.ID, runstate.NodeWaiting)
		e.rs.SetNodeProgress(n.ID, 0)
		return
	}
	e.release(n, eff)
}

// release performs an effect whose delay, if any, has elapsed.
func (e *Executor) release(n *graph.Node, eff *nodes.Effect) {
	e.rs.SetNode(n.ID, runstate.NodeCompleted)

	if eff.Terminal() {
		e.completed++
		ctxlog.FromContext(e.runCtx).Debug("Message completed.", "node", n.ID, "message", eff.Message.ID(), "path", eff.Message.Path())
		e.emit(Event{Type: EventMessageCompleted, NodeID: n.ID, Kind: nodes.Kind(n.Type), Message: eff.Message})
		return
	}

	switch {
	case eff.Hold != nil:
		e.releaseHeld(n, eff)
	case eff.Repeat != nil:
		e.repeat(n, eff)
	case eff.Fork:
		conns := e.store.ConnectionsFromPort(e.runCtx, n.ID, eff.OutputPort)
		e.states[n.ID].SetBranchCount(len(conns))
		for i, c := range conns {
			e.deliver(c, eff.Message.Fork(i, len(conns)))
		}
	case eff.Random:
		conns := e.store.ConnectionsFromPort(e.runCtx, n.ID, eff.OutputPort)
		if len(conns) > 0 {
			e.deliver(conns[e.rand.IntN(len(conns))], eff.Message)
		}
	default:
		e.send(n, eff.OutputPort, eff.Message)
	}
}

func (e *Executor) releaseHeld(n *graph.Node, eff *nodes.Effect) {
	msgs := eff.Hold.Messages
	if len(msgs) == 0 {
		return
	}
	if eff.Hold.Mode != nodes.ReleaseOne {
		for _, m := range msgs {
			e.send(n, eff.OutputPort, m)
		}
		return
	}

	e.send(n, eff.OutputPort, msgs[0])
	if len(msgs) == 1 {
		return
	}
	e.pending.releases = append(e.pending.releases, &releaseEntry{
		node:      n,
		msgs:      msgs[1:],
		port:      eff.OutputPort,
		spacing:   nodes.MinRepeatSpacing,
		remaining: nodes.MinRepeatSpacing,
	})
	e.rs.SetNode(n.ID, runstate.NodeWaiting)
}

func (e *Executor) repeat(n *graph.Node, eff *nodes.Effect) {
	count := max(eff.Repeat.Count, 1)
	st := e.states[n.ID]

	e.send(n, eff.OutputPort, eff.Message.Fork(0, count))
	st.SetRepeatProgress(1, count)
	e.rs.SetNodeProgress(n.ID, 1/float64(count))
	if count == 1 {
		return
	}

	spacing := eff.Repeat.Spacing()
	e.pending.repeats = append(e.pending.repeats, &repeatEntry{
		node:      n,
		msg:       eff.Message,
		port:      eff.OutputPort,
		next:      1,
		count:     count,
		spacing:   spacing,
		remaining: spacing,
	})
	e.rs.SetNode(n.ID, runstate.NodeActive)
}

// send forwards msg along every connection leaving port.
func (e *Executor) send(n *graph.Node, port string, msg message.Message) {
	for _, c := range e.store.ConnectionsFromPort(e.runCtx, n.ID, port) {
		e.deliver(c, msg)
	}
}

// deliver moves msg across one connection, either now or after the transit
// delay.
func (e *Executor) deliver(c graph.Connection, msg message.Message) {
	e.rs.SetConnection(c.ID, runstate.ConnectionActive)
	if e.opts.transit > 0 {
		e.rs.SetConnectionProgress(c.ID, 0)
		e.pending.forwards = append(e.pending.forwards, &forwardEntry{
			conn:      c,
			msg:       msg,
			remaining: e.opts.transit,
			total:     e.opts.transit,
		})
		return
	}
	e.arrive(c, msg)
}

func (e *Executor) arrive(c graph.Connection, msg message.Message) {
	e.rs.SetConnection(c.ID, runstate.ConnectionCompleted)
	e.rs.SetConnectionProgress(c.ID, 1)

	e.inflight++
	e.process(c.ToNodeID, c.ToPortID, msg)
	e.inflight--
}
