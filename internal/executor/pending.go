package executor

import (
	"time"

	"github.com/vk/flowgrid/internal/graph"
	"github.com/vk/flowgrid/internal/message"
	"github.com/vk/flowgrid/internal/nodes"
	"github.com/vk/flowgrid/internal/runstate"
)

// pending is the table of outstanding timed work. Each slice keeps insertion
// order so ticks process entries deterministically.
type pending struct {
	delays     []*delayEntry
	forwards   []*forwardEntry
	repeats    []*repeatEntry
	releases   []*releaseEntry
	schedulers []*schedulerEntry
}

func (p *pending) counts() Pending {
	return Pending{
		Delays:     len(p.delays),
		Forwards:   len(p.forwards),
		Repeats:    len(p.repeats),
		Releases:   len(p.releases),
		Schedulers: len(p.schedulers),
	}
}

// delayEntry holds an effect until its delay elapses.
type delayEntry struct {
	node      *graph.Node
	effect    *nodes.Effect
	remaining time.Duration
	total     time.Duration
}

// forwardEntry is a message travelling along a connection.
type forwardEntry struct {
	conn      graph.Connection
	msg       message.Message
	remaining time.Duration
	total     time.Duration
}

// repeatEntry emits the remaining copies of a repeated message.
type repeatEntry struct {
	node      *graph.Node
	msg       message.Message
	port      string
	next      int
	count     int
	spacing   time.Duration
	remaining time.Duration
}

// releaseEntry drains a buffer one message at a time.
type releaseEntry struct {
	node      *graph.Node
	msgs      []message.Message
	port      string
	spacing   time.Duration
	remaining time.Duration
}

// schedulerEntry re-fires a periodic source.
type schedulerEntry struct {
	node      *graph.Node
	src       nodes.Source
	remaining time.Duration
}

// advance lets elapsed wall time pass, scaled by the current speed, and
// performs all work that became due. Entries added while processing wait for
// the next call.
func (e *Executor) advance(elapsed time.Duration) {
	scaled := time.Duration(float64(elapsed) * e.speed)

	snap := e.pending
	e.pending = pending{}

	for _, s := range snap.schedulers {
		s.remaining -= scaled
		if s.remaining > 0 {
			e.pending.schedulers = append(e.pending.schedulers, s)
			continue
		}
		if e.fireSource(s.node, s.src) {
			s.remaining = max(s.remaining+s.src.Interval(), time.Millisecond)
			e.pending.schedulers = append(e.pending.schedulers, s)
		}
	}

	var readyDelays []*delayEntry
	for _, d := range snap.delays {
		d.remaining -= scaled
		if d.remaining <= 0 {
			readyDelays = append(readyDelays, d)
			continue
		}
		e.rs.SetNodeProgress(d.node.ID, progress(d.remaining, d.total))
		e.pending.delays = append(e.pending.delays, d)
	}
	for _, d := range readyDelays {
		e.rs.SetNodeProgress(d.node.ID, 1)
		e.release(d.node, d.effect)
	}

	var arrived []*forwardEntry
	for _, f := range snap.forwards {
		f.remaining -= scaled
		if f.remaining <= 0 {
			arrived = append(arrived, f)
			continue
		}
		e.rs.SetConnectionProgress(f.conn.ID, progress(f.remaining, f.total))
		e.pending.forwards = append(e.pending.forwards, f)
	}
	for _, f := range arrived {
		e.arrive(f.conn, f.msg)
	}

	for _, r := range snap.repeats {
		r.remaining -= scaled
		if r.remaining > 0 {
			e.pending.repeats = append(e.pending.repeats, r)
			continue
		}
		e.send(r.node, r.port, r.msg.Fork(r.next, r.count))
		r.next++
		e.states[r.node.ID].SetRepeatProgress(r.next, r.count)
		e.rs.SetNodeProgress(r.node.ID, float64(r.next)/float64(r.count))
		if r.next >= r.count {
			e.rs.SetNode(r.node.ID, runstate.NodeCompleted)
			continue
		}
		r.remaining = max(r.remaining+r.spacing, time.Millisecond)
		e.pending.repeats = append(e.pending.repeats, r)
	}

	for _, r := range snap.releases {
		r.remaining -= scaled
		if r.remaining > 0 {
			e.pending.releases = append(e.pending.releases, r)
			continue
		}
		e.send(r.node, r.port, r.msgs[0])
		r.msgs = r.msgs[1:]
		if len(r.msgs) == 0 {
			e.rs.SetNode(r.node.ID, runstate.NodeCompleted)
			continue
		}
		r.remaining = max(r.remaining+r.spacing, time.Millisecond)
		e.pending.releases = append(e.pending.releases, r)
	}
}

func progress(remaining, total time.Duration) float64 {
	if total <= 0 {
		return 1
	}
	return 1 - float64(remaining)/float64(total)
}
