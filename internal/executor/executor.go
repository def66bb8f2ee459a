package executor

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/vk/flowgrid/internal/ctxlog"
	"github.com/vk/flowgrid/internal/graph"
	"github.com/vk/flowgrid/internal/inmemorystore"
	"github.com/vk/flowgrid/internal/nodes"
	"github.com/vk/flowgrid/internal/runstate"
	"github.com/vk/flowgrid/internal/scheduler"
	"github.com/vk/flowgrid/internal/validator"
)

// Status is the lifecycle state of an Executor.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
)

// Executor runs one graph. It is safe for concurrent use.
type Executor struct {
	store     graph.Store
	behaviors map[string]nodes.Behavior
	states    map[string]*nodes.State
	opts      options
	clock     clockwork.Clock
	loop      *scheduler.Loop
	rs        runstate.Store
	rand      *rand.Rand

	mu        sync.Mutex
	status    Status
	speed     float64
	runID     uint64
	lastTick  time.Time
	runCtx    context.Context
	done      chan struct{}
	grace     clockwork.Timer
	pending   pending
	inflight  int
	depth     int
	faulted   map[string]bool
	completed int

	observers []Observer
	queued    []Event
	flushing  bool
}

// New creates an idle executor for the graph in store. behaviors maps every
// node id to its behavior, as produced by nodes.Instantiate.
func New(store graph.Store, behaviors map[string]nodes.Behavior, opts ...Option) *Executor {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		o.clock = clockwork.NewRealClock()
	}
	if o.runState == nil {
		o.runState = inmemorystore.New()
	}
	if o.rand == nil {
		o.rand = rand.New(rand.NewPCG(uint64(o.clock.Now().UnixNano()), rand.Uint64()))
	}

	states := make(map[string]*nodes.State, len(behaviors))
	for id := range behaviors {
		states[id] = nodes.NewState()
	}

	return &Executor{
		store:     store,
		behaviors: behaviors,
		states:    states,
		opts:      o,
		clock:     o.clock,
		loop:      scheduler.NewLoop(o.clock),
		rs:        o.runState,
		rand:      o.rand,
		status:    StatusIdle,
		speed:     o.speed,
		runCtx:    context.Background(),
		faulted:   make(map[string]bool),
		observers: slices.Clone(o.observers),
	}
}

// Subscribe adds an observer for all subsequent events.
func (e *Executor) Subscribe(obs Observer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observers = append(e.observers, obs)
}

// Status returns the current lifecycle state.
func (e *Executor) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Speed returns the current speed factor.
func (e *Executor) Speed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed
}

// SetSpeed changes the rate at which delays and intervals elapse. Time that
// passed since the last tick is first settled at the old factor, so the new
// one only applies from now on.
func (e *Executor) SetSpeed(f float64) error {
	if f <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidSpeed, f)
	}
	e.mu.Lock()
	if e.status == StatusRunning {
		now := e.clock.Now()
		if elapsed := now.Sub(e.lastTick); elapsed > 0 {
			e.advance(elapsed)
		}
		e.lastTick = now
	}
	e.speed = f
	e.checkCompletion()
	e.mu.Unlock()
	e.flush()
	return nil
}

// RunState returns the presentation run-state store.
func (e *Executor) RunState() runstate.Store { return e.rs }

// State returns the engine-owned state of a node, or nil.
func (e *Executor) State(nodeID string) *nodes.State { return e.states[nodeID] }

// Completed returns how many messages reached an end node in the current run.
func (e *Executor) Completed() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.completed
}

// Pending counts the entries of each pending table.
type Pending struct {
	Delays     int
	Forwards   int
	Repeats    int
	Releases   int
	Schedulers int
}

// Total is the sum of all counts.
func (p Pending) Total() int {
	return p.Delays + p.Forwards + p.Repeats + p.Releases + p.Schedulers
}

// Pending reports outstanding work.
func (e *Executor) Pending() Pending {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pending.counts()
}

// Start validates the graph and begins a run. Starting a running executor
// is a no-op and starting a paused one resumes it. When validation fails a
// validationFailed event is emitted and the returned error wraps
// ErrValidationFailed.
func (e *Executor) Start(ctx context.Context) error {
	e.mu.Lock()
	switch e.status {
	case StatusRunning:
		e.mu.Unlock()
		return nil
	case StatusPaused:
		e.resumeLocked()
		e.mu.Unlock()
		e.flush()
		return nil
	}

	logger := ctxlog.FromContext(ctx)
	report := validator.Validate(ctx, e.store, e.behaviors, e.opts.validation)
	for _, w := range report.Warnings() {
		logger.Warn("Graph validation warning.", "code", w.Code, "node", w.NodeID, "message", w.Message)
	}
	if !report.Valid() {
		logger.Error("Graph failed validation.", "errors", len(report.Errors()))
		e.emit(Event{Type: EventValidationFailed, Findings: report.Findings})
		e.mu.Unlock()
		e.flush()
		return fmt.Errorf("%w: %w", ErrValidationFailed, report.Err())
	}

	e.runID++
	e.runCtx = ctxlog.With(context.WithoutCancel(ctx), "run", e.runID)
	e.resetLocked()
	e.status = StatusRunning
	e.done = make(chan struct{})
	ctxlog.FromContext(e.runCtx).Info("Run started.", "nodes", len(e.behaviors))
	e.emit(Event{Type: EventStarted})

	e.originate()
	e.checkCompletion()
	if e.status == StatusRunning {
		e.startLoop()
	}
	e.mu.Unlock()
	e.flush()
	return nil
}

// Pause halts the tick loop. Pending work keeps its remaining time.
func (e *Executor) Pause() {
	e.mu.Lock()
	if e.status != StatusRunning {
		e.mu.Unlock()
		return
	}
	e.loop.Stop()
	e.status = StatusPaused
	ctxlog.FromContext(e.runCtx).Info("Run paused.")
	e.emit(Event{Type: EventPaused})
	e.mu.Unlock()
	e.flush()
}

// Resume continues a paused run.
func (e *Executor) Resume() {
	e.mu.Lock()
	if e.status != StatusPaused {
		e.mu.Unlock()
		return
	}
	e.resumeLocked()
	e.mu.Unlock()
	e.flush()
}

func (e *Executor) resumeLocked() {
	e.status = StatusRunning
	ctxlog.FromContext(e.runCtx).Info("Run resumed.")
	e.emit(Event{Type: EventResumed})
	e.startLoop()
}

// Stop aborts the run in any state, discarding pending work and returning
// every node and connection to idle.
func (e *Executor) Stop() {
	e.mu.Lock()
	e.loop.Stop()
	e.stopGrace()
	e.pending = pending{}
	e.inflight, e.depth = 0, 0
	for _, st := range e.states {
		st.Reset()
	}
	e.rs.Reset()
	wasActive := e.status == StatusRunning || e.status == StatusPaused
	e.status = StatusIdle
	e.closeDone()
	if wasActive {
		ctxlog.FromContext(e.runCtx).Info("Run stopped.")
	}
	e.emit(Event{Type: EventStopped})
	e.mu.Unlock()
	e.flush()
}

// Step advances the run by exactly one tick. An idle or completed executor
// is started and immediately paused instead.
func (e *Executor) Step(ctx context.Context) error {
	e.mu.Lock()
	if e.status == StatusIdle || e.status == StatusCompleted {
		e.mu.Unlock()
		if err := e.Start(ctx); err != nil {
			return err
		}
		e.Pause()
		return nil
	}
	e.advance(e.opts.tick)
	e.lastTick = e.clock.Now()
	e.checkCompletion()
	e.mu.Unlock()
	e.flush()
	return nil
}

// Wait blocks until the current run completes or is stopped, or ctx ends.
func (e *Executor) Wait(ctx context.Context) error {
	e.mu.Lock()
	done := e.done
	e.mu.Unlock()
	if done == nil {
		return ErrNotStarted
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Executor) startLoop() {
	e.lastTick = e.clock.Now()
	e.loop.Start(e.opts.tick, e.onTick)
}

func (e *Executor) onTick(gen uint64, now time.Time) {
	e.mu.Lock()
	if gen != e.loop.Generation() || e.status != StatusRunning {
		e.mu.Unlock()
		return
	}
	elapsed := now.Sub(e.lastTick)
	e.lastTick = now
	if elapsed > 0 {
		e.advance(elapsed)
	}
	e.checkCompletion()
	e.mu.Unlock()
	e.flush()
}

func (e *Executor) resetLocked() {
	e.stopGrace()
	e.pending = pending{}
	e.inflight, e.depth = 0, 0
	e.completed = 0
	clear(e.faulted)
	for _, st := range e.states {
		st.Reset()
	}
	e.rs.Reset()

	for id, b := range e.behaviors {
		if b.Kind() != nodes.KindAwaitAll {
			continue
		}
		e.states[id].SetExpectedCount(len(e.store.ConnectionsTo(e.runCtx, id)))
	}
}

// checkCompletion finishes the run once no work is pending anywhere.
func (e *Executor) checkCompletion() {
	if e.status != StatusRunning && e.status != StatusPaused {
		return
	}
	if e.inflight > 0 || e.pending.counts().Total() > 0 {
		return
	}

	e.loop.Stop()
	e.status = StatusCompleted
	ctxlog.FromContext(e.runCtx).Info("Run completed.", "messages", e.completed)
	e.emit(Event{Type: EventCompleted})
	e.closeDone()

	if e.opts.grace > 0 {
		runID := e.runID
		e.grace = e.clock.AfterFunc(e.opts.grace, func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			if e.status == StatusCompleted && e.runID == runID {
				e.rs.Reset()
			}
		})
	}
}

func (e *Executor) stopGrace() {
	if e.grace != nil {
		e.grace.Stop()
		e.grace = nil
	}
}

func (e *Executor) closeDone() {
	if e.done == nil {
		return
	}
	select {
	case <-e.done:
	default:
		close(e.done)
	}
}

// emit queues ev for delivery. Callers hold e.mu.
func (e *Executor) emit(ev Event) {
	ev.Time = e.clock.Now()
	e.queued = append(e.queued, ev)
}

// flush delivers queued events outside the lock. If another goroutine is
// already flushing it drains the queue instead, keeping delivery ordered.
func (e *Executor) flush() {
	e.mu.Lock()
	if e.flushing {
		e.mu.Unlock()
		return
	}
	e.flushing = true
	for len(e.queued) > 0 {
		evs := e.queued
		e.queued = nil
		obs := slices.Clone(e.observers)
		ctx := e.runCtx
		e.mu.Unlock()

		for _, ev := range evs {
			for _, o := range obs {
				o.OnEvent(ctx, ev)
			}
		}

		e.mu.Lock()
	}
	e.flushing = false
	e.mu.Unlock()
}
