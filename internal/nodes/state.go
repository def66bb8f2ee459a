package nodes

import (
	"sync"

	"github.com/vk/flowgrid/internal/message"
)

// State is the mutable, per-run state of one node. The executor owns one
// State per node id and serializes calls into it; the mutex only protects
// readers such as observers taking snapshots.
type State struct {
	mu sync.Mutex

	trigger *message.Message
	data    *message.Message

	arrived  []message.Message
	expected int

	held []message.Message

	counter    float64
	hasCounter bool

	runCount    int
	repeatDone  int
	repeatTotal int
	branchCount int
	lastValue   any
}

// NewState returns an empty state.
func NewState() *State { return &State{} }

// Reset clears everything, readying the node for a new run.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.trigger, s.data = nil, nil
	s.arrived = nil
	s.expected = 0
	s.held = nil
	s.counter, s.hasCounter = 0, false
	s.runCount = 0
	s.repeatDone, s.repeatTotal = 0, 0
	s.branchCount = 0
	s.lastValue = nil
}

// SetExpectedCount tells a fan-in node how many connections feed it.
func (s *State) SetExpectedCount(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expected = n
}

// ExpectedCount returns the fan-in expectation.
func (s *State) ExpectedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expected
}

// Arrived returns how many messages a fan-in node has buffered.
func (s *State) Arrived() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.arrived)
}

// GateSlots reports which gate slots are filled.
func (s *State) GateSlots() (trigger, data bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trigger != nil, s.data != nil
}

// Held returns how many messages a queue or stack is holding.
func (s *State) Held() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.held)
}

// RunCount returns how many times a scheduler has fired.
func (s *State) RunCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runCount
}

// SetRepeatProgress records that done of total repeats have been sent.
func (s *State) SetRepeatProgress(done, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.repeatDone, s.repeatTotal = done, total
}

// RepeatProgress returns the last recorded repeat progress.
func (s *State) RepeatProgress() (done, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repeatDone, s.repeatTotal
}

// SetBranchCount records how many branches a splitter fed.
func (s *State) SetBranchCount(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.branchCount = n
}

// BranchCount returns the last recorded branch count.
func (s *State) BranchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.branchCount
}

// LastValue returns the last value a log node watched, or the last result a
// data node produced.
func (s *State) LastValue() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastValue
}

func (s *State) setLastValue(v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastValue = v
}
