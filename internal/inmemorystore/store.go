package inmemorystore

import (
	"sync"

	"github.com/vk/flowgrid/internal/runstate"
)

// Store is an in-memory implementation of runstate.Store.
type Store struct {
	nodes        sync.Map // Key: node ID, Value: runstate.NodeState
	nodeProgress sync.Map // Key: node ID, Value: float64
	conns        sync.Map // Key: connection ID, Value: runstate.ConnectionState
	connProgress sync.Map // Key: connection ID, Value: float64
}

// New creates a new, empty run-state store.
func New() *Store {
	return &Store{}
}

// SetNode records the presentation state of a node.
func (s *Store) SetNode(id string, st runstate.NodeState) {
	s.nodes.Store(id, st)
}

// Node returns the state of a node, or NodeIdle if it was never set.
func (s *Store) Node(id string) runstate.NodeState {
	v, ok := s.nodes.Load(id)
	if !ok {
		return runstate.NodeIdle
	}
	return v.(runstate.NodeState)
}

// SetNodeProgress records the progress fraction of a node, clamped to [0, 1].
func (s *Store) SetNodeProgress(id string, p float64) {
	s.nodeProgress.Store(id, runstate.ClampProgress(p))
}

// NodeProgress returns the progress fraction of a node.
func (s *Store) NodeProgress(id string) float64 {
	v, ok := s.nodeProgress.Load(id)
	if !ok {
		return 0
	}
	return v.(float64)
}

// SetConnection records the presentation state of a connection.
func (s *Store) SetConnection(id string, st runstate.ConnectionState) {
	s.conns.Store(id, st)
}

// Connection returns the state of a connection, or ConnectionIdle.
func (s *Store) Connection(id string) runstate.ConnectionState {
	v, ok := s.conns.Load(id)
	if !ok {
		return runstate.ConnectionIdle
	}
	return v.(runstate.ConnectionState)
}

// SetConnectionProgress records the traversal fraction of a connection.
func (s *Store) SetConnectionProgress(id string, p float64) {
	s.connProgress.Store(id, runstate.ClampProgress(p))
}

// ConnectionProgress returns the traversal fraction of a connection.
func (s *Store) ConnectionProgress(id string) float64 {
	v, ok := s.connProgress.Load(id)
	if !ok {
		return 0
	}
	return v.(float64)
}

// Snapshot copies the current contents of the store.
func (s *Store) Snapshot() runstate.Snapshot {
	snap := runstate.Snapshot{
		Nodes:              make(map[string]runstate.NodeState),
		NodeProgress:       make(map[string]float64),
		Connections:        make(map[string]runstate.ConnectionState),
		ConnectionProgress: make(map[string]float64),
	}
	s.nodes.Range(func(k, v any) bool {
		snap.Nodes[k.(string)] = v.(runstate.NodeState)
		return true
	})
	s.nodeProgress.Range(func(k, v any) bool {
		snap.NodeProgress[k.(string)] = v.(float64)
		return true
	})
	s.conns.Range(func(k, v any) bool {
		snap.Connections[k.(string)] = v.(runstate.ConnectionState)
		return true
	})
	s.connProgress.Range(func(k, v any) bool {
		snap.ConnectionProgress[k.(string)] = v.(float64)
		return true
	})
	return snap
}

// Reset forgets every recorded state, so all ids read as idle again.
func (s *Store) Reset() {
	s.nodes.Clear()
	s.nodeProgress.Clear()
	s.conns.Clear()
	s.connProgress.Clear()
}

var _ runstate.Store = (*Store)(nil)
