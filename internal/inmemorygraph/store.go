// Package inmemorygraph provides a simple, thread-safe, in-memory
// implementation of the graph.Store interface.
package inmemorygraph

import (
	"context"
	"fmt"
	"sync"

	"github.com/vk/flowgrid/internal/graph"
)

// Store implements graph.Store using maps for lookup, slices for stable
// ordering, and a RWMutex for concurrent access.
type Store struct {
	mu sync.RWMutex

	nodes     map[string]*graph.Node
	nodeOrder []string

	conns     map[string]graph.Connection
	connOrder []string

	outgoing map[string][]string // Key: node ID, Value: connection IDs in insertion order
	incoming map[string][]string
}

// New creates a new, empty in-memory graph store.
func New() *Store {
	return &Store{
		nodes:    make(map[string]*graph.Node),
		conns:    make(map[string]graph.Connection),
		outgoing: make(map[string][]string),
		incoming: make(map[string][]string),
	}
}

// AddNode adds a new node to the store.
func (s *Store) AddNode(ctx context.Context, n *graph.Node) error {
	if n == nil || n.ID == "" {
		return fmt.Errorf("node must have a non-empty id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.nodes[n.ID]; exists {
		return fmt.Errorf("node '%s' already exists", n.ID)
	}
	s.nodes[n.ID] = n
	s.nodeOrder = append(s.nodeOrder, n.ID)
	return nil
}

// AddConnection links two existing nodes.
func (s *Store) AddConnection(ctx context.Context, c graph.Connection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" {
		return fmt.Errorf("connection %s must have a non-empty id", c)
	}
	if _, exists := s.conns[c.ID]; exists {
		return fmt.Errorf("connection '%s' already exists", c.ID)
	}
	if _, exists := s.nodes[c.FromNodeID]; !exists {
		return fmt.Errorf("connection source node '%s' not found", c.FromNodeID)
	}
	if _, exists := s.nodes[c.ToNodeID]; !exists {
		return fmt.Errorf("connection target node '%s' not found", c.ToNodeID)
	}

	s.conns[c.ID] = c
	s.connOrder = append(s.connOrder, c.ID)
	s.outgoing[c.FromNodeID] = append(s.outgoing[c.FromNodeID], c.ID)
	s.incoming[c.ToNodeID] = append(s.incoming[c.ToNodeID], c.ID)
	return nil
}

// Node retrieves a single node by id.
func (s *Store) Node(ctx context.Context, id string) (*graph.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.nodes[id]
	return n, ok
}

// Nodes returns all nodes in insertion order.
func (s *Store) Nodes(ctx context.Context) []*graph.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	nodes := make([]*graph.Node, 0, len(s.nodeOrder))
	for _, id := range s.nodeOrder {
		nodes = append(nodes, s.nodes[id])
	}
	return nodes
}

// Connection retrieves a single connection by id.
func (s *Store) Connection(ctx context.Context, id string) (graph.Connection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.conns[id]
	return c, ok
}

// Connections returns all connections in insertion order.
func (s *Store) Connections(ctx context.Context) []graph.Connection {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collect(s.connOrder)
}

// ConnectionsFrom returns the connections leaving nodeID.
func (s *Store) ConnectionsFrom(ctx context.Context, nodeID string) []graph.Connection {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collect(s.outgoing[nodeID])
}

// ConnectionsTo returns the connections entering nodeID.
func (s *Store) ConnectionsTo(ctx context.Context, nodeID string) []graph.Connection {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collect(s.incoming[nodeID])
}

// ConnectionsFromPort returns the connections leaving portID of nodeID.
func (s *Store) ConnectionsFromPort(ctx context.Context, nodeID, portID string) []graph.Connection {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []graph.Connection
	for _, id := range s.outgoing[nodeID] {
		if c := s.conns[id]; c.FromPortID == portID {
			out = append(out, c)
		}
	}
	return out
}

// collect must be called with the lock held.
func (s *Store) collect(ids []string) []graph.Connection {
	out := make([]graph.Connection, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.conns[id])
	}
	return out
}

var _ graph.Store = (*Store)(nil)
