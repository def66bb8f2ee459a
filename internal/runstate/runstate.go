// Package runstate defines the presentation-facing state of a run: the
// visual status of every node and connection plus their progress fractions.
//
// The store is written by the executor and read by observers and callers.
// It never influences execution; behaviors keep their own state in nodes.State.
package runstate

// NodeState is the presentation status of a node.
type NodeState string

const (
	NodeIdle      NodeState = "idle"
	NodeActive    NodeState = "active"
	NodeWaiting   NodeState = "waiting"
	NodeCompleted NodeState = "completed"
	NodeError     NodeState = "error"
)

// ConnectionState is the presentation status of a connection.
type ConnectionState string

const (
	ConnectionIdle      ConnectionState = "idle"
	ConnectionActive    ConnectionState = "active"
	ConnectionCompleted ConnectionState = "completed"
)

// Snapshot is a point-in-time copy of a run's presentation state.
type Snapshot struct {
	Nodes              map[string]NodeState
	NodeProgress       map[string]float64
	Connections        map[string]ConnectionState
	ConnectionProgress map[string]float64
}

// Store holds the presentation state of one run.
//
// Implementations must be safe for concurrent use. Unknown ids read as idle
// with zero progress.
type Store interface {
	SetNode(id string, s NodeState)
	Node(id string) NodeState
	SetNodeProgress(id string, p float64)
	NodeProgress(id string) float64

	SetConnection(id string, s ConnectionState)
	Connection(id string) ConnectionState
	SetConnectionProgress(id string, p float64)
	ConnectionProgress(id string) float64

	Snapshot() Snapshot
	// Reset returns every node and connection to idle with zero progress.
	Reset()
}

// ClampProgress limits p to [0, 1].
func ClampProgress(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}
