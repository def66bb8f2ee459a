package graph

import "context"

// Store is read access to a graph plus the mutators used while assembling it.
//
// Implementations MUST be safe for concurrent use. Slices returned by the
// query methods are snapshots the caller may keep. Nodes and connections are
// returned in insertion order so that propagation order is stable.
type Store interface {
	// AddNode registers a node. Adding a second node with the same id is an error.
	AddNode(ctx context.Context, n *Node) error

	// AddConnection registers a connection. Both endpoint nodes must already
	// exist; port existence is left to the validator.
	AddConnection(ctx context.Context, c Connection) error

	// Node looks a node up by id.
	Node(ctx context.Context, id string) (*Node, bool)

	// Nodes returns every node in insertion order.
	Nodes(ctx context.Context) []*Node

	// Connection looks a connection up by id.
	Connection(ctx context.Context, id string) (Connection, bool)

	// Connections returns every connection in insertion order.
	Connections(ctx context.Context) []Connection

	// ConnectionsFrom returns the connections leaving nodeID.
	ConnectionsFrom(ctx context.Context, nodeID string) []Connection

	// ConnectionsTo returns the connections entering nodeID.
	ConnectionsTo(ctx context.Context, nodeID string) []Connection

	// ConnectionsFromPort returns the connections leaving a specific output port.
	ConnectionsFromPort(ctx context.Context, nodeID, portID string) []Connection
}
