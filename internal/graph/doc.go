// Package graph defines the structural model of a flow: nodes with typed
// ports, and the connections that join an output port of one node to an
// input port of another.
//
// # Ownership
//
// The graph is owned by whoever assembled it (the HCL loader, a test, an
// editor). The engine only reads it:
//
//	┌──────────────┐   read-only    ┌──────────────┐
//	│ graph.Store  │ ─────────────▶ │   executor   │
//	│ (structure)  │                │  validator   │
//	└──────────────┘                └──────┬───────┘
//	                                       │ writes
//	                                       ▼
//	                                ┌──────────────┐
//	                                │runstate.Store│
//	                                │ (run status) │
//	                                └──────────────┘
//
// Transient run status (idle, active, waiting, ...) never lives on the
// model. It is recorded in a runstate.Store keyed by node and connection id,
// which keeps the graph description side-effect-free and serializable.
//
// # Invariants
//
// A connection must reference ports that exist on the nodes it names. The
// model does not enforce this; the validator does, before a run starts.
//
// See internal/inmemorygraph for the reference Store implementation.
package graph
