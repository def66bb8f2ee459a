// Package nodes implements the closed set of node kinds a flow graph can be
// built from.
//
// Each kind has one Behavior whose Process method maps an arriving message
// to an Effect: what to forward, on which output port, and under which timing
// or fan-out conditions. Behaviors are configured once from node properties
// and hold no mutable state themselves. Everything that changes during a run
// (gate slots, fan-in buffers, queues, counters, scheduler run counts) lives
// in a State value that the executor owns and passes in on every call.
//
// A Registry maps graph node types to Definitions. There is no global
// registry; callers build one with Builtin() or NewRegistry() and pass it to
// whatever loads or instantiates graphs.
package nodes
