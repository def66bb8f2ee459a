// Package executor runs a flow graph.
//
// An Executor owns everything that changes during a run: the per-node State
// values, the presentation run-state, and a table of pending work (delayed
// effects, in-transit forwards, repeats, buffered releases and periodic
// sources). A single tick function scans that table; it is called by a
// scheduler.Loop while running, or once per Step. All propagation inside a
// tick is synchronous and happens under one mutex, so behaviors never run
// concurrently with each other.
//
//	Start ──► validate ──► reset ──► fire sources ──► loop ──► tick ... ──► completed
//	             │                                     ▲  │
//	             ▼                              Resume │  ▼ Pause
//	      validationFailed                             paused
//
// Events raised while the lock is held are queued and delivered to observers
// after it is released, in the order they were raised.
package executor
