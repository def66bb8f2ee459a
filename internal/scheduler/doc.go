// Package scheduler drives the executor's tick function from a host clock.
//
// The executor owns all pending work (delays, forwards, repeats, periodic
// sources) as plain table entries. The scheduler only decides *when* the
// table is scanned: a Loop calls the tick function once per interval until it
// is stopped. Pausing a run is stopping the loop; stepping is calling the tick
// function directly.
//
// Stop never waits for an in-flight callback, so it is safe to call while
// holding a lock the callback also takes. Callers that need to reject a late
// callback compare the generation passed to it with Generation().
package scheduler
