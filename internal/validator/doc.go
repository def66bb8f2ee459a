// Package validator performs the static structural checks a graph must pass
// before it may run.
//
// Validate never stops at the first problem: it returns every finding so a
// caller can surface them all at once. Findings of SeverityError block a run;
// SeverityWarning findings are informational.
//
// Checks run in a fixed order:
//
//  1. exactly one entry point (start or scheduler)
//  2. exactly one sink (end)
//  3. required input and output ports are connected
//  4. only fan-in nodes share an input port, only fan-out nodes share an output port
//  5. timer ordering: a delay reachable downstream of another delay is shorter (optional)
//  6. a scheduler's longest downstream path fits in its interval (warning)
//
// followed by connection endpoint checks and a cycle warning.
package validator
