// Package inmemorystore provides an ephemeral, thread-safe, in-memory
// implementation of the runstate.Store interface.
//
// The executor writes node and connection states on every activation and
// every tick while observers read them concurrently, so the store keeps one
// sync.Map per concern instead of a single global lock.
package inmemorystore
