// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the run lifecycle (load a graph, wire
// observers, execute it), decoupled from any specific entrypoint like a CLI.
package app
