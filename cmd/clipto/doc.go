// Package main hosts the clipto CLI entrypoint and command graph.
//
// Delivery commands are thin IPC calls against the daemon, which owns the
// queue and the delivery lanes. Commands that need the creator's wallet in
// the loop (login, share, profile) run in the CLI process and talk to the
// backend, the RPC node and Lens directly. Configuration resolution, socket
// discovery and output formatting are centralized here so subcommands stay
// declarative.
package main
