// Package daemon coordinates the long-running Clipto process.
//
// It wires configuration, the workflow store, the delivery lanes and the
// event hub into a single lifecycle with flock-based locking to prevent
// multiple instances per state directory. On start it returns deliveries
// left mid-stage by a crashed run to their stage entry; it then exposes the
// operations the CLI reaches over IPC (submit, mint confirmation, retry,
// removal, event polling and health).
//
// Keep orchestration logic here: delivery stages live in internal/delivery
// and lane scheduling in internal/workflow.
package daemon
