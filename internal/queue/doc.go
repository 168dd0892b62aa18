// Package queue persists delivery workflows and their remote jobs in SQLite and
// exposes helpers for driving their lifecycle.
//
// The Store manages database connections, schema initialization, stats
// queries, heartbeat tracking, stuck-item recovery, and the guarded status
// transitions the orchestrator relies on (mint requests, retries, stage order
// of remote jobs). Workflows capture progress, content URIs, transaction
// hashes, and classified failures so stages can coordinate without additional
// state.
//
// Schema changes bump the version in schema.go; users clear the database to
// adopt the new schema.
package queue
