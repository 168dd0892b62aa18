// Package ipc exposes the daemon over JSON-RPC Unix sockets and ships the
// matching client used by the CLI.
//
// It owns socket lifecycle management, request/response DTOs, and conversions
// between stored workflows and their wire representations. Errors that carry
// user-facing text are flattened to "<kind>: <message>" because net/rpc only
// transports strings.
package ipc
