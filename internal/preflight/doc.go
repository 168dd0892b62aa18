// Package preflight checks the local paths and remote services clipto needs
// before deliveries can make progress.
//
// Local checks (directories, credentials, wallet session) never touch the
// network. Online checks contact the backend, the RPC node and the Lens API and
// run only when the caller asks for them, as `clipto status --online` does.
package preflight
