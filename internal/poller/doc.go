// Package poller drives a remote status query until the job it tracks reaches
// a terminal state.
//
// A Tracker polls at a fixed interval, backs off exponentially after transient
// query errors, gives up after a bounded number of consecutive errors or an
// overall timeout, and stops when its context is canceled. Once a terminal
// outcome was observed further steps return the cached outcome without
// querying again or re-firing callbacks.
package poller
