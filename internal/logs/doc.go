// Package logs reads the daemon and delivery log files for the CLI.
//
// Last returns the newest lines of a file with bounded memory, and Follow
// streams lines appended after an offset until its context ends. A missing
// file is treated as empty so `clipto logs --follow` can be started before
// the daemon writes anything.
package logs
