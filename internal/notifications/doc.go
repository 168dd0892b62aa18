// Package notifications delivers workflow milestones to ntfy and keeps a
// bounded in-process history that IPC clients follow.
//
// Service.Publish formats an Event into an ntfy message. Per-event toggles in
// the [notifications] config section silence milestones the operator does not
// care about. Hub records every workflow event regardless of ntfy so
// `clipto deliver watch` can poll for what happened since its last cursor.
package notifications
