// Package upload sends a local video to a resumable upload endpoint in
// Content-Range chunks and publishes progress, success and error events on a
// channel.
package upload
