// Package backend is the HTTP client for the Clipto REST API: upload links,
// transcode status, metadata finalize, delivery indexing, request lookup and
// creator profiles.
package backend
