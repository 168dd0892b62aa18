// Package delivery implements the workflow stages that deliver a video for a
// booking request: upload, transcode and finalize, mint, and index.
//
// Each stage is a stage.Handler run by the workflow manager. Remote work is
// recorded as queue jobs so the stage sequence of a workflow can be audited,
// and every status loop runs through the bounded poller.
package delivery
