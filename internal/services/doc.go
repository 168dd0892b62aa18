// Package services defines shared utilities consumed by the workflow stage
// handlers and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp workflow IDs, stage names, lanes, and
//     correlation identifiers for logging.
//   - Error markers for the failure taxonomy (validation, provider, transient,
//     unexpected) plus the Wrap helper that keeps stage context on every error.
//   - Field level validation errors and user-facing message lookup.
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
