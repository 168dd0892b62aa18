// Package config loads, normalizes, and validates Clipto configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// CLIPTO_BACKEND_TOKEN. The Config type centralizes every knob the daemon and
// CLI need, from backend and RPC endpoints to poll bounds and storage
// credentials.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical enums, and clear validation errors.
package config
