// Package profile validates creator profile forms and registers or updates
// creators through the exchange contract and the backend.
package profile
