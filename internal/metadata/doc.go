// Package metadata validates the NFT metadata produced by finalize and builds
// the Lens publication metadata used when sharing a delivery. Both documents
// are checked against embedded JSON schemas.
package metadata
