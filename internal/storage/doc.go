// Package storage adds documents to content-addressed storage: an IPFS HTTP
// API node or a MinIO bucket keyed by content hash.
package storage
