// Package workflow advances deliveries through the upload, transcode, mint
// and index stages.
//
// A Machine names every allowed transition together with the guard that must
// hold for it. The Manager polls the queue, checks the entry guard of the next
// stage, runs the registered stage handler and persists the result. Stale work
// is reclaimed through heartbeats and every failure is recorded with its error
// kind and the message shown to the creator.
//
// Two lanes run independently: the media lane uploads and transcodes, and the
// chain lane mints and indexes. A video can upload while another delivery
// waits for its receipt.
//
// Minting never starts on its own. A workflow parks in metadata_ready until
// RequestMint records the creator's confirmation exactly once.
package workflow
