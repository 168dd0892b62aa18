// Package wallet manages the creator's wallet login: connector activation with
// user-facing error classification, chain checks, a persisted session and
// message signing for backend authentication.
package wallet
