// Package chain talks to an Ethereum JSON-RPC node: message signing, contract
// transactions, receipt lookups and token transfer history. Calls against the
// Clipto exchange contracts are encoded from its ABI.
package chain
