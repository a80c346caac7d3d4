// Package protocol owns the harness wire contract and parsing primitives.
//
// Ownership boundary:
// - frame/header primitives
// - tlv payload primitives
// - schema validation entry points
//
// Message type assignment and payload layouts per command live in package command.
package protocol
