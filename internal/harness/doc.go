// Package harness is a stand-in for the game-control harness. It speaks the
// same framing as the real server on port 2004, answers each command with a
// reply of the declared shape, and is used by tests and cmd/birdstub.
package harness
