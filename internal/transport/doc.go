// Package transport owns the single TCP connection to the game harness.
//
// A Conn is a byte stream with no request correlation beyond ordering: the
// n-th reply read belongs to the n-th reply-bearing command written. Callers
// must keep at most one command in flight; the driver package does this with
// a mutex. Any I/O or framing failure leaves the stream position unknown, so
// the Conn marks itself broken and refuses further use.
package transport
