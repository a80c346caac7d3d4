package transport

import "errors"

var (
	// ErrConnect covers resolution and dial failures.
	ErrConnect = errors.New("transport: connect failed")
	// ErrIO covers read and write failures on an established stream.
	ErrIO = errors.New("transport: i/o failure")
	// ErrDecode covers frames that could not be interpreted as the expected reply.
	ErrDecode = errors.New("transport: decode failure")
	// ErrAbandoned marks a reply the caller stopped waiting for before it
	// arrived. The stream stays usable.
	ErrAbandoned = errors.New("transport: reply abandoned")
	// ErrBroken is returned by every call after a stream failure.
	ErrBroken = errors.New("transport: connection broken")
	ErrClosed = errors.New("transport: connection closed")
)
