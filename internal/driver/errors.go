package driver

import (
	"errors"
	"fmt"
)

var ErrConnRequired = errors.New("driver: connection required")

// OpError reports which operation and command failed. Err wraps one of the
// transport sentinels (ErrConnect, ErrIO, ErrBroken, ErrDecode, ErrClosed) or
// a context error from a settle wait.
type OpError struct {
	Op      string
	Command string
	Err     error
}

func (e *OpError) Error() string {
	if e.Command == "" {
		return fmt.Sprintf("driver %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("driver %s [%s]: %v", e.Op, e.Command, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}
