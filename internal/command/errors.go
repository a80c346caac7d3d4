package command

import "errors"

var (
	ErrUnknownCommand     = errors.New("command: unknown message type")
	ErrMalformed          = errors.New("command: malformed payload")
	ErrReplyShapeMismatch = errors.New("command: reply shape mismatch")
	ErrNotReply           = errors.New("command: frame is not a reply")
	ErrNilCommand         = errors.New("command: nil command")
)
