package harness

import (
	"context"
	"errors"

	"github.com/danmuck/birdctl/internal/command"
	"github.com/danmuck/birdctl/internal/game"
	"github.com/danmuck/birdctl/internal/protocol"
)

// ErrHangUp tells the server to drop the connection without replying.
var ErrHangUp = errors.New("harness: hang up")

// Result carries the reply payload for one command. Only the member matching
// the command's reply shape is sent.
type Result struct {
	Ack    bool
	Blob   []byte
	State  game.StateInfo
	Config game.Configuration
	Grades map[int]int

	// Raw replaces the generated reply frame when set. The message id is
	// overwritten with the request id.
	Raw *protocol.Message
}

type Handler interface {
	Handle(ctx context.Context, cmd command.Command) (Result, error)
}

type HandlerFunc func(ctx context.Context, cmd command.Command) (Result, error)

func (f HandlerFunc) Handle(ctx context.Context, cmd command.Command) (Result, error) {
	return f(ctx, cmd)
}

// replyFor builds the frame answering cmd, or nil for one-way commands.
func replyFor(id uint64, cmd command.Command, res Result) *protocol.Message {
	if res.Raw != nil {
		raw := *res.Raw
		raw.Header.MessageID = id
		return &raw
	}
	switch cmd.Reply() {
	case command.ReplyBool:
		return command.NewBoolReply(id, res.Ack)
	case command.ReplyBytes:
		return command.NewBytesReply(id, res.Blob)
	case command.ReplyStateInfo:
		return command.NewStateInfoReply(id, res.State)
	case command.ReplyConfiguration:
		return command.NewConfigurationReply(id, res.Config)
	case command.ReplyGrades:
		return command.NewGradesReply(id, res.Grades)
	default:
		return nil
	}
}
