package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/danmuck/birdctl/internal/command"
	logs "github.com/danmuck/birdctl/internal/logging"
	"github.com/danmuck/birdctl/internal/protocol"
)

// Conn is one persistent stream to the harness. Send, Flush and Receive are
// not safe for concurrent use; Close may be called from any goroutine.
type Conn struct {
	conn       net.Conn
	reader     *bufio.Reader
	writer     *bufio.Writer
	maxPayload uint64

	nextID  uint64
	pending []uint64
	// abandoned counts replies whose reader gave up before their first byte
	// arrived. They are still owed by the harness and are discarded on the
	// next Receive.
	abandoned int

	mu     sync.Mutex
	broken error
	closed bool
}

// Dial opens the connection described by cfg. It does not retry.
func Dial(ctx context.Context, cfg Config) (*Conn, error) {
	cfg = cfg.WithDefaults()
	addr := cfg.Address()
	dialer := net.Dialer{Timeout: cfg.ConnectTimeout}
	raw, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		logs.Warnf("transport.Dial addr=%q err=%v", addr, err)
		return nil, fmt.Errorf("%w: %s: %w", ErrConnect, addr, err)
	}
	logs.Debugf("transport.Dial connected addr=%q local=%q", addr, raw.LocalAddr())
	return NewConn(raw, cfg.MaxPayloadBytes), nil
}

// NewConn wraps an established stream. maxPayload of 0 selects the protocol default.
func NewConn(nc net.Conn, maxPayload uint64) *Conn {
	if maxPayload == 0 {
		maxPayload = protocol.DefaultMaxPayload
	}
	return &Conn{
		conn:       nc,
		reader:     bufio.NewReader(nc),
		writer:     bufio.NewWriter(nc),
		maxPayload: maxPayload,
	}
}

// RemoteAddr reports the harness address.
func (c *Conn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// Err returns the failure that broke the stream, or nil.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.broken
}

// Send buffers cmd as one frame and returns the message id assigned to it.
// Nothing reaches the socket until Flush or Receive.
func (c *Conn) Send(cmd command.Command) (uint64, error) {
	if err := c.usable(); err != nil {
		return 0, err
	}
	c.nextID++
	id := c.nextID
	if err := command.WriteCommand(c.writer, id, cmd); err != nil {
		if errors.Is(err, command.ErrNilCommand) {
			return 0, err
		}
		return 0, c.fail(fmt.Errorf("%w: write %s: %w", ErrIO, cmd.Name(), err))
	}
	if cmd.Reply() != command.ReplyNone {
		c.pending = append(c.pending, id)
	}
	logs.Tracef("transport.Send id=%d command=%q buffered=%d", id, cmd.Name(), c.writer.Buffered())
	return id, nil
}

// Flush writes any buffered frames to the socket.
func (c *Conn) Flush() error {
	if err := c.usable(); err != nil {
		return err
	}
	if c.writer.Buffered() == 0 {
		return nil
	}
	if err := c.writer.Flush(); err != nil {
		return c.fail(fmt.Errorf("%w: flush: %w", ErrIO, err))
	}
	return nil
}

// Receive flushes pending output and reads the next frame, which must be a
// reply of the given shape. A deadline on ctx bounds the read; without one
// the call blocks until the harness answers or the stream fails.
//
// When ctx ends before any byte of the reply arrives the call fails with
// ErrAbandoned and the stream stays usable: the late reply is discarded by
// the next Receive. A well-framed reply of the wrong shape fails with
// ErrDecode and also leaves the stream usable. A read cut off mid-frame, a
// framing error or a socket failure breaks the Conn.
func (c *Conn) Receive(ctx context.Context, shape command.ReplyShape) (*protocol.Message, error) {
	if err := c.Flush(); err != nil {
		return nil, err
	}
	for c.abandoned > 0 {
		late, err := c.readFrame(ctx)
		if err != nil {
			if errors.Is(err, ErrAbandoned) {
				c.abandoned++
			}
			return nil, err
		}
		c.abandoned--
		id, _ := c.popPending()
		logs.Debugf("transport.Receive discarded late reply id=%d expected=%d type=0x%04x", late.Header.MessageID, id, uint32(late.Header.MessageType))
	}

	msg, err := c.readFrame(ctx)
	if err != nil {
		if errors.Is(err, ErrAbandoned) {
			c.abandoned++
		}
		return nil, err
	}

	expected, ok := c.popPending()
	if ok && msg.Header.MessageID != expected {
		logs.Warnf("transport.Receive reply id=%d expected=%d", msg.Header.MessageID, expected)
	}
	if err := command.CheckReplyShape(msg, shape); err != nil {
		logs.Warnf("transport.Receive shape=%s type=0x%04x err=%v", shape, uint32(msg.Header.MessageType), err)
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	logs.Tracef("transport.Receive id=%d shape=%s payload=%d", msg.Header.MessageID, shape, msg.Header.PayloadLen)
	return msg, nil
}

// Close releases the socket. It is safe to call more than once.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	err := c.conn.Close()
	logs.Debugf("transport.Close remote=%q err=%v", c.conn.RemoteAddr(), err)
	return err
}

func (c *Conn) usable() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.broken != nil {
		return fmt.Errorf("%w: %w", ErrBroken, c.broken)
	}
	return nil
}

// fail records the first stream failure and returns err.
func (c *Conn) fail(err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.broken == nil {
		c.broken = err
		logs.Warnf("transport.Conn broken remote=%q err=%v", c.conn.RemoteAddr(), err)
	}
	return err
}

// readFrame reads one frame under ctx. Waiting for the first byte is
// abandonable; once a frame has started, an interruption breaks the stream.
func (c *Conn) readFrame(ctx context.Context) (*protocol.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w: %w", ErrIO, ErrAbandoned, err)
	}
	deadline, _ := ctx.Deadline()
	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return nil, c.fail(fmt.Errorf("%w: set read deadline: %w", ErrIO, err))
	}
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	if _, err := c.reader.Peek(1); err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			cause := ctx.Err()
			if cause == nil {
				cause = context.DeadlineExceeded
			}
			logs.Debugf("transport.Receive abandoned pending=%d err=%v", len(c.pending), cause)
			return nil, fmt.Errorf("%w: %w: %w", ErrIO, ErrAbandoned, cause)
		}
		return nil, c.fail(c.classifyRead(ctx, err))
	}
	msg, err := protocol.DecodeLimited(c.reader, c.maxPayload)
	if err != nil {
		return nil, c.fail(c.classifyRead(ctx, err))
	}
	return msg, nil
}

func (c *Conn) popPending() (uint64, bool) {
	if len(c.pending) == 0 {
		return 0, false
	}
	id := c.pending[0]
	c.pending = c.pending[1:]
	return id, true
}

func (c *Conn) classifyRead(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, io.EOF):
		return fmt.Errorf("%w: read: connection closed by peer: %w", ErrIO, err)
	case isFramingError(err):
		return fmt.Errorf("%w: read: %w", ErrDecode, err)
	case ctx.Err() != nil:
		return fmt.Errorf("%w: read: %w", ErrIO, ctx.Err())
	default:
		return fmt.Errorf("%w: read: %w", ErrIO, err)
	}
}

func isFramingError(err error) bool {
	return errors.Is(err, protocol.ErrInvalidMagic) ||
		errors.Is(err, protocol.ErrUnsupportedVersion) ||
		errors.Is(err, protocol.ErrInvalidHeaderLen) ||
		errors.Is(err, protocol.ErrPayloadTooLarge) ||
		errors.Is(err, protocol.ErrInvalidLength)
}
