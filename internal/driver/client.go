package driver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/birdctl/internal/command"
	logs "github.com/danmuck/birdctl/internal/logging"
	"github.com/danmuck/birdctl/internal/observability"
	"github.com/danmuck/birdctl/internal/protocol"
	"github.com/danmuck/birdctl/internal/transport"
)

// ScreenshotSink receives frames captured by Client.Screenshot.
type ScreenshotSink interface {
	Save(name string, data []byte) error
}

type Option func(*Client)

// WithTiming replaces DefaultTiming as given; zero fields are kept as zero.
func WithTiming(t Timing) Option {
	return func(c *Client) { c.timing = t.clamped() }
}

func WithScreenshotSink(s ScreenshotSink) Option {
	return func(c *Client) { c.sink = s }
}

// Client drives the harness over one connection. It is safe for concurrent
// use; calls are executed one at a time.
type Client struct {
	conn   *transport.Conn
	timing Timing
	sink   ScreenshotSink

	mu    sync.Mutex
	phase atomic.Int32
}

// New takes ownership of conn.
func New(conn *transport.Conn, opts ...Option) (*Client, error) {
	if conn == nil {
		return nil, ErrConnRequired
	}
	c := &Client{
		conn:   conn,
		timing: DefaultTiming(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Dial connects to the harness described by cfg and returns a client for it.
func Dial(ctx context.Context, cfg transport.Config, opts ...Option) (*Client, error) {
	conn, err := transport.Dial(ctx, cfg)
	if err != nil {
		return nil, &OpError{Op: "Dial", Err: err}
	}
	return New(conn, opts...)
}

// Phase reports the exchange phase of the call in progress.
func (c *Client) Phase() Phase {
	return Phase(c.phase.Load())
}

func (c *Client) Timing() Timing {
	return c.timing
}

// Err returns the failure that broke the connection, or nil.
func (c *Client) Err() error {
	return c.conn.Err()
}

func (c *Client) RemoteAddr() string {
	return c.conn.RemoteAddr()
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) setPhase(p Phase) {
	c.phase.Store(int32(p))
}

// exchange sends cmd and decodes its reply. The caller holds c.mu.
func exchange[T any](ctx context.Context, c *Client, op string, cmd command.Command, decode func(*protocol.Message) (T, error)) (T, error) {
	var zero T
	start := time.Now()
	defer c.setPhase(PhaseIdle)

	c.setPhase(PhaseEncoding)
	if _, err := c.conn.Send(cmd); err != nil {
		return zero, c.fail(op, cmd, start, err)
	}
	if err := c.conn.Flush(); err != nil {
		return zero, c.fail(op, cmd, start, err)
	}
	c.setPhase(PhaseSent)

	c.setPhase(PhaseAwaitingReply)
	msg, err := c.conn.Receive(ctx, cmd.Reply())
	if err != nil {
		return zero, c.fail(op, cmd, start, err)
	}

	c.setPhase(PhaseDecoded)
	v, err := decode(msg)
	if err != nil {
		return zero, c.fail(op, cmd, start, fmt.Errorf("%w: %w", transport.ErrDecode, err))
	}
	observability.RecordCommand(cmd.Name(), resultLabel(v), time.Since(start), true)
	return v, nil
}

func call[T any](ctx context.Context, c *Client, op string, cmd command.Command, decode func(*protocol.Message) (T, error)) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return exchange(ctx, c, op, cmd, decode)
}

// sendLocked writes one-way commands and flushes them. Nothing is written
// once ctx is done. The caller holds c.mu.
func (c *Client) sendLocked(ctx context.Context, op string, cmds ...command.OneWayCommand) error {
	if err := ctx.Err(); err != nil {
		logs.Debugf("driver.%s not sent command=%q err=%v", op, cmds[0].Name(), err)
		return &OpError{Op: op, Command: cmds[0].Name(), Err: err}
	}
	start := time.Now()
	defer c.setPhase(PhaseIdle)
	c.setPhase(PhaseEncoding)
	for _, cmd := range cmds {
		if _, err := c.conn.Send(cmd); err != nil {
			return c.fail(op, cmd, start, err)
		}
	}
	if err := c.conn.Flush(); err != nil {
		return c.fail(op, cmds[0], start, err)
	}
	c.setPhase(PhaseSent)
	for _, cmd := range cmds {
		observability.RecordCommand(cmd.Name(), observability.ResultOK, 0, false)
	}
	return nil
}

func (c *Client) fail(op string, cmd command.Command, start time.Time, err error) error {
	name := cmd.Name()
	observability.RecordCommand(name, observability.ResultError, time.Since(start), cmd.Reply() != command.ReplyNone)
	logs.Warnf("driver.%s command=%q phase=%s err=%v", op, name, c.Phase(), err)
	return &OpError{Op: op, Command: name, Err: err}
}

func resultLabel(v any) string {
	if ack, ok := v.(bool); ok && !ack {
		return observability.ResultRejected
	}
	return observability.ResultOK
}

func (c *Client) sendBool(ctx context.Context, op string, cmd command.BoolCommand) (bool, error) {
	ok, err := call(ctx, c, op, cmd, command.DecodeBoolReply)
	if err == nil {
		logs.Debugf("driver.%s command=%q ack=%v", op, cmd.Name(), ok)
	}
	return ok, err
}

func (c *Client) sendOneWay(ctx context.Context, op string, cmds ...command.OneWayCommand) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendLocked(ctx, op, cmds...)
}

// isCanceled reports whether err came from ctx rather than the connection.
func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
