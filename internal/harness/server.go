package harness

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/danmuck/birdctl/internal/command"
	logs "github.com/danmuck/birdctl/internal/logging"
)

var ErrHandlerRequired = errors.New("harness: handler required")

// Server accepts harness connections and serves each one sequentially:
// read a command, call the handler, write the reply if the command has one.
type Server struct {
	handler Handler

	mu          sync.Mutex
	conns       map[net.Conn]struct{}
	clientCount atomic.Int64
}

func NewServer(h Handler) (*Server, error) {
	if h == nil {
		return nil, ErrHandlerRequired
	}
	return &Server{
		handler: h,
		conns:   make(map[net.Conn]struct{}),
	}, nil
}

// ListenAndServe binds addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", strings.TrimSpace(addr))
	if err != nil {
		return err
	}
	logs.Infof("harness listening addr=%q", ln.Addr().String())
	return s.Serve(ctx, ln)
}

// Serve runs the accept loop on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer ln.Close()
	go func() {
		<-ctx.Done()
		s.closeAllConns()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		s.trackConn(conn)
		go s.handleConn(ctx, conn)
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	defer s.untrackConn(conn)
	remote := conn.RemoteAddr().String()
	active := s.clientCount.Add(1)
	logs.Infof("harness client connected remote=%q active_clients=%d", remote, active)
	defer func() {
		remaining := s.clientCount.Add(-1)
		logs.Infof("harness client disconnected remote=%q active_clients=%d", remote, remaining)
	}()

	reader := bufio.NewReader(conn)
	for {
		id, cmd, err := command.ReadCommand(reader)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				logs.Warnf("harness.handleConn read remote=%q err=%v", remote, err)
			}
			return
		}
		logs.Debugf("harness.handleConn id=%d command=%q", id, cmd.Name())

		res, err := s.handler.Handle(ctx, cmd)
		if err != nil {
			if !errors.Is(err, ErrHangUp) {
				logs.Warnf("harness.handleConn handler command=%q err=%v", cmd.Name(), err)
			}
			return
		}
		reply := replyFor(id, cmd, res)
		if reply == nil {
			continue
		}
		if err := command.WriteReply(conn, reply); err != nil {
			logs.Warnf("harness.handleConn write remote=%q err=%v", remote, err)
			return
		}
	}
}

func (s *Server) trackConn(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[conn] = struct{}{}
}

func (s *Server) untrackConn(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn)
}

func (s *Server) closeAllConns() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		_ = conn.Close()
	}
}
