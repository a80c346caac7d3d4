package driver

import (
	"bytes"
	"context"
	"errors"
	"net"
	"reflect"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/danmuck/birdctl/internal/command"
	"github.com/danmuck/birdctl/internal/game"
	"github.com/danmuck/birdctl/internal/harness"
	"github.com/danmuck/birdctl/internal/testutil/testlog"
	"github.com/danmuck/birdctl/internal/transport"
)

type recordingSink struct {
	mu    sync.Mutex
	names []string
	blobs [][]byte
	err   error
}

func (s *recordingSink) Save(name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names = append(s.names, name)
	s.blobs = append(s.blobs, append([]byte(nil), data...))
	return s.err
}

func listen(t *testing.T) (net.Listener, transport.Config) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	host, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)
	return ln, transport.Config{Host: host, Port: port, ConnectTimeout: time.Second}
}

func startHarness(t *testing.T, h harness.Handler) transport.Config {
	t.Helper()
	srv, err := harness.NewServer(h)
	if err != nil {
		t.Fatalf("new harness: %v", err)
	}
	ln, cfg := listen(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return cfg
}

func newClient(t *testing.T, cfg transport.Config, opts ...Option) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, err := Dial(ctx, cfg, opts...)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestNewRequiresConn(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, ErrConnRequired) {
		t.Fatalf("expected ErrConnRequired, got %v", err)
	}
}

func TestDialFailureIsConnectError(t *testing.T) {
	testlog.Start(t)
	ln, cfg := listen(t)
	_ = ln.Close()

	_, err := Dial(context.Background(), cfg)
	if !errors.Is(err, transport.ErrConnect) {
		t.Fatalf("expected ErrConnect, got %v", err)
	}
	var opErr *OpError
	if !errors.As(err, &opErr) || opErr.Op != "Dial" {
		t.Fatalf("expected OpError{Op: Dial}, got %v", err)
	}
}

func TestConfigureTrue(t *testing.T) {
	testlog.Start(t)
	g := harness.NewScripted()
	c := newClient(t, startHarness(t, g))

	ok, err := c.Configure(testContext(t), "AUS_Team")
	if err != nil || !ok {
		t.Fatalf("configure got=(%v,%v)", ok, err)
	}
	if c.Phase() != PhaseIdle {
		t.Fatalf("phase after call got=%s", c.Phase())
	}
	want := []command.Command{command.Configure{TeamID: "AUS_Team"}}
	if got := g.Received(); !reflect.DeepEqual(got, want) {
		t.Fatalf("received got=%v want=%v", got, want)
	}
}

func TestFalseAckIsNotAnError(t *testing.T) {
	testlog.Start(t)
	c := newClient(t, startHarness(t, harness.NewScripted()))

	ok, err := c.LoadLevel(testContext(t), 3)
	if err != nil {
		t.Fatalf("load level: %v", err)
	}
	if ok {
		t.Fatalf("expected rejection before configure")
	}
}

func TestClosedSocketIsIOFailure(t *testing.T) {
	testlog.Start(t)
	ln, cfg := listen(t)
	accepted := make(chan struct{})
	go func() {
		defer close(accepted)
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		_ = conn.Close()
	}()
	t.Cleanup(func() { _ = ln.Close() })

	c := newClient(t, cfg)
	<-accepted

	ok, err := c.Configure(testContext(t), "AUS_Team")
	if err == nil {
		t.Fatalf("expected failure, got ack=%v", ok)
	}
	if !errors.Is(err, transport.ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}
	var opErr *OpError
	if !errors.As(err, &opErr) || opErr.Command != "Configuration" {
		t.Fatalf("expected OpError for Configuration, got %v", err)
	}

	// Every later call fails fast without touching the socket.
	start := time.Now()
	if _, err := c.GetStateInfo(testContext(t)); !errors.Is(err, transport.ErrBroken) {
		t.Fatalf("expected ErrBroken, got %v", err)
	}
	if err := c.Click(testContext(t), 1, 1); !errors.Is(err, transport.ErrBroken) {
		t.Fatalf("expected ErrBroken on one-way, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("broken calls should fail fast, took %s", elapsed)
	}
	if c.Err() == nil {
		t.Fatalf("client should report the broken cause")
	}
}

func TestScreenshotHandsBlobToSink(t *testing.T) {
	testlog.Start(t)
	g := harness.NewScripted()
	frame := bytes.Repeat([]byte{0x42}, 100)
	g.SetScreenshot(frame)
	sink := &recordingSink{}
	c := newClient(t, startHarness(t, g), WithScreenshotSink(sink))

	blob, err := c.Screenshot(testContext(t), "frame1.png")
	if err != nil {
		t.Fatalf("screenshot: %v", err)
	}
	if !bytes.Equal(blob, frame) {
		t.Fatalf("blob len got=%d want=100", len(blob))
	}
	if len(sink.names) != 1 || sink.names[0] != "frame1.png" || !bytes.Equal(sink.blobs[0], frame) {
		t.Fatalf("sink got names=%v", sink.names)
	}
}

func TestScreenshotSinkFailureIsLogged(t *testing.T) {
	testlog.Start(t)
	g := harness.NewScripted()
	g.SetScreenshot([]byte("frame"))
	sink := &recordingSink{err: errors.New("disk full")}
	c := newClient(t, startHarness(t, g), WithScreenshotSink(sink))

	blob, err := c.Screenshot(testContext(t), "frame2.png")
	if err != nil {
		t.Fatalf("sink failure must not fail the call: %v", err)
	}
	if string(blob) != "frame" {
		t.Fatalf("blob got=%q", blob)
	}
}

func TestZoomOutWaitsForSettle(t *testing.T) {
	testlog.Start(t)
	g := harness.NewScripted()
	timing := Timing{ZoomSettle: 150 * time.Millisecond, MoveUnit: 10 * time.Millisecond, ZoomSteps: 15}
	c := newClient(t, startHarness(t, g), WithTiming(timing))

	start := time.Now()
	if err := c.ZoomOut(testContext(t)); err != nil {
		t.Fatalf("zoom out: %v", err)
	}
	if elapsed := time.Since(start); elapsed < timing.ZoomSettle {
		t.Fatalf("zoom out returned after %s, before settle %s", elapsed, timing.ZoomSettle)
	}

	// A reply-bearing call afterwards proves every wheel frame was consumed in order.
	if _, err := c.GetStateInfo(testContext(t)); err != nil {
		t.Fatalf("state after zoom: %v", err)
	}
	received := g.Received()
	if len(received) != 16 {
		t.Fatalf("received %d commands, want 16", len(received))
	}
	for i := 0; i < 15; i++ {
		if received[i] != (command.MouseWheel{Delta: -1}) {
			t.Fatalf("command %d got=%v", i, received[i])
		}
	}
}

func TestZoomOutHonorsCancel(t *testing.T) {
	testlog.Start(t)
	timing := Timing{ZoomSettle: 5 * time.Second, MoveUnit: time.Millisecond, ZoomSteps: 1}
	c := newClient(t, startHarness(t, harness.NewScripted()), WithTiming(timing))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := c.ZoomOut(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if c.Err() != nil {
		t.Fatalf("interrupted settle must not break the connection: %v", c.Err())
	}
}

func TestMakeMoveForwardsDeltaAndWaits(t *testing.T) {
	testlog.Start(t)
	g := harness.NewScripted()
	timing := Timing{ZoomSettle: time.Millisecond, MoveUnit: 40 * time.Millisecond, ZoomSteps: 1}
	c := newClient(t, startHarness(t, g), WithTiming(timing))

	start := time.Now()
	if err := c.MakeMove(testContext(t), 190, 370, -120, 80, 3); err != nil {
		t.Fatalf("make move: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 3*timing.MoveUnit {
		t.Fatalf("make move returned after %s", elapsed)
	}
	if _, err := c.GetStateInfo(testContext(t)); err != nil {
		t.Fatalf("state: %v", err)
	}
	want := command.Drag{X: 190, Y: 370, DX: -120, DY: 80}
	if got := g.Received()[0]; got != want {
		t.Fatalf("drag got=%v want=%v", got, want)
	}
}

func TestShootAndConfiguration(t *testing.T) {
	testlog.Start(t)
	g := harness.NewScripted()
	g.SetGlobalGrade(1, 50000)
	c := newClient(t, startHarness(t, g))
	ctx := testContext(t)

	if ok, err := c.ConfigureWithResolution(ctx, "AUS_Team", "1244768"); err != nil || !ok {
		t.Fatalf("configure: (%v,%v)", ok, err)
	}
	if ok, err := c.LoadLevel(ctx, 1); err != nil || !ok {
		t.Fatalf("load: (%v,%v)", ok, err)
	}
	if ok, err := c.Shoot(ctx, []game.Shot{game.NewShot(100, 300, 0, 1500)}); err != nil || !ok {
		t.Fatalf("shoot: (%v,%v)", ok, err)
	}
	shots := []game.Shot{game.NewShot(100, 300, 0, 1500), game.NewDragShot(90, 310, -50, 40, 0, 2000)}
	info, err := c.ShootWithStateInfoReturned(ctx, shots)
	if err != nil {
		t.Fatalf("shoot with state: %v", err)
	}
	if !info.Won() || info.Score != 3*harness.DefaultShotScore {
		t.Fatalf("state got=%+v", info)
	}

	cfg, err := c.GetConfiguration(ctx, "AUS_Team")
	if err != nil {
		t.Fatalf("get configuration: %v", err)
	}
	if cfg.PlayerID != "AUS_Team" || cfg.LevelGrades[1] != info.Score {
		t.Fatalf("configuration got=%+v", cfg)
	}
	grades, err := c.GetGlobalConfiguration(ctx)
	if err != nil {
		t.Fatalf("global: %v", err)
	}
	if grades[1] != 50000 {
		t.Fatalf("global grades got=%v", grades)
	}

	if ok, err := c.Restart(ctx); err != nil || !ok {
		t.Fatalf("restart: (%v,%v)", ok, err)
	}
	if ok, err := c.LoadNextLevel(ctx); err != nil || !ok {
		t.Fatalf("load next: (%v,%v)", ok, err)
	}
	if ok, err := c.NextLevel(ctx); err != nil || !ok {
		t.Fatalf("next level: (%v,%v)", ok, err)
	}
	if ok, err := c.FinishRun(ctx); err != nil || !ok {
		t.Fatalf("finish run: (%v,%v)", ok, err)
	}
	if err := c.FinishPlay(ctx); err != nil {
		t.Fatalf("finish play: %v", err)
	}
	if _, err := c.GetStateInfo(ctx); err != nil {
		t.Fatalf("state after finish play: %v", err)
	}
}

func TestShapeMismatchIsDecodeError(t *testing.T) {
	testlog.Start(t)
	cfg := startHarness(t, harness.HandlerFunc(func(context.Context, command.Command) (harness.Result, error) {
		return harness.Result{Raw: command.NewBytesReply(0, []byte("nope"))}, nil
	}))
	c := newClient(t, cfg)

	_, err := c.Configure(testContext(t), "AUS_Team")
	if !errors.Is(err, transport.ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
	if errors.Is(err, transport.ErrIO) {
		t.Fatalf("decode failure misreported as i/o: %v", err)
	}
}

func TestConcurrentCallsStayPaired(t *testing.T) {
	testlog.Start(t)
	g := harness.NewScripted()
	g.SetScreenshot([]byte("png"))
	c := newClient(t, startHarness(t, g))
	ctx := testContext(t)

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := c.GetStateInfo(ctx); err != nil {
				errs <- err
			}
		}()
		go func() {
			defer wg.Done()
			if blob, err := c.CaptureScreenshot(ctx, ""); err != nil || string(blob) != "png" {
				errs <- errors.Join(err, errors.New("bad screenshot reply"))
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent call failed: %v", err)
	}
}

func TestOneWayCommandsRespectCanceledContext(t *testing.T) {
	testlog.Start(t)
	g := harness.NewScripted()
	c := newClient(t, startHarness(t, g))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	checks := map[string]error{
		"Click":      c.Click(ctx, 1, 2),
		"Drag":       c.Drag(ctx, 1, 2, 3, 4),
		"MouseWheel": c.MouseWheel(ctx, -1),
		"FinishPlay": c.FinishPlay(ctx),
		"ZoomOut":    c.ZoomOut(ctx),
		"MakeMove":   c.MakeMove(ctx, 1, 2, 3, 4, 1),
	}
	for op, err := range checks {
		var opErr *OpError
		if !errors.As(err, &opErr) || opErr.Op != op || !errors.Is(err, context.Canceled) {
			t.Fatalf("%s: expected OpError wrapping context.Canceled, got %v", op, err)
		}
	}

	if _, err := c.GetStateInfo(testContext(t)); err != nil {
		t.Fatalf("state: %v", err)
	}
	received := g.Received()
	if len(received) != 1 {
		t.Fatalf("canceled one-way commands reached the harness: %v", received)
	}
	if _, ok := received[0].(command.GetStateInfo); !ok {
		t.Fatalf("expected only GetStateInfo, got %v", received)
	}
}

func TestAbandonedReplyDoesNotPoisonNextCall(t *testing.T) {
	testlog.Start(t)
	g := harness.NewScripted()
	var slow sync.Once
	h := harness.HandlerFunc(func(ctx context.Context, cmd command.Command) (harness.Result, error) {
		if _, ok := cmd.(command.GetStateInfo); ok {
			slow.Do(func() { time.Sleep(200 * time.Millisecond) })
		}
		return g.Handle(ctx, cmd)
	})
	c := newClient(t, startHarness(t, h))

	short, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	_, err := c.GetStateInfo(short)
	cancel()
	if !errors.Is(err, transport.ErrAbandoned) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected abandoned reply, got %v", err)
	}
	if c.Err() != nil {
		t.Fatalf("abandoned reply broke the connection: %v", c.Err())
	}

	ok, err := c.Configure(testContext(t), "AUS_Team")
	if err != nil || !ok {
		t.Fatalf("configure after abandon: (%v,%v)", ok, err)
	}
	if _, err := c.GetStateInfo(testContext(t)); err != nil {
		t.Fatalf("state after abandon: %v", err)
	}
}
