package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net"
	"reflect"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/birdctl/internal/command"
	"github.com/danmuck/birdctl/internal/driver"
	"github.com/danmuck/birdctl/internal/game"
	"github.com/danmuck/birdctl/internal/harness"
	"github.com/danmuck/birdctl/internal/testutil/testlog"
	"github.com/danmuck/birdctl/internal/transport"
	"github.com/mark3labs/mcp-go/mcp"
)

func newTestTools(t *testing.T, g *harness.Scripted) *Tools {
	t.Helper()
	srv, err := harness.NewServer(g)
	if err != nil {
		t.Fatalf("new harness: %v", err)
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	host, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)
	client, err := driver.Dial(context.Background(), transport.Config{Host: host, Port: port},
		driver.WithTiming(driver.Timing{ZoomSettle: 5 * time.Millisecond, MoveUnit: time.Millisecond, ZoomSteps: 2}))
	if err != nil {
		cancel()
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
		cancel()
		<-done
	})
	return NewTools(client, "AUS_Team")
}

func request(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatalf("empty tool result")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("first content is %T, want TextContent", res.Content[0])
	}
	return text.Text
}

func TestToolsPlayLevel(t *testing.T) {
	testlog.Start(t)
	g := harness.NewScripted()
	tools := newTestTools(t, g)
	ctx := context.Background()

	res, err := tools.handleConfigure(ctx, request(nil))
	if err != nil || res.IsError {
		t.Fatalf("configure: err=%v result=%v", err, res)
	}
	if text := resultText(t, res); !strings.Contains(text, `"ok":true`) || !strings.Contains(text, "AUS_Team") {
		t.Fatalf("configure text got=%s", text)
	}

	res, _ = tools.handleLoadLevel(ctx, request(map[string]any{"level": 1}))
	if res.IsError || !strings.Contains(resultText(t, res), `"ok":true`) {
		t.Fatalf("load level got=%s", resultText(t, res))
	}

	res, _ = tools.handleZoomOut(ctx, request(nil))
	if res.IsError {
		t.Fatalf("zoom out failed: %s", resultText(t, res))
	}

	shots, _ := json.Marshal([]game.Shot{game.NewShot(1, 2, 0, 10), game.NewShot(1, 2, 0, 10), game.NewShot(1, 2, 0, 10)})
	res, _ = tools.handleShoot(ctx, request(map[string]any{"shots": string(shots), "with_state": true}))
	if res.IsError {
		t.Fatalf("shoot failed: %s", resultText(t, res))
	}
	var info game.StateInfo
	if err := json.Unmarshal([]byte(resultText(t, res)), &info); err != nil || !info.Won() {
		t.Fatalf("shoot state got=%s err=%v", resultText(t, res), err)
	}

	res, _ = tools.handleGetState(ctx, request(nil))
	if !strings.Contains(resultText(t, res), game.StateWon) {
		t.Fatalf("state got=%s", resultText(t, res))
	}

	res, _ = tools.handleGetConfiguration(ctx, request(nil))
	var cfg game.Configuration
	if err := json.Unmarshal([]byte(resultText(t, res)), &cfg); err != nil || cfg.PlayerID != "AUS_Team" {
		t.Fatalf("configuration got=%s err=%v", resultText(t, res), err)
	}

	res, _ = tools.handleGlobalGrades(ctx, request(nil))
	if !strings.Contains(resultText(t, res), `"grades"`) {
		t.Fatalf("grades got=%s", resultText(t, res))
	}

	res, _ = tools.handleRestart(ctx, request(nil))
	if res.IsError {
		t.Fatalf("restart failed: %s", resultText(t, res))
	}
}

func TestScreenshotToolReturnsImage(t *testing.T) {
	testlog.Start(t)
	g := harness.NewScripted()
	g.SetScreenshot([]byte("PNG"))
	tools := newTestTools(t, g)

	res, err := tools.handleScreenshot(context.Background(), request(map[string]any{"name": "frame1.png"}))
	if err != nil || res.IsError {
		t.Fatalf("screenshot: err=%v", err)
	}
	if len(res.Content) != 2 {
		t.Fatalf("content items got=%d want=2", len(res.Content))
	}
	img, ok := res.Content[1].(mcp.ImageContent)
	if !ok {
		t.Fatalf("second content is %T", res.Content[1])
	}
	if img.Data != base64.StdEncoding.EncodeToString([]byte("PNG")) || img.MIMEType != "image/png" {
		t.Fatalf("image got=%+v", img)
	}
}

func TestToolArgumentValidation(t *testing.T) {
	testlog.Start(t)
	tools := newTestTools(t, harness.NewScripted())
	ctx := context.Background()

	if res, _ := tools.handleLoadLevel(ctx, request(nil)); !res.IsError {
		t.Fatalf("missing level should be rejected")
	}
	if res, _ := tools.handleShoot(ctx, request(map[string]any{"shots": "not json"})); !res.IsError {
		t.Fatalf("bad shots should be rejected")
	}
	if res, _ := tools.handleShoot(ctx, request(map[string]any{"shots": "[]"})); !res.IsError {
		t.Fatalf("empty shots should be rejected")
	}

	tools.TeamID = ""
	if res, _ := tools.handleConfigure(ctx, request(nil)); !res.IsError {
		t.Fatalf("configure without team should be rejected")
	}
}

func TestLoadLevelForwardsAnyLevel(t *testing.T) {
	testlog.Start(t)
	g := harness.NewScripted()
	tools := newTestTools(t, g)
	ctx := context.Background()

	for _, level := range []int{0, -5} {
		res, _ := tools.handleLoadLevel(ctx, request(map[string]any{"level": level}))
		if res.IsError {
			t.Fatalf("level %d got tool error %s", level, resultText(t, res))
		}
		var got struct {
			OK    bool `json:"ok"`
			Level int  `json:"level"`
		}
		if err := json.Unmarshal([]byte(resultText(t, res)), &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.OK || got.Level != level {
			t.Fatalf("level %d got=%+v", level, got)
		}
	}
	want := []command.Command{command.LoadLevel{Level: 0}, command.LoadLevel{Level: -5}}
	if got := g.Received(); !reflect.DeepEqual(got, want) {
		t.Fatalf("harness received=%v want=%v", got, want)
	}
}

func TestCanceledToolRequestStillCompletes(t *testing.T) {
	testlog.Start(t)
	tools := newTestTools(t, harness.NewScripted())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, _ := tools.handleGetState(ctx, request(nil))
	if res.IsError {
		t.Fatalf("get_state got tool error %s", resultText(t, res))
	}
	if !strings.Contains(resultText(t, res), "PLAYING") {
		t.Fatalf("get_state got=%s", resultText(t, res))
	}
}

func TestDriverErrorsBecomeToolErrors(t *testing.T) {
	testlog.Start(t)
	g := harness.NewScripted()
	tools := newTestTools(t, g)
	if c, ok := tools.driver.(*driver.Client); ok {
		_ = c.Close()
	}

	res, err := tools.handleGetState(context.Background(), request(nil))
	if err != nil {
		t.Fatalf("handler must not return protocol errors: %v", err)
	}
	if !res.IsError || !strings.Contains(resultText(t, res), "get_state failed") {
		t.Fatalf("expected tool error, got %v", res)
	}
}

func TestNewServerRegistersTools(t *testing.T) {
	s := NewServer("birdctl", "test", NewTools(nil, "team"))
	if s == nil {
		t.Fatalf("nil server")
	}
}
