// Package mcp exposes driver operations as MCP tools over stdio so an agent
// can play through the harness.
package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/danmuck/birdctl/internal/game"
	logs "github.com/danmuck/birdctl/internal/logging"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Driver is the subset of driver.Client the tools call.
type Driver interface {
	Configure(ctx context.Context, teamID string) (bool, error)
	GetConfiguration(ctx context.Context, teamID string) (game.Configuration, error)
	GetGlobalConfiguration(ctx context.Context) (map[int]int, error)
	GetStateInfo(ctx context.Context) (game.StateInfo, error)
	LoadLevel(ctx context.Context, level int) (bool, error)
	Restart(ctx context.Context) (bool, error)
	Shoot(ctx context.Context, shots []game.Shot) (bool, error)
	ShootWithStateInfoReturned(ctx context.Context, shots []game.Shot) (game.StateInfo, error)
	ZoomOut(ctx context.Context) error
	Screenshot(ctx context.Context, name string) ([]byte, error)
}

// Tools binds tool handlers to one driver. TeamID is used when a call
// leaves team_id empty. Timeout, when set, bounds each driver call.
type Tools struct {
	driver  Driver
	TeamID  string
	Timeout time.Duration
}

func NewTools(d Driver, teamID string) *Tools {
	return &Tools{driver: d, TeamID: teamID}
}

// NewServer builds an MCP server with every tool registered.
func NewServer(name, version string, t *Tools) *server.MCPServer {
	s := server.NewMCPServer(name, version)
	t.Register(s)
	return s
}

func (t *Tools) Register(s *server.MCPServer) {
	s.AddTool(configureTool(), t.handleConfigure)
	s.AddTool(loadLevelTool(), t.handleLoadLevel)
	s.AddTool(restartTool(), t.handleRestart)
	s.AddTool(getStateTool(), t.handleGetState)
	s.AddTool(shootTool(), t.handleShoot)
	s.AddTool(zoomOutTool(), t.handleZoomOut)
	s.AddTool(screenshotTool(), t.handleScreenshot)
	s.AddTool(globalGradesTool(), t.handleGlobalGrades)
	s.AddTool(getConfigurationTool(), t.handleGetConfiguration)
}

func configureTool() mcp.Tool {
	return mcp.NewTool("configure",
		mcp.WithDescription("Register the team with the harness. Must succeed before levels can be loaded."),
		mcp.WithString("team_id", mcp.Description("Team identifier; defaults to the configured team")),
	)
}

func loadLevelTool() mcp.Tool {
	return mcp.NewTool("load_level",
		mcp.WithDescription("Load a level. Use -1 to load the level after the current one."),
		mcp.WithNumber("level", mcp.Required(), mcp.Description("Level number, or -1 for next")),
	)
}

func restartTool() mcp.Tool {
	return mcp.NewTool("restart",
		mcp.WithDescription("Restart the current level."),
	)
}

func getStateTool() mcp.Tool {
	return mcp.NewTool("get_state",
		mcp.WithDescription("Get the score and state (PLAYING, WON, LOST) of the current level. Read-only."),
	)
}

func shootTool() mcp.Tool {
	return mcp.NewTool("shoot",
		mcp.WithDescription("Execute shots in order. Each shot drags from (x, y) by (dx, dy), releases at t_shot ms and taps at t_tap ms."),
		mcp.WithString("shots", mcp.Required(), mcp.Description(`JSON array, e.g. [{"x":190,"y":370,"dx":-120,"dy":80,"t_shot":0,"t_tap":2500}]`)),
		mcp.WithBoolean("with_state", mcp.Description("Return the level state after the shots instead of an acknowledgement")),
	)
}

func zoomOutTool() mcp.Tool {
	return mcp.NewTool("zoom_out",
		mcp.WithDescription("Zoom the view fully out and wait for it to settle."),
	)
}

func screenshotTool() mcp.Tool {
	return mcp.NewTool("screenshot",
		mcp.WithDescription("Capture the current frame. When name is given the frame is also saved under that name."),
		mcp.WithString("name", mcp.Description("File name for the saved frame")),
	)
}

func globalGradesTool() mcp.Tool {
	return mcp.NewTool("global_grades",
		mcp.WithDescription("Get the best score per level across all players. Read-only."),
	)
}

func getConfigurationTool() mcp.Tool {
	return mcp.NewTool("get_configuration",
		mcp.WithDescription("Get the player configuration: current level, run, max level and best grade per level. Read-only."),
		mcp.WithString("team_id", mcp.Description("Team identifier; defaults to the configured team")),
	)
}

func (t *Tools) teamID(request mcp.CallToolRequest) string {
	if id := strings.TrimSpace(request.GetString("team_id", "")); id != "" {
		return id
	}
	return t.TeamID
}

func (t *Tools) handleConfigure(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, cancel := t.detach(ctx)
	defer cancel()
	team := t.teamID(request)
	if team == "" {
		return mcp.NewToolResultError("team_id is required"), nil
	}
	ok, err := t.driver.Configure(ctx, team)
	if err != nil {
		return driverError("configure", err), nil
	}
	return respondJSON(map[string]any{"ok": ok, "team_id": team}), nil
}

func (t *Tools) handleLoadLevel(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, cancel := t.detach(ctx)
	defer cancel()
	level, err := request.RequireInt("level")
	if err != nil {
		return mcp.NewToolResultErrorf("Invalid level: %v", err), nil
	}
	ok, err := t.driver.LoadLevel(ctx, level)
	if err != nil {
		return driverError("load_level", err), nil
	}
	return respondJSON(map[string]any{"ok": ok, "level": level}), nil
}

func (t *Tools) handleRestart(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, cancel := t.detach(ctx)
	defer cancel()
	ok, err := t.driver.Restart(ctx)
	if err != nil {
		return driverError("restart", err), nil
	}
	return respondJSON(map[string]any{"ok": ok}), nil
}

func (t *Tools) handleGetState(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, cancel := t.detach(ctx)
	defer cancel()
	info, err := t.driver.GetStateInfo(ctx)
	if err != nil {
		return driverError("get_state", err), nil
	}
	return respondJSON(info), nil
}

func (t *Tools) handleShoot(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, cancel := t.detach(ctx)
	defer cancel()
	var shots []game.Shot
	if err := json.Unmarshal([]byte(request.GetString("shots", "")), &shots); err != nil {
		return mcp.NewToolResultErrorf("Invalid shots: %v", err), nil
	}
	if len(shots) == 0 {
		return mcp.NewToolResultError("At least one shot is required."), nil
	}
	if request.GetBool("with_state", false) {
		info, err := t.driver.ShootWithStateInfoReturned(ctx, shots)
		if err != nil {
			return driverError("shoot", err), nil
		}
		return respondJSON(info), nil
	}
	ok, err := t.driver.Shoot(ctx, shots)
	if err != nil {
		return driverError("shoot", err), nil
	}
	return respondJSON(map[string]any{"ok": ok, "shots": len(shots)}), nil
}

func (t *Tools) handleZoomOut(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, cancel := t.detach(ctx)
	defer cancel()
	if err := t.driver.ZoomOut(ctx); err != nil {
		return driverError("zoom_out", err), nil
	}
	return mcp.NewToolResultText(`{"status":"settled"}`), nil
}

func (t *Tools) handleScreenshot(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, cancel := t.detach(ctx)
	defer cancel()
	name := strings.TrimSpace(request.GetString("name", ""))
	blob, err := t.driver.Screenshot(ctx, name)
	if err != nil {
		return driverError("screenshot", err), nil
	}
	text := fmt.Sprintf("captured %d bytes", len(blob))
	if name != "" {
		text = fmt.Sprintf("captured %d bytes as %s", len(blob), name)
	}
	return mcp.NewToolResultImage(text, base64.StdEncoding.EncodeToString(blob), "image/png"), nil
}

func (t *Tools) handleGlobalGrades(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, cancel := t.detach(ctx)
	defer cancel()
	grades, err := t.driver.GetGlobalConfiguration(ctx)
	if err != nil {
		return driverError("global_grades", err), nil
	}
	return respondJSON(map[string]any{"grades": grades}), nil
}

func (t *Tools) handleGetConfiguration(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx, cancel := t.detach(ctx)
	defer cancel()
	cfg, err := t.driver.GetConfiguration(ctx, t.teamID(request))
	if err != nil {
		return driverError("get_configuration", err), nil
	}
	return respondJSON(cfg), nil
}

// detach keeps a driver call running when the tool request is canceled.
// The harness cannot take a command back once it is written, and the shared
// connection must stay paired.
func (t *Tools) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithoutCancel(ctx)
	if t.Timeout > 0 {
		return context.WithTimeout(ctx, t.Timeout)
	}
	return context.WithCancel(ctx)
}

func driverError(tool string, err error) *mcp.CallToolResult {
	logs.Warnf("mcp.%s err=%v", tool, err)
	return mcp.NewToolResultErrorf("%s failed: %v", tool, err)
}

func respondJSON(v any) *mcp.CallToolResult {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultErrorf("marshal error: %v", err)
	}
	return mcp.NewToolResultText(string(data))
}
