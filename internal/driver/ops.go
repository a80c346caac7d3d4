package driver

import (
	"context"
	"time"

	"github.com/danmuck/birdctl/internal/command"
	"github.com/danmuck/birdctl/internal/game"
	logs "github.com/danmuck/birdctl/internal/logging"
	"github.com/danmuck/birdctl/internal/observability"
)

// Configure registers teamID. A false result is the harness refusing, not a
// failure.
func (c *Client) Configure(ctx context.Context, teamID string) (bool, error) {
	return c.sendBool(ctx, "Configure", command.Configure{TeamID: teamID})
}

func (c *Client) ConfigureWithResolution(ctx context.Context, teamID, resolution string) (bool, error) {
	return c.sendBool(ctx, "ConfigureWithResolution", command.ConfigureWithResolution{
		TeamID:     teamID,
		Resolution: resolution,
	})
}

func (c *Client) GetConfiguration(ctx context.Context, teamID string) (game.Configuration, error) {
	var cmd command.ConfigurationCommand = command.GetConfiguration{TeamID: teamID}
	cfg, err := call(ctx, c, "GetConfiguration", cmd, command.DecodeConfigurationReply)
	if err == nil {
		logs.Debugf("driver.GetConfiguration player=%q level=%d max=%d", cfg.PlayerID, cfg.CurrentLevel, cfg.MaxLevel)
	}
	return cfg, err
}

// GetGlobalConfiguration returns the best grade per level across all players.
func (c *Client) GetGlobalConfiguration(ctx context.Context) (map[int]int, error) {
	var cmd command.GradesCommand = command.GetGlobalConfiguration{}
	return call(ctx, c, "GetGlobalConfiguration", cmd, command.DecodeGradesReply)
}

func (c *Client) GetStateInfo(ctx context.Context) (game.StateInfo, error) {
	var cmd command.StateInfoCommand = command.GetStateInfo{}
	return call(ctx, c, "GetStateInfo", cmd, command.DecodeStateInfoReply)
}

// LoadLevel loads level. Values are forwarded unchecked; command.LevelNext
// selects the level after the current one.
func (c *Client) LoadLevel(ctx context.Context, level int) (bool, error) {
	return c.sendBool(ctx, "LoadLevel", command.LoadLevel{Level: level})
}

func (c *Client) LoadNextLevel(ctx context.Context) (bool, error) {
	return c.sendBool(ctx, "LoadNextLevel", command.NewLoadNextLevel())
}

func (c *Client) Restart(ctx context.Context) (bool, error) {
	return c.sendBool(ctx, "Restart", command.Restart{})
}

func (c *Client) NextLevel(ctx context.Context) (bool, error) {
	return c.sendBool(ctx, "NextLevel", command.NextLevel{})
}

func (c *Client) FinishRun(ctx context.Context) (bool, error) {
	return c.sendBool(ctx, "FinishRun", command.FinishRun{})
}

// FinishPlay tells the harness the session is over. There is no reply.
func (c *Client) FinishPlay(ctx context.Context) error {
	return c.sendOneWay(ctx, "FinishPlay", command.FinishPlay{})
}

func (c *Client) Click(ctx context.Context, x, y int) error {
	return c.sendOneWay(ctx, "Click", command.Click{X: x, Y: y})
}

// Drag presses at (x, y) and releases at (x+dx, y+dy). It returns once the
// command is written; completion is not signalled.
func (c *Client) Drag(ctx context.Context, x, y, dx, dy int) error {
	return c.sendOneWay(ctx, "Drag", command.Drag{X: x, Y: y, DX: dx, DY: dy})
}

func (c *Client) MouseWheel(ctx context.Context, delta int) error {
	return c.sendOneWay(ctx, "MouseWheel", command.MouseWheel{Delta: delta})
}

// Shoot executes shots in order.
func (c *Client) Shoot(ctx context.Context, shots []game.Shot) (bool, error) {
	return c.sendBool(ctx, "Shoot", command.Shoot{Shots: shots})
}

func (c *Client) ShootWithStateInfoReturned(ctx context.Context, shots []game.Shot) (game.StateInfo, error) {
	var cmd command.StateInfoCommand = command.ShootWithStateInfoReturned{Shots: shots}
	info, err := call(ctx, c, "ShootWithStateInfoReturned", cmd, command.DecodeStateInfoReply)
	if err == nil {
		logs.Debugf("driver.ShootWithStateInfoReturned shots=%d score=%d state=%s", len(shots), info.Score, info.State)
	}
	return info, err
}

// CaptureScreenshot returns the current frame. dir is passed to the harness
// as is and may be empty.
func (c *Client) CaptureScreenshot(ctx context.Context, dir string) ([]byte, error) {
	var cmd command.BytesCommand = command.ScreenShot{Directory: dir}
	blob, err := call(ctx, c, "CaptureScreenshot", cmd, command.DecodeBytesReply)
	if err == nil {
		observability.RecordReplyBytes(cmd.Name(), len(blob))
	}
	return blob, err
}

// Screenshot captures a frame and hands it to the configured sink under name.
// A sink failure is logged and does not fail the call.
func (c *Client) Screenshot(ctx context.Context, name string) ([]byte, error) {
	blob, err := c.CaptureScreenshot(ctx, "")
	if err != nil {
		return nil, err
	}
	if c.sink == nil {
		logs.Debugf("driver.Screenshot name=%q bytes=%d sink=none", name, len(blob))
		return blob, nil
	}
	if err := c.sink.Save(name, blob); err != nil {
		logs.Errf("driver.Screenshot save name=%q bytes=%d err=%v", name, len(blob), err)
	}
	return blob, nil
}

// ZoomOut scrolls out Timing.ZoomSteps notches in one write and waits
// Timing.ZoomSettle for the view to settle.
func (c *Client) ZoomOut(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	steps := make([]command.OneWayCommand, c.timing.ZoomSteps)
	for i := range steps {
		steps[i] = command.MouseWheel{Delta: -1}
	}
	if len(steps) > 0 {
		if err := c.sendLocked(ctx, "ZoomOut", steps...); err != nil {
			return err
		}
	}
	return c.wait(ctx, "ZoomOut", command.MouseWheel{}, c.timing.ZoomSettle)
}

// MakeMove drags from (x, y) with toX and toY as the drag delta, then waits
// waitUnits times Timing.MoveUnit.
func (c *Client) MakeMove(ctx context.Context, x, y, toX, toY, waitUnits int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	drag := command.Drag{X: x, Y: y, DX: toX, DY: toY}
	if err := c.sendLocked(ctx, "MakeMove", drag); err != nil {
		return err
	}
	return c.wait(ctx, "MakeMove", drag, time.Duration(waitUnits)*c.timing.MoveUnit)
}

// wait blocks for d with the lock held so no other command interleaves.
func (c *Client) wait(ctx context.Context, op string, cmd command.Command, d time.Duration) error {
	start := time.Now()
	if err := settle(ctx, d); err != nil {
		if isCanceled(err) {
			logs.Debugf("driver.%s settle interrupted after=%s", op, time.Since(start))
		}
		return &OpError{Op: op, Command: cmd.Name(), Err: err}
	}
	logs.Tracef("driver.%s settled after=%s", op, time.Since(start))
	return nil
}
