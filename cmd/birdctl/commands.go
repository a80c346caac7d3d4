package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/danmuck/birdctl/internal/config"
	"github.com/danmuck/birdctl/internal/game"
	"github.com/danmuck/birdctl/internal/gateway"
	logs "github.com/danmuck/birdctl/internal/logging"
)

type app struct {
	cfg    config.Config
	client gateway.Driver
	out    io.Writer
}

func (a *app) team(args []string) string {
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return strings.TrimSpace(args[0])
	}
	return a.cfg.TeamID
}

func (a *app) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) printAck(action string, ok bool) error {
	return a.print(map[string]any{"action": action, "ok": ok})
}

func dispatch(ctx context.Context, a *app, name string, args []string) error {
	c := a.client
	switch name {
	case "configure":
		resolution := a.cfg.Resolution
		if len(args) > 1 {
			resolution = args[1]
		}
		var (
			ok  bool
			err error
		)
		if resolution != "" {
			ok, err = c.ConfigureWithResolution(ctx, a.team(args), resolution)
		} else {
			ok, err = c.Configure(ctx, a.team(args))
		}
		if err != nil {
			return err
		}
		return a.printAck(name, ok)
	case "configuration":
		cfg, err := c.GetConfiguration(ctx, a.team(args))
		if err != nil {
			return err
		}
		return a.print(cfg)
	case "snapshot":
		return a.snapshot(ctx, args)
	case "grades":
		grades, err := c.GetGlobalConfiguration(ctx)
		if err != nil {
			return err
		}
		return a.print(grades)
	case "state":
		info, err := c.GetStateInfo(ctx)
		if err != nil {
			return err
		}
		return a.print(info)
	case "load":
		if len(args) != 1 {
			return errUsage
		}
		if args[0] == "next" {
			ok, err := c.LoadNextLevel(ctx)
			if err != nil {
				return err
			}
			return a.printAck(name, ok)
		}
		v, err := atoiAll(args)
		if err != nil {
			return err
		}
		ok, err := c.LoadLevel(ctx, v[0])
		if err != nil {
			return err
		}
		return a.printAck(name, ok)
	case "restart":
		ok, err := c.Restart(ctx)
		return a.ack(name, ok, err)
	case "next":
		ok, err := c.NextLevel(ctx)
		return a.ack(name, ok, err)
	case "finish-run":
		ok, err := c.FinishRun(ctx)
		return a.ack(name, ok, err)
	case "finish-play":
		return a.done(name, c.FinishPlay(ctx))
	case "zoom-out":
		return a.done(name, c.ZoomOut(ctx))
	case "click":
		v, err := ints(args, 2)
		if err != nil {
			return err
		}
		return a.done(name, c.Click(ctx, v[0], v[1]))
	case "drag":
		v, err := ints(args, 4)
		if err != nil {
			return err
		}
		return a.done(name, c.Drag(ctx, v[0], v[1], v[2], v[3]))
	case "move":
		v, err := ints(args, 5)
		if err != nil {
			return err
		}
		return a.done(name, c.MakeMove(ctx, v[0], v[1], v[2], v[3], v[4]))
	case "wheel":
		v, err := ints(args, 1)
		if err != nil {
			return err
		}
		return a.done(name, c.MouseWheel(ctx, v[0]))
	case "shoot":
		shots, err := parseShots(args)
		if err != nil {
			return err
		}
		info, err := c.ShootWithStateInfoReturned(ctx, shots)
		if err != nil {
			return err
		}
		return a.print(info)
	case "screenshot":
		if len(args) != 1 {
			return errUsage
		}
		blob, err := c.Screenshot(ctx, args[0])
		if err != nil {
			return err
		}
		return a.print(map[string]any{"name": args[0], "bytes": len(blob), "dir": a.cfg.ScreenshotDir})
	case "serve":
		gw := gateway.New(c, gateway.Config{
			Addr:        a.cfg.GatewayAddr,
			CorsOrigins: a.cfg.CorsOrigins,
			Token:       a.cfg.GatewayToken,

			RequestTimeout: a.cfg.CallTimeout,
		})
		return gw.ListenAndServe(ctx)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, name)
	}
}

func (a *app) ack(action string, ok bool, err error) error {
	if err != nil {
		return err
	}
	return a.printAck(action, ok)
}

func (a *app) done(action string, err error) error {
	if err != nil {
		return err
	}
	return a.print(map[string]any{"action": action, "status": "sent"})
}

// snapshot stores the player configuration locally. The harness is never
// told about the file.
func (a *app) snapshot(ctx context.Context, args []string) error {
	path := a.cfg.PlayerSnapshot
	if path == "" {
		path = "player.yaml"
	}
	cfg, err := a.client.GetConfiguration(ctx, a.team(args))
	if err != nil {
		return err
	}
	if prev, err := game.LoadConfiguration(path); err == nil && prev.PlayerID == cfg.PlayerID {
		cfg = mergeGrades(cfg, prev)
	}
	if err := game.SaveConfiguration(path, cfg); err != nil {
		return err
	}
	logs.Infof("birdctl.snapshot path=%q player=%q levels=%d", path, cfg.PlayerID, len(cfg.LevelGrades))
	return a.print(map[string]any{"path": path, "levels": cfg.Levels()})
}

// mergeGrades keeps the better grade per level from an earlier snapshot.
func mergeGrades(cur, prev game.Configuration) game.Configuration {
	out := cur.Clone()
	level := out.CurrentLevel
	for _, l := range prev.Levels() {
		out.CurrentLevel = l
		out.UpdateLevelGrades(prev.LevelGrades[l])
	}
	out.CurrentLevel = level
	return out
}

func ints(args []string, n int) ([]int, error) {
	if len(args) != n {
		return nil, errUsage
	}
	return atoiAll(args)
}

func parseShots(args []string) ([]game.Shot, error) {
	if len(args) == 0 || len(args)%6 != 0 {
		return nil, errUsage
	}
	v, err := atoiAll(args)
	if err != nil {
		return nil, err
	}
	shots := make([]game.Shot, 0, len(v)/6)
	for i := 0; i < len(v); i += 6 {
		shots = append(shots, game.NewDragShot(v[i], v[i+1], v[i+2], v[i+3], v[i+4], v[i+5]))
	}
	return shots, nil
}
