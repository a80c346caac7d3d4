package harness

import (
	"context"
	"sync"

	"github.com/danmuck/birdctl/internal/command"
	"github.com/danmuck/birdctl/internal/game"
	logs "github.com/danmuck/birdctl/internal/logging"
)

const (
	DefaultMaxLevel  = 21
	DefaultShotScore = 12000
	DefaultWinScore  = 30000
	DefaultBirds     = 4
)

// Scripted is a deterministic in-memory game. Every shot scores ShotScore;
// a level is won once the score reaches WinScore and lost when Birds shots
// are spent without winning. It records every command it receives.
type Scripted struct {
	MaxLevel  int
	ShotScore int
	WinScore  int
	Birds     int

	mu         sync.Mutex
	configured bool
	cfg        game.Configuration
	state      game.StateInfo
	shotsTaken int
	global     map[int]int
	screenshot []byte
	received   []command.Command
}

func NewScripted() *Scripted {
	return &Scripted{
		MaxLevel:  DefaultMaxLevel,
		ShotScore: DefaultShotScore,
		WinScore:  DefaultWinScore,
		Birds:     DefaultBirds,
		cfg: game.Configuration{
			CurrentLevel:  1,
			MaxLevel:      1,
			ScreenshotDir: "screenshots",
			MainDir:       "main",
			LevelGrades:   map[int]int{},
		},
		state:  game.StateInfo{State: game.StatePlaying},
		global: map[int]int{},
	}
}

// SetScreenshot replaces the frame returned for ScreenShot commands.
func (g *Scripted) SetScreenshot(b []byte) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.screenshot = append([]byte(nil), b...)
}

// SetGlobalGrade seeds the cross-player best grade for a level.
func (g *Scripted) SetGlobalGrade(level, grade int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.global[level] = grade
}

// Received returns the commands seen so far, in arrival order.
func (g *Scripted) Received() []command.Command {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]command.Command, len(g.received))
	copy(out, g.received)
	return out
}

// State returns the current level state.
func (g *Scripted) State() game.StateInfo {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

func (g *Scripted) Handle(_ context.Context, cmd command.Command) (Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.received = append(g.received, cmd)

	switch c := cmd.(type) {
	case command.Configure:
		return Result{Ack: g.configure(c.TeamID)}, nil
	case command.ConfigureWithResolution:
		return Result{Ack: g.configure(c.TeamID)}, nil
	case command.GetConfiguration:
		return Result{Config: g.cfg.Clone()}, nil
	case command.GetGlobalConfiguration:
		grades := make(map[int]int, len(g.global))
		for k, v := range g.global {
			grades[k] = v
		}
		return Result{Grades: grades}, nil
	case command.GetStateInfo:
		return Result{State: g.state}, nil
	case command.LoadLevel:
		return Result{Ack: g.load(c.Level)}, nil
	case command.NextLevel:
		return Result{Ack: g.load(command.LevelNext)}, nil
	case command.Restart:
		if !g.configured {
			return Result{Ack: false}, nil
		}
		g.resetLevel()
		return Result{Ack: true}, nil
	case command.FinishRun:
		g.cfg.IncreaseRun()
		return Result{Ack: true}, nil
	case command.Shoot:
		g.shoot(c.Shots)
		return Result{Ack: g.configured && len(c.Shots) > 0}, nil
	case command.ShootWithStateInfoReturned:
		g.shoot(c.Shots)
		return Result{State: g.state}, nil
	case command.ScreenShot:
		return Result{Blob: append([]byte(nil), g.screenshot...)}, nil
	case command.FinishPlay, command.Click, command.Drag, command.MouseWheel:
		return Result{}, nil
	default:
		logs.Warnf("harness.Scripted unhandled command=%q", cmd.Name())
		return Result{}, nil
	}
}

func (g *Scripted) configure(team string) bool {
	if team == "" {
		return false
	}
	g.configured = true
	g.cfg.PlayerID = team
	return true
}

func (g *Scripted) load(level int) bool {
	if !g.configured {
		return false
	}
	if level == command.LevelNext {
		level = g.cfg.CurrentLevel + 1
	}
	if level < 1 || level > g.MaxLevel {
		return false
	}
	g.cfg.CurrentLevel = level
	for g.cfg.MaxLevel < level {
		g.cfg.IncreaseMax()
	}
	g.resetLevel()
	return true
}

func (g *Scripted) resetLevel() {
	g.state = game.StateInfo{State: game.StatePlaying}
	g.shotsTaken = 0
}

func (g *Scripted) shoot(shots []game.Shot) {
	if !g.configured || !g.state.Playing() {
		return
	}
	for range shots {
		g.shotsTaken++
		g.state.Score += g.ShotScore
		if g.state.Score >= g.WinScore {
			g.state.State = game.StateWon
			g.cfg.UpdateLevelGrades(g.state.Score)
			if g.global[g.cfg.CurrentLevel] < g.state.Score {
				g.global[g.cfg.CurrentLevel] = g.state.Score
			}
			return
		}
		if g.shotsTaken >= g.Birds {
			g.state.State = game.StateLost
			return
		}
	}
}
