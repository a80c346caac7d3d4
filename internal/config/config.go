package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/birdctl/internal/driver"
	"github.com/danmuck/birdctl/internal/screenshot"
	"github.com/danmuck/birdctl/internal/transport"
)

// Config is the resolved birdctl configuration.
type Config struct {
	Host           string
	Port           int
	ConnectTimeout time.Duration

	ZoomSettle time.Duration
	MoveUnit   time.Duration
	ZoomSteps  int

	TeamID     string
	Resolution string

	ScreenshotDir  string
	PlayerSnapshot string

	GatewayAddr  string
	CorsOrigins  []string
	GatewayToken string
	// CallTimeout bounds each driver call made by the gateway and MCP
	// server. Zero leaves calls unbounded.
	CallTimeout time.Duration

	LogFile string
}

// fileConfig is the on-disk shape. Durations are Go duration strings.
type fileConfig struct {
	Host           string   `toml:"host"`
	Port           int      `toml:"port"`
	ConnectTimeout string   `toml:"connect_timeout"`
	ZoomSettle     string   `toml:"zoom_settle"`
	MoveUnit       string   `toml:"move_unit"`
	ZoomSteps      int      `toml:"zoom_steps"`
	TeamID         string   `toml:"team_id"`
	Resolution     string   `toml:"resolution"`
	ScreenshotDir  string   `toml:"screenshot_dir"`
	PlayerSnapshot string   `toml:"player_snapshot"`
	GatewayAddr    string   `toml:"gateway_addr"`
	CorsOrigins    []string `toml:"cors_origins"`
	LogFile        string   `toml:"log_file"`
	GatewayToken   string   `toml:"gateway_token"`
	CallTimeout    string   `toml:"call_timeout"`
}

func Default() Config {
	tc := transport.DefaultConfig()
	timing := driver.DefaultTiming()
	return Config{
		Host:           tc.Host,
		Port:           tc.Port,
		ConnectTimeout: tc.ConnectTimeout,
		ZoomSettle:     timing.ZoomSettle,
		MoveUnit:       timing.MoveUnit,
		ZoomSteps:      timing.ZoomSteps,
		TeamID:         "AUS_Team",
		Resolution:     "1244768",
		ScreenshotDir:  screenshot.DefaultDir,
		GatewayAddr:    "127.0.0.1:8420",
		CorsOrigins:    []string{"http://localhost:3000"},
	}
}

// Load starts from Default and applies only the keys present in path.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	if meta.IsDefined("host") {
		cfg.Host = strings.TrimSpace(raw.Host)
	}
	if meta.IsDefined("port") {
		cfg.Port = raw.Port
	}
	if meta.IsDefined("connect_timeout") {
		if cfg.ConnectTimeout, err = parseDuration("connect_timeout", raw.ConnectTimeout); err != nil {
			return Config{}, err
		}
	}
	if meta.IsDefined("zoom_settle") {
		if cfg.ZoomSettle, err = parseDuration("zoom_settle", raw.ZoomSettle); err != nil {
			return Config{}, err
		}
	}
	if meta.IsDefined("move_unit") {
		if cfg.MoveUnit, err = parseDuration("move_unit", raw.MoveUnit); err != nil {
			return Config{}, err
		}
	}
	if meta.IsDefined("zoom_steps") {
		cfg.ZoomSteps = raw.ZoomSteps
	}
	if meta.IsDefined("team_id") {
		cfg.TeamID = strings.TrimSpace(raw.TeamID)
	}
	if meta.IsDefined("resolution") {
		cfg.Resolution = strings.TrimSpace(raw.Resolution)
	}
	if meta.IsDefined("screenshot_dir") {
		cfg.ScreenshotDir = strings.TrimSpace(raw.ScreenshotDir)
	}
	if meta.IsDefined("player_snapshot") {
		cfg.PlayerSnapshot = strings.TrimSpace(raw.PlayerSnapshot)
	}
	if meta.IsDefined("gateway_addr") {
		cfg.GatewayAddr = strings.TrimSpace(raw.GatewayAddr)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = normalizeOrigins(raw.CorsOrigins)
	}
	if meta.IsDefined("log_file") {
		cfg.LogFile = strings.TrimSpace(raw.LogFile)
	}
	if meta.IsDefined("gateway_token") {
		cfg.GatewayToken = strings.TrimSpace(raw.GatewayToken)
	}
	if meta.IsDefined("call_timeout") {
		if cfg.CallTimeout, err = parseDuration("call_timeout", raw.CallTimeout); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config port out of range: %d", c.Port)
	}
	if c.ZoomSteps < 0 {
		return fmt.Errorf("config zoom_steps must not be negative: %d", c.ZoomSteps)
	}
	if c.ConnectTimeout < 0 || c.ZoomSettle < 0 || c.MoveUnit < 0 || c.CallTimeout < 0 {
		return fmt.Errorf("config durations must not be negative")
	}
	return nil
}

// Transport returns the connection settings.
func (c Config) Transport() transport.Config {
	return transport.Config{
		Host:           c.Host,
		Port:           c.Port,
		ConnectTimeout: c.ConnectTimeout,
	}.WithDefaults()
}

// Timing returns the driver settle delays as configured. Load starts from
// driver.DefaultTiming, so a zero here was set on purpose.
func (c Config) Timing() driver.Timing {
	return driver.Timing{
		ZoomSettle: c.ZoomSettle,
		MoveUnit:   c.MoveUnit,
		ZoomSteps:  c.ZoomSteps,
	}
}

func (c Config) file() fileConfig {
	return fileConfig{
		Host:           c.Host,
		Port:           c.Port,
		ConnectTimeout: c.ConnectTimeout.String(),
		ZoomSettle:     c.ZoomSettle.String(),
		MoveUnit:       c.MoveUnit.String(),
		ZoomSteps:      c.ZoomSteps,
		TeamID:         c.TeamID,
		Resolution:     c.Resolution,
		ScreenshotDir:  c.ScreenshotDir,
		PlayerSnapshot: c.PlayerSnapshot,
		GatewayAddr:    c.GatewayAddr,
		CorsOrigins:    c.CorsOrigins,
		LogFile:        c.LogFile,
		GatewayToken:   c.GatewayToken,
		CallTimeout:    c.CallTimeout.String(),
	}
}

func parseDuration(key, v string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func normalizeOrigins(in []string) []string {
	out := make([]string, 0, len(in))
	for _, origin := range in {
		v := strings.TrimSpace(origin)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
