// Package gateway exposes a driver over HTTP for dashboards and scripts.
package gateway

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/danmuck/birdctl/internal/auth"
	"github.com/danmuck/birdctl/internal/game"
	logs "github.com/danmuck/birdctl/internal/logging"
	"github.com/danmuck/birdctl/internal/observability"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const version = "0.1.0"

// Driver is the subset of driver.Client the gateway calls.
type Driver interface {
	Configure(ctx context.Context, teamID string) (bool, error)
	ConfigureWithResolution(ctx context.Context, teamID, resolution string) (bool, error)
	GetConfiguration(ctx context.Context, teamID string) (game.Configuration, error)
	GetGlobalConfiguration(ctx context.Context) (map[int]int, error)
	GetStateInfo(ctx context.Context) (game.StateInfo, error)
	LoadLevel(ctx context.Context, level int) (bool, error)
	LoadNextLevel(ctx context.Context) (bool, error)
	Restart(ctx context.Context) (bool, error)
	NextLevel(ctx context.Context) (bool, error)
	FinishRun(ctx context.Context) (bool, error)
	FinishPlay(ctx context.Context) error
	Click(ctx context.Context, x, y int) error
	Drag(ctx context.Context, x, y, dx, dy int) error
	MouseWheel(ctx context.Context, delta int) error
	Shoot(ctx context.Context, shots []game.Shot) (bool, error)
	ShootWithStateInfoReturned(ctx context.Context, shots []game.Shot) (game.StateInfo, error)
	CaptureScreenshot(ctx context.Context, dir string) ([]byte, error)
	Screenshot(ctx context.Context, name string) ([]byte, error)
	ZoomOut(ctx context.Context) error
	MakeMove(ctx context.Context, x, y, toX, toY, waitUnits int) error
	RemoteAddr() string
	Err() error
}

type Config struct {
	Addr        string
	CorsOrigins []string
	// RequestTimeout bounds each driver call. Zero leaves calls unbounded.
	RequestTimeout time.Duration
	// Token, when set, is required as a bearer token on every route except
	// /health and /metrics.
	Token string
}

type Gateway struct {
	cfg     Config
	driver  Driver
	router  *gin.Engine
	started time.Time
}

func New(d Driver, cfg Config) *Gateway {
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(observability.Logger("gateway")))
	r.Use(observability.RequestMetricsMiddleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(cfg.CorsOrigins),
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))
	if cfg.Token != "" {
		r.Use(auth.Require(auth.StaticToken{Token: cfg.Token}, "/health", "/metrics"))
	}
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	g := &Gateway{
		cfg:     cfg,
		driver:  d,
		router:  r,
		started: time.Now(),
	}
	g.registerRoutes()
	return g
}

func (g *Gateway) Handler() http.Handler {
	return g.router
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (g *Gateway) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              g.cfg.Addr,
		Handler:           g.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logs.Infof("gateway listening addr=%q harness=%q", g.cfg.Addr, g.driver.RemoteAddr())
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("gateway shutdown")
			return err
		}
		return nil
	}
}

// callContext outlives the HTTP request. A client hanging up mid-call must
// not cut a command off after it reached the shared harness connection.
func (g *Gateway) callContext(c *gin.Context) (context.Context, context.CancelFunc) {
	ctx := context.WithoutCancel(c.Request.Context())
	if g.cfg.RequestTimeout > 0 {
		return context.WithTimeout(ctx, g.cfg.RequestTimeout)
	}
	return context.WithCancel(ctx)
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
	if len(out) == 0 {
		return []string{"http://localhost:3000"}
	}
	return out
}
