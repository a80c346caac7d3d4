package gateway

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/danmuck/birdctl/internal/command"
	"github.com/danmuck/birdctl/internal/game"
	"github.com/danmuck/birdctl/internal/transport"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type configureRequest struct {
	TeamID     string `json:"team_id" binding:"required"`
	Resolution string `json:"resolution"`
}

type pointRequest struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type dragRequest struct {
	X  int `json:"x"`
	Y  int `json:"y"`
	DX int `json:"dx"`
	DY int `json:"dy"`
}

type wheelRequest struct {
	Delta int `json:"delta"`
}

type moveRequest struct {
	X    int `json:"x"`
	Y    int `json:"y"`
	ToX  int `json:"to_x"`
	ToY  int `json:"to_y"`
	Wait int `json:"wait"`
}

type shootRequest struct {
	Shots     []game.Shot `json:"shots"`
	WithState bool        `json:"with_state"`
}

type screenshotRequest struct {
	Name      string `json:"name"`
	Directory string `json:"directory"`
}

func (g *Gateway) registerRoutes() {
	r := g.router
	r.GET("/health", func(c *gin.Context) {
		status := "ok"
		code := http.StatusOK
		if err := g.driver.Err(); err != nil {
			status = "broken"
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":  status,
			"uptime":  time.Since(g.started).String(),
			"harness": g.driver.RemoteAddr(),
			"version": version,
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/configure", func(c *gin.Context) {
		var req configureRequest
		if !bind(c, &req) {
			return
		}
		g.ack(c, "configure", func(ctx context.Context) (bool, error) {
			if strings.TrimSpace(req.Resolution) != "" {
				return g.driver.ConfigureWithResolution(ctx, req.TeamID, req.Resolution)
			}
			return g.driver.Configure(ctx, req.TeamID)
		})
	})
	r.GET("/configuration", func(c *gin.Context) {
		ctx, cancel := g.callContext(c)
		defer cancel()
		cfg, err := g.driver.GetConfiguration(ctx, c.Query("team_id"))
		if err != nil {
			fail(c, "configuration", err)
			return
		}
		c.JSON(http.StatusOK, cfg)
	})
	r.GET("/grades", func(c *gin.Context) {
		ctx, cancel := g.callContext(c)
		defer cancel()
		grades, err := g.driver.GetGlobalConfiguration(ctx)
		if err != nil {
			fail(c, "grades", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"grades": grades})
	})
	r.GET("/state", func(c *gin.Context) {
		ctx, cancel := g.callContext(c)
		defer cancel()
		info, err := g.driver.GetStateInfo(ctx)
		if err != nil {
			fail(c, "state", err)
			return
		}
		c.JSON(http.StatusOK, info)
	})

	r.POST("/levels/:level", func(c *gin.Context) {
		raw := c.Param("level")
		if raw == "next" {
			g.ack(c, "load_level", g.driver.LoadNextLevel)
			return
		}
		level, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "level must be an integer or \"next\""})
			return
		}
		g.ack(c, "load_level", func(ctx context.Context) (bool, error) {
			return g.driver.LoadLevel(ctx, level)
		})
	})
	r.POST("/restart", func(c *gin.Context) { g.ack(c, "restart", g.driver.Restart) })
	r.POST("/next-level", func(c *gin.Context) { g.ack(c, "next_level", g.driver.NextLevel) })
	r.POST("/finish-run", func(c *gin.Context) { g.ack(c, "finish_run", g.driver.FinishRun) })
	r.POST("/finish-play", func(c *gin.Context) { g.oneWay(c, "finish_play", g.driver.FinishPlay) })
	r.POST("/zoom-out", func(c *gin.Context) { g.oneWay(c, "zoom_out", g.driver.ZoomOut) })

	r.POST("/click", func(c *gin.Context) {
		var req pointRequest
		if !bind(c, &req) {
			return
		}
		g.oneWay(c, "click", func(ctx context.Context) error {
			return g.driver.Click(ctx, req.X, req.Y)
		})
	})
	r.POST("/drag", func(c *gin.Context) {
		var req dragRequest
		if !bind(c, &req) {
			return
		}
		g.oneWay(c, "drag", func(ctx context.Context) error {
			return g.driver.Drag(ctx, req.X, req.Y, req.DX, req.DY)
		})
	})
	r.POST("/wheel", func(c *gin.Context) {
		var req wheelRequest
		if !bind(c, &req) {
			return
		}
		g.oneWay(c, "wheel", func(ctx context.Context) error {
			return g.driver.MouseWheel(ctx, req.Delta)
		})
	})
	r.POST("/move", func(c *gin.Context) {
		var req moveRequest
		if !bind(c, &req) {
			return
		}
		g.oneWay(c, "move", func(ctx context.Context) error {
			return g.driver.MakeMove(ctx, req.X, req.Y, req.ToX, req.ToY, req.Wait)
		})
	})

	r.POST("/shoot", func(c *gin.Context) {
		var req shootRequest
		if !bind(c, &req) {
			return
		}
		if req.Shots == nil {
			req.Shots = []game.Shot{}
		}
		if !req.WithState {
			g.ack(c, "shoot", func(ctx context.Context) (bool, error) {
				return g.driver.Shoot(ctx, req.Shots)
			})
			return
		}
		ctx, cancel := g.callContext(c)
		defer cancel()
		info, err := g.driver.ShootWithStateInfoReturned(ctx, req.Shots)
		if err != nil {
			fail(c, "shoot", err)
			return
		}
		c.JSON(http.StatusOK, info)
	})

	r.POST("/screenshot", func(c *gin.Context) {
		var req screenshotRequest
		if c.Request.ContentLength > 0 && !bind(c, &req) {
			return
		}
		ctx, cancel := g.callContext(c)
		defer cancel()
		var (
			blob []byte
			err  error
		)
		if name := strings.TrimSpace(req.Name); name != "" {
			blob, err = g.driver.Screenshot(ctx, name)
		} else {
			blob, err = g.driver.CaptureScreenshot(ctx, req.Directory)
		}
		if err != nil {
			fail(c, "screenshot", err)
			return
		}
		c.Data(http.StatusOK, "image/png", blob)
	})
}

func (g *Gateway) ack(c *gin.Context, action string, fn func(context.Context) (bool, error)) {
	ctx, cancel := g.callContext(c)
	defer cancel()
	ok, err := fn(ctx)
	if err != nil {
		fail(c, action, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": ok})
}

func (g *Gateway) oneWay(c *gin.Context, action string, fn func(context.Context) error) {
	ctx, cancel := g.callContext(c)
	defer cancel()
	if err := fn(ctx); err != nil {
		fail(c, action, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}

func bind(c *gin.Context, out any) bool {
	if err := c.ShouldBindJSON(out); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

func fail(c *gin.Context, action string, err error) {
	status := statusFor(err)
	_ = c.Error(err).SetMeta(action)
	c.JSON(status, gin.H{"error": err.Error(), "action": action})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, transport.ErrBroken),
		errors.Is(err, transport.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, transport.ErrConnect),
		errors.Is(err, transport.ErrIO),
		errors.Is(err, transport.ErrDecode),
		errors.Is(err, command.ErrReplyShapeMismatch):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
