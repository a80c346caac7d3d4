package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/danmuck/birdctl/internal/config"
	"github.com/danmuck/birdctl/internal/driver"
	logs "github.com/danmuck/birdctl/internal/logging"
	"github.com/danmuck/birdctl/internal/mcp"
	"github.com/danmuck/birdctl/internal/screenshot"
	"github.com/mark3labs/mcp-go/server"
)

const version = "0.1.0"

func main() {
	configPath := flag.String("config", "", "config path")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "birdmcp: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	logs.ConfigureStdio(cfg.LogFile)

	client, err := driver.Dial(context.Background(), cfg.Transport(),
		driver.WithTiming(cfg.Timing()),
		driver.WithScreenshotSink(screenshot.NewStore(cfg.ScreenshotDir)),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "birdmcp: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	tools := mcp.NewTools(client, cfg.TeamID)
	tools.Timeout = cfg.CallTimeout
	s := mcp.NewServer("birdctl", version, tools)
	logs.Infof("birdmcp.main harness=%s team=%q", client.RemoteAddr(), cfg.TeamID)
	if err := server.ServeStdio(s); err != nil {
		logs.Errf("birdmcp.main serve err=%v", err)
		client.Close()
		os.Exit(1)
	}
}
