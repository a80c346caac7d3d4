package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/birdctl/internal/harness"
	logs "github.com/danmuck/birdctl/internal/logging"
)

func main() {
	addr := flag.String("addr", ":2004", "listen address")
	maxLevel := flag.Int("max-level", harness.DefaultMaxLevel, "levels available before configure")
	logFile := flag.String("log-file", "", "rotating log file path")
	flag.Parse()

	logs.ConfigureRuntimeWithFile(*logFile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	game := harness.NewScripted()
	game.MaxLevel = *maxLevel
	srv, err := harness.NewServer(game)
	if err != nil {
		fmt.Fprintf(os.Stderr, "birdstub: %v\n", err)
		os.Exit(1)
	}
	logs.Infof("birdstub.main addr=%s max_level=%d", *addr, *maxLevel)
	if err := srv.ListenAndServe(ctx, *addr); err != nil {
		fmt.Fprintf(os.Stderr, "birdstub: %v\n", err)
		os.Exit(1)
	}
}
