package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/danmuck/birdctl/internal/config"
	"github.com/danmuck/birdctl/internal/driver"
	"github.com/danmuck/birdctl/internal/logging"
	"github.com/danmuck/birdctl/internal/screenshot"
)

const defaultConfigPath = "birdctl.toml"

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			usage(os.Stderr)
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "birdctl: %v\n", err)
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, `usage: birdctl [-config path] <command> [args]

commands:
  config init [-output path] [-force]   write a default config file
  configure [team] [resolution]         register the team
  configuration [team]                  show the player configuration
  snapshot [team]                       save the player configuration as YAML
  grades                                show best grade per level
  state                                 show score and level state
  load <level|next>                     load a level
  restart | next | finish-run | finish-play
  click <x> <y>
  drag <x> <y> <dx> <dy>
  move <x> <y> <toX> <toY> <wait>       drag then wait wait*move_unit
  wheel <delta>
  zoom-out
  shoot <x> <y> <dx> <dy> <t_shot> <t_tap> [...]  six ints per shot
  screenshot <name>                     save a frame under screenshot_dir
  serve                                 run the HTTP gateway`)
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("birdctl", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configPath := fs.String("config", "", "config path (default birdctl.toml when present)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	rest := fs.Args()
	if len(rest) == 0 {
		return errUsage
	}
	if rest[0] == "config" {
		return runConfig(rest[1:], out)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	logging.ConfigureRuntimeWithFile(cfg.LogFile)

	client, err := driver.Dial(ctx, cfg.Transport(),
		driver.WithTiming(cfg.Timing()),
		driver.WithScreenshotSink(screenshot.NewStore(cfg.ScreenshotDir)),
	)
	if err != nil {
		return err
	}
	defer client.Close()

	return dispatch(ctx, &app{cfg: cfg, client: client, out: out}, rest[0], rest[1:])
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		if _, err := os.Stat(defaultConfigPath); err != nil {
			return config.Default(), nil
		}
		path = defaultConfigPath
	}
	return config.Load(path)
}

func runConfig(args []string, out io.Writer) error {
	if len(args) == 0 || args[0] != "init" {
		return errUsage
	}
	fs := flag.NewFlagSet("config init", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	output := fs.String("output", defaultConfigPath, "output path for config template")
	force := fs.Bool("force", false, "overwrite existing config file")
	if err := fs.Parse(args[1:]); err != nil {
		return errUsage
	}
	if err := config.WriteTemplate(*output, *force); err != nil {
		return err
	}
	fmt.Fprintf(out, "wrote %s\n", *output)
	return nil
}

func atoiAll(args []string) ([]int, error) {
	out := make([]int, 0, len(args))
	for _, a := range args {
		v, err := strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an integer", errUsage, a)
		}
		out = append(out, v)
	}
	return out, nil
}
