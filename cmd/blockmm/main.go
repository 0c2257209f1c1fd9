package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/blockmm/internal/logger"
)

// fileConfig is the config file loaded by the root Before hook.
var fileConfig Config

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:   "blockmm",
		Usage:  "Blocked, multithreaded dense matrix multiply and transpose",
		Flags:  globalFlags(),
		Before: setup,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			multiplyCmd(),
			transposeCmd(),
			benchCmd(),
			serveCmd(),
			infoCmd(),
			versionCmd(),
		},
	}
}

// setup loads the config file and installs the logger on the context.
func setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg, err := LoadConfig(configPath(configFile))
	if err != nil {
		return ctx, cli.Exit(fmt.Sprintf("error: config: %v", err), 1)
	}
	fileConfig = cfg
	applyLoggingConfig(cmd, cfg)
	applyEngineConfig(cmd, cfg)

	level := logger.ParseLevel(logLevel)
	if debug {
		level = slog.LevelDebug
	}
	log := logger.ForFormat(os.Stderr, logFormat, level)
	return logger.WithContext(ctx, log), nil
}
