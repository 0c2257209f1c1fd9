package main

import (
	"context"
	"fmt"
	"io"
	"runtime"

	json "github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/blockmm/internal/version"
	"github.com/samcharles93/blockmm/pkg/blas"
	"github.com/samcharles93/blockmm/pkg/threadpool"
)

// buildReport is the machine-readable form of `blockmm version --json`.
type buildReport struct {
	version.Info
	Platform string      `json:"platform"`
	Threads  int         `json:"threads"`
	Block    blas.Config `json:"block"`
}

func versionCmd() *cli.Command {
	var asJSON bool

	return &cli.Command{
		Name:  "version",
		Usage: "Print version and build information",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "print the report as JSON",
				Destination: &asJSON,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			report := buildReport{
				Info:     version.Resolve(),
				Platform: runtime.GOOS + "/" + runtime.GOARCH,
				Threads:  threadpool.HardwareThreads(),
				Block:    blas.DefaultConfig(),
			}
			if asJSON {
				enc := json.NewEncoder(stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			writeVersion(stdout, report)
			return nil
		},
	}
}

func writeVersion(w io.Writer, r buildReport) {
	_, _ = fmt.Fprintf(w, "blockmm %s\n", version.String())
	if r.BuildTime != "" {
		_, _ = fmt.Fprintf(w, "built:    %s\n", r.BuildTime)
	}
	if r.Modified {
		_, _ = fmt.Fprintln(w, "tree:     modified")
	}
	_, _ = fmt.Fprintf(w, "go:       %s %s\n", r.GoVersion, r.Platform)
	_, _ = fmt.Fprintf(w, "threads:  %d\n", r.Threads)
	_, _ = fmt.Fprintf(w, "blocking: %s\n", r.Block)
}
