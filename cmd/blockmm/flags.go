package main

import "github.com/urfave/cli/v3"

var (
	configFile     string
	threads        int64
	kernelName     string
	smallThreshold int64
	blockMR        int64
	blockNR        int64
	blockMC        int64
	blockKC        int64
	blockNC        int64
	logLevel       string
	logFormat      string
	debug          bool
)

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}

func engineFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "path to config.yaml (default: $" + envConfigPath + " or the user config dir)",
			Destination: &configFile,
		},
		&cli.Int64Flag{
			Name:        "threads",
			Aliases:     []string{"j"},
			Usage:       "worker threads (0 = one per hardware thread)",
			Destination: &threads,
		},
		&cli.StringFlag{
			Name:        "kernel",
			Aliases:     []string{"k"},
			Usage:       "kernel (xl, sm, auto)",
			Value:       "auto",
			Destination: &kernelName,
		},
		&cli.Int64Flag{
			Name:        "small-threshold",
			Usage:       "largest m*k*n volume auto routes to the sm kernel",
			Value:       64 * 64 * 64,
			Destination: &smallThreshold,
		},
	}
}

func blockFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Int64Flag{Name: "mr", Usage: "register tile rows", Destination: &blockMR},
		&cli.Int64Flag{Name: "nr", Usage: "register tile columns", Destination: &blockNR},
		&cli.Int64Flag{Name: "mc", Usage: "rows per packed A block", Destination: &blockMC},
		&cli.Int64Flag{Name: "kc", Usage: "shared dimension per packed block", Destination: &blockKC},
		&cli.Int64Flag{Name: "nc", Usage: "columns per packed B block", Destination: &blockNC},
	}
}

func globalFlags() []cli.Flag {
	flags := append([]cli.Flag{}, loggingFlags()...)
	flags = append(flags, engineFlags()...)
	return append(flags, blockFlags()...)
}
