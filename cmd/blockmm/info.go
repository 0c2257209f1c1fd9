package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/blockmm/internal/cpuinfo"
	"github.com/samcharles93/blockmm/pkg/threadpool"
)

func infoCmd() *cli.Command {
	return &cli.Command{
		Name:  "info",
		Usage: "Print host CPU features and the effective engine settings",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			block, err := resolveBlockConfig(cmd, fileConfig)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			workers := int(threads)
			if hw := threadpool.HardwareThreads(); workers <= 0 || workers > hw {
				workers = hw
			}

			if err := cpuinfo.Detect().Write(os.Stdout); err != nil {
				return err
			}
			fmt.Println()
			rows := [][2]string{
				{"threads", fmt.Sprint(workers)},
				{"kernel", kernelName},
				{"small threshold", fmt.Sprint(smallThreshold)},
				{"block", block.String()},
				{"vertical panel", fmt.Sprintf("%d elements", block.VerticalPanelSize())},
				{"horizontal panel", fmt.Sprintf("%d elements", block.HorizontalPanelSize())},
				{"config", configPath(configFile)},
			}
			for _, r := range rows {
				fmt.Printf("%-17s %s\n", r[0]+":", r[1])
			}
			return nil
		},
	}
}
