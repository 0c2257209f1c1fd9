package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/blockmm/internal/logger"
	"github.com/samcharles93/blockmm/pkg/blas"
	"github.com/samcharles93/blockmm/pkg/threadpool"
)

// session is the engine state shared by the matrix commands.
type session struct {
	pool     *threadpool.Pool
	engine   *blas.Engine
	selector *blas.Selector
	log      logger.Logger
}

func newSession(ctx context.Context, cmd *cli.Command) (*session, error) {
	log := logger.FromContext(ctx)

	block, err := resolveBlockConfig(cmd, fileConfig)
	if err != nil {
		return nil, err
	}

	pool := threadpool.New(int(threads), threadpool.WithLogger(log.WithGroup("pool")))
	engine, err := blas.NewEngine(pool, blas.WithConfig(block), blas.WithLogger(log.WithGroup("blas")))
	if err != nil {
		pool.Stop()
		return nil, err
	}
	log.Debug("engine ready", "threads", pool.NumThreads(), "block", block.String())

	return &session{
		pool:     pool,
		engine:   engine,
		selector: blas.NewSelector(int(smallThreshold)),
		log:      log,
	}, nil
}

func (s *session) Close() {
	s.pool.Stop()
}

// kernelChoice parses a --kernel value. auto is reported separately since
// it is a policy rather than a kernel.
func kernelChoice(name string) (blas.Kernel, bool, error) {
	if strings.EqualFold(strings.TrimSpace(name), "auto") {
		return 0, true, nil
	}
	k, err := blas.ParseKernel(name)
	if err != nil {
		return 0, false, fmt.Errorf("--kernel: %w", err)
	}
	return k, false, nil
}
