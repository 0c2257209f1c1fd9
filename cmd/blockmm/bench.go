package main

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v3"
	gblas "gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/mat"

	"github.com/samcharles93/blockmm/internal/cpuinfo"
	"github.com/samcharles93/blockmm/internal/logger"
	"github.com/samcharles93/blockmm/pkg/blas"
	"github.com/samcharles93/blockmm/pkg/matrix"
)

// benchKernel is one implementation under measurement.
type benchKernel struct {
	name      string
	multiply  func(a, b *matrix.Dynamic[float64]) error
	transpose func(a *matrix.Dynamic[float64]) error
}

type benchResult struct {
	Op     string
	Kernel string
	Size   int
	Mean   time.Duration
	Rate   float64
	Unit   string
}

func benchCmd() *cli.Command {
	var (
		sizesFlag  string
		warmupRuns int64
		benchRuns  int64
		op         string
	)

	return &cli.Command{
		Name:  "bench",
		Usage: "Time the naive, sm, xl and gonum kernels on square matrices",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "sizes",
				Usage:       "comma-separated square sizes",
				Value:       "2,4,8,16,32,64,128,256,512",
				Destination: &sizesFlag,
			},
			&cli.Int64Flag{
				Name:        "warmup",
				Usage:       "number of warmup runs per case",
				Value:       1,
				Destination: &warmupRuns,
			},
			&cli.Int64Flag{
				Name:        "runs",
				Usage:       "number of timed runs per case",
				Value:       3,
				Destination: &benchRuns,
			},
			&cli.StringFlag{
				Name:        "op",
				Usage:       "operation (multiply, transpose, all)",
				Value:       "all",
				Destination: &op,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)

			sizes, err := parseSizes(sizesFlag)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: --sizes: %v", err), 1)
			}
			if benchRuns < 1 {
				return cli.Exit("error: --runs must be at least 1", 1)
			}
			ops, err := parseOps(op)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: --op: %v", err), 1)
			}

			sess, err := newSession(ctx, cmd)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			defer sess.Close()

			info := cpuinfo.Detect()
			log.Info("host", "cpus", info.NumCPU, "arch", info.GOARCH, "features", strings.Join(info.Enabled(), ","))

			fmt.Println("=== blockmm Benchmark ===")
			fmt.Printf("CPUs:       %d\n", runtime.NumCPU())
			fmt.Printf("GOMAXPROCS: %d\n", runtime.GOMAXPROCS(0))
			fmt.Printf("Threads:    %d\n", sess.pool.NumThreads())
			fmt.Printf("Block:      %s\n", sess.engine.Config())
			fmt.Printf("Warmup:     %d runs\n", warmupRuns)
			fmt.Printf("Runs:       %d\n", benchRuns)
			fmt.Println()

			kernels := benchKernels(sess.engine)
			var results []benchResult
			for _, o := range ops {
				for _, n := range sizes {
					a := randomSquare(n, uint64(n))
					b := randomSquare(n, uint64(n)+1)
					for _, k := range kernels {
						log.Debug("bench case", "op", o, "kernel", k.name, "size", n)
						res, err := runBenchCase(o, k, n, a, b, int(warmupRuns), int(benchRuns))
						if err != nil {
							return cli.Exit(fmt.Sprintf("error: %s %s n=%d: %v", o, k.name, n, err), 1)
						}
						results = append(results, res)
					}
				}
			}

			printBenchTable(os.Stdout, results)
			return nil
		},
	}
}

func benchKernels(e *blas.Engine) []benchKernel {
	return []benchKernel{
		{
			name: "naive",
			multiply: func(a, b *matrix.Dynamic[float64]) error {
				naiveMultiply(a, b)
				return nil
			},
			transpose: func(a *matrix.Dynamic[float64]) error {
				naiveTranspose(a)
				return nil
			},
		},
		{
			name: "sm",
			multiply: func(a, b *matrix.Dynamic[float64]) error {
				_, err := blas.Multiply[float64](e, a, b, blas.SM)
				return err
			},
			transpose: func(a *matrix.Dynamic[float64]) error {
				_, err := blas.Transpose[float64](e, a, blas.SM)
				return err
			},
		},
		{
			name: "xl",
			multiply: func(a, b *matrix.Dynamic[float64]) error {
				_, err := blas.Multiply[float64](e, a, b, blas.XL)
				return err
			},
			transpose: func(a *matrix.Dynamic[float64]) error {
				_, err := blas.Transpose[float64](e, a, blas.XL)
				return err
			},
		},
		{
			name: "gonum",
			multiply: func(a, b *matrix.Dynamic[float64]) error {
				gonumMultiply(a, b)
				return nil
			},
			transpose: func(a *matrix.Dynamic[float64]) error {
				gonumTranspose(a)
				return nil
			},
		},
	}
}

// gonumMultiply runs the same product through gonum's blas64 Gemm as an
// external baseline.
func gonumMultiply(a, b *matrix.Dynamic[float64]) *matrix.Dynamic[float64] {
	c := matrix.MustNew[float64](a.Rows(), b.Cols())
	blas64.Gemm(gblas.NoTrans, gblas.NoTrans, 1, general(a), general(b), 0, general(c))
	return c
}

func gonumTranspose(a *matrix.Dynamic[float64]) *matrix.Dynamic[float64] {
	var t mat.Dense
	t.CloneFrom(mat.NewDense(a.Rows(), a.Cols(), a.Data()).T())
	raw := t.RawMatrix()
	c := matrix.MustNew[float64](raw.Rows, raw.Cols)
	for i := range raw.Rows {
		copy(c.Data()[i*raw.Cols:(i+1)*raw.Cols], raw.Data[i*raw.Stride:])
	}
	return c
}

func general(m *matrix.Dynamic[float64]) blas64.General {
	return blas64.General{Rows: m.Rows(), Cols: m.Cols(), Data: m.Data(), Stride: max(m.Cols(), 1)}
}

func runBenchCase(op string, k benchKernel, n int, a, b *matrix.Dynamic[float64], warmup, runs int) (benchResult, error) {
	run := func() error {
		if op == "multiply" {
			return k.multiply(a, b)
		}
		return k.transpose(a)
	}
	for range warmup {
		if err := run(); err != nil {
			return benchResult{}, err
		}
	}

	var total time.Duration
	for range runs {
		start := time.Now()
		if err := run(); err != nil {
			return benchResult{}, err
		}
		total += time.Since(start)
	}
	mean := total / time.Duration(runs)

	res := benchResult{Op: op, Kernel: k.name, Size: n, Mean: mean}
	secs := mean.Seconds()
	if secs <= 0 {
		return res, nil
	}
	if op == "multiply" {
		res.Rate = 2 * float64(n) * float64(n) * float64(n) / secs / 1e9
		res.Unit = "GFLOP/s"
	} else {
		res.Rate = 2 * 8 * float64(n) * float64(n) / secs / 1e9
		res.Unit = "GB/s"
	}
	return res, nil
}

func printBenchTable(w io.Writer, results []benchResult) {
	_, _ = fmt.Fprintln(w, "=== Results ===")
	_, _ = fmt.Fprintf(w, "%-10s %-6s %6s %12s %10s\n", "Op", "Kernel", "N", "Mean", "Rate")
	_, _ = fmt.Fprintf(w, "%-10s %-6s %6s %12s %10s\n", "---", "---", "---", "", "")
	for _, r := range results {
		_, _ = fmt.Fprintf(w, "%-10s %-6s %6d %12s %10.3f %s\n",
			r.Op, r.Kernel, r.Size, r.Mean.Round(time.Microsecond), r.Rate, r.Unit)
	}
}

func parseSizes(s string) ([]int, error) {
	var out []int
	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid size %q", part)
		}
		if n < 1 {
			return nil, fmt.Errorf("size must be positive, got %d", n)
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no sizes given")
	}
	return out, nil
}

func parseOps(op string) ([]string, error) {
	switch strings.ToLower(strings.TrimSpace(op)) {
	case "all", "":
		return []string{"multiply", "transpose"}, nil
	case "multiply":
		return []string{"multiply"}, nil
	case "transpose":
		return []string{"transpose"}, nil
	default:
		return nil, fmt.Errorf("unknown operation %q", op)
	}
}

func randomSquare(n int, seed uint64) *matrix.Dynamic[float64] {
	r := rand.New(rand.NewPCG(seed, 42))
	m := matrix.MustNew[float64](n, n)
	for i := range m.Data() {
		m.Data()[i] = r.Float64()
	}
	return m
}

// naiveMultiply is the i-j-k reference loop the kernels are compared with.
func naiveMultiply(a, b *matrix.Dynamic[float64]) *matrix.Dynamic[float64] {
	m, k, n := a.Rows(), a.Cols(), b.Cols()
	c := matrix.MustNew[float64](m, n)
	ad, bd, cd := a.Data(), b.Data(), c.Data()
	for i := range m {
		for j := range n {
			var sum float64
			for l := range k {
				sum += ad[i*k+l] * bd[l*n+j]
			}
			cd[i*n+j] = sum
		}
	}
	return c
}

func naiveTranspose(a *matrix.Dynamic[float64]) *matrix.Dynamic[float64] {
	m, n := a.Rows(), a.Cols()
	c := matrix.MustNew[float64](n, m)
	ad, cd := a.Data(), c.Data()
	for j := range n {
		for i := range m {
			cd[j*m+i] = ad[i*n+j]
		}
	}
	return c
}
