package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/blockmm/pkg/blas"
	"github.com/samcharles93/blockmm/pkg/matrix"
)

type ioOptions struct {
	out    string
	dtype  string
	nested bool
}

func ioFlags(opts *ioOptions) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "out",
			Aliases:     []string{"o"},
			Usage:       "output file (default: stdout)",
			Destination: &opts.out,
		},
		&cli.StringFlag{
			Name:        "dtype",
			Usage:       "element type (float64, float32, int64)",
			Value:       "float64",
			Destination: &opts.dtype,
		},
		&cli.BoolFlag{
			Name:        "nested",
			Usage:       "write the result as an array of rows instead of {rows, cols, data}",
			Destination: &opts.nested,
		},
	}
}

func multiplyCmd() *cli.Command {
	var (
		aPath string
		bPath string
		opts  ioOptions
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "a",
			Usage:       "left operand JSON file (- for stdin)",
			Required:    true,
			Destination: &aPath,
		},
		&cli.StringFlag{
			Name:        "b",
			Usage:       "right operand JSON file (- for stdin)",
			Required:    true,
			Destination: &bPath,
		},
	}
	flags = append(flags, ioFlags(&opts)...)

	return &cli.Command{
		Name:  "multiply",
		Usage: "Multiply two matrices read from JSON files",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if aPath == "-" && bPath == "-" {
				return cli.Exit("error: only one operand can be read from stdin", 1)
			}
			sess, err := newSession(ctx, cmd)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			defer sess.Close()

			switch strings.ToLower(opts.dtype) {
			case "float64":
				err = runMultiply[float64](sess, aPath, bPath, opts)
			case "float32":
				err = runMultiply[float32](sess, aPath, bPath, opts)
			case "int64":
				err = runMultiply[int64](sess, aPath, bPath, opts)
			default:
				err = fmt.Errorf("unsupported dtype %q", opts.dtype)
			}
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: multiply: %v", err), 1)
			}
			return nil
		},
	}
}

func transposeCmd() *cli.Command {
	var (
		inPath string
		opts   ioOptions
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "in",
			Aliases:     []string{"i"},
			Usage:       "input JSON file (- for stdin)",
			Value:       "-",
			Destination: &inPath,
		},
	}
	flags = append(flags, ioFlags(&opts)...)

	return &cli.Command{
		Name:  "transpose",
		Usage: "Transpose a matrix read from a JSON file",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			sess, err := newSession(ctx, cmd)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			defer sess.Close()

			switch strings.ToLower(opts.dtype) {
			case "float64":
				err = runTranspose[float64](sess, inPath, opts)
			case "float32":
				err = runTranspose[float32](sess, inPath, opts)
			case "int64":
				err = runTranspose[int64](sess, inPath, opts)
			default:
				err = fmt.Errorf("unsupported dtype %q", opts.dtype)
			}
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: transpose: %v", err), 1)
			}
			return nil
		},
	}
}

func runMultiply[T matrix.Number](sess *session, aPath, bPath string, opts ioOptions) error {
	kernel, auto, err := kernelChoice(kernelName)
	if err != nil {
		return err
	}
	a, err := readMatrix[T](aPath)
	if err != nil {
		return fmt.Errorf("read a: %w", err)
	}
	b, err := readMatrix[T](bPath)
	if err != nil {
		return fmt.Errorf("read b: %w", err)
	}

	start := time.Now()
	var c *matrix.Dynamic[T]
	if auto {
		c, kernel, err = blas.MultiplyAuto[T](sess.engine, sess.selector, a, b)
	} else {
		c, err = blas.Multiply[T](sess.engine, a, b, kernel)
	}
	if err != nil {
		return err
	}
	sess.log.Info("multiply complete",
		"m", a.Rows(), "k", a.Cols(), "n", b.Cols(),
		"kernel", kernel.String(),
		"elapsed", time.Since(start),
	)
	return writeMatrix[T](opts, c)
}

func runTranspose[T matrix.Number](sess *session, inPath string, opts ioOptions) error {
	kernel, auto, err := kernelChoice(kernelName)
	if err != nil {
		return err
	}
	a, err := readMatrix[T](inPath)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	start := time.Now()
	var c *matrix.Dynamic[T]
	if auto {
		c, kernel, err = blas.TransposeAuto[T](sess.engine, sess.selector, a)
	} else {
		c, err = blas.Transpose[T](sess.engine, a, kernel)
	}
	if err != nil {
		return err
	}
	sess.log.Info("transpose complete",
		"m", a.Rows(), "n", a.Cols(),
		"kernel", kernel.String(),
		"elapsed", time.Since(start),
	)
	return writeMatrix[T](opts, c)
}

// stdin is a seam for tests.
var stdin io.Reader = os.Stdin

func readMatrix[T matrix.Number](path string) (*matrix.Dynamic[T], error) {
	if path == "-" {
		return matrix.Decode[T](stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return matrix.Decode[T](f)
}

// stdout is a seam for tests.
var stdout io.Writer = os.Stdout

func writeMatrix[T matrix.Number](opts ioOptions, m *matrix.Dynamic[T]) error {
	if opts.out == "" || opts.out == "-" {
		return matrix.Encode[T](stdout, m, opts.nested)
	}
	f, err := os.Create(opts.out)
	if err != nil {
		return err
	}
	if err := matrix.Encode[T](f, m, opts.nested); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
