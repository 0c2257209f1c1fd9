package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/samcharles93/blockmm/pkg/blas"
)

const envConfigPath = "BLOCKMM_CONFIG"

// Config represents the blockmm configuration file
// (~/.config/blockmm/config.yaml). Pointer fields distinguish "not set" from
// zero values.
type Config struct {
	Threads        *int64       `yaml:"threads"`
	Kernel         string       `yaml:"kernel"`
	Block          *blas.Config `yaml:"block"`
	SmallThreshold *int64       `yaml:"small_threshold"`

	// Output
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Server
	ServerAddress string `yaml:"server_address"`
	MaxElements   *int64 `yaml:"max_elements"`
}

func configPath(flagValue string) string {
	if p := strings.TrimSpace(flagValue); p != "" {
		return p
	}
	if p := strings.TrimSpace(os.Getenv(envConfigPath)); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "blockmm", "config.yaml")
}

// LoadConfig reads the config file at path. A missing file yields a zero
// Config; a malformed one is an error.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return Config{}, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Config{}, nil
	}
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// applyLoggingConfig applies config file defaults to the logging flags when
// they were not set explicitly.
func applyLoggingConfig(c *cli.Command, cfg Config) {
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

// applyEngineConfig applies config file defaults to the engine flags.
func applyEngineConfig(c *cli.Command, cfg Config) {
	if cfg.Threads != nil && !c.IsSet("threads") {
		threads = *cfg.Threads
	}
	if cfg.Kernel != "" && !c.IsSet("kernel") {
		kernelName = cfg.Kernel
	}
	if cfg.SmallThreshold != nil && !c.IsSet("small-threshold") {
		smallThreshold = *cfg.SmallThreshold
	}
}

// applyServeConfig applies config file defaults to serve command variables.
func applyServeConfig(c *cli.Command, cfg Config, addr *string, maxElements *int64) {
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
	if cfg.MaxElements != nil && !c.IsSet("max-elements") {
		*maxElements = *cfg.MaxElements
	}
}

// resolveBlockConfig layers the defaults, the config file's block section
// and any block flags, in that order.
func resolveBlockConfig(c *cli.Command, cfg Config) (blas.Config, error) {
	block := blas.DefaultConfig()
	if cfg.Block != nil {
		block = block.Merge(*cfg.Block)
	}
	for _, f := range []struct {
		name string
		v    int64
		dst  *int
	}{
		{"mr", blockMR, &block.MR},
		{"nr", blockNR, &block.NR},
		{"mc", blockMC, &block.MC},
		{"kc", blockKC, &block.KC},
		{"nc", blockNC, &block.NC},
	} {
		if c.IsSet(f.name) {
			*f.dst = int(f.v)
		}
	}
	if err := block.Validate(); err != nil {
		return blas.Config{}, err
	}
	return block, nil
}
