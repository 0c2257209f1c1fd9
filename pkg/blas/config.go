package blas

import "fmt"

// Default blocking parameters. MR x NR is the register tile, MC x KC the
// vertical (A) panel and KC x NC the horizontal (B) panel.
const (
	DefaultMR = 8
	DefaultNR = 4
	DefaultMC = 8192
	DefaultKC = 256
	DefaultNC = 64
)

// Config holds the blocking parameters used by the xl kernels. The yaml
// tags let a config file's block section decode straight into it.
type Config struct {
	MR int `yaml:"mr" json:"mr"`
	NR int `yaml:"nr" json:"nr"`
	MC int `yaml:"mc" json:"mc"`
	KC int `yaml:"kc" json:"kc"`
	NC int `yaml:"nc" json:"nc"`
}

func DefaultConfig() Config {
	return Config{
		MR: DefaultMR,
		NR: DefaultNR,
		MC: DefaultMC,
		KC: DefaultKC,
		NC: DefaultNC,
	}
}

// Validate reports the first non-positive blocking parameter.
func (c Config) Validate() error {
	for _, f := range []struct {
		name string
		v    int
	}{
		{"mr", c.MR},
		{"nr", c.NR},
		{"mc", c.MC},
		{"kc", c.KC},
		{"nc", c.NC},
	} {
		if f.v <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidConfig, f.name, f.v)
		}
	}
	return nil
}

// Merge returns c with every non-zero field of o applied on top.
func (c Config) Merge(o Config) Config {
	if o.MR != 0 {
		c.MR = o.MR
	}
	if o.NR != 0 {
		c.NR = o.NR
	}
	if o.MC != 0 {
		c.MC = o.MC
	}
	if o.KC != 0 {
		c.KC = o.KC
	}
	if o.NC != 0 {
		c.NC = o.NC
	}
	return c
}

func (c Config) String() string {
	return fmt.Sprintf("mr=%d nr=%d mc=%d kc=%d nc=%d", c.MR, c.NR, c.MC, c.KC, c.NC)
}

// VerticalPanelSize is the element capacity of a packed A block:
// ceil(MC/MR)*MR rows by KC columns.
func (c Config) VerticalPanelSize() int {
	return roundUp(c.MC, c.MR) * c.KC
}

// HorizontalPanelSize is the element capacity of a packed B block:
// KC rows by ceil(NC/NR)*NR columns.
func (c Config) HorizontalPanelSize() int {
	return c.KC * roundUp(c.NC, c.NR)
}

// verticalPanelFor sizes a vertical panel for an m x k operand. It never
// exceeds VerticalPanelSize and shrinks for operands smaller than one block.
func (c Config) verticalPanelFor(m, k int) int {
	return roundUp(min(m, c.MC), c.MR) * min(k, c.KC)
}

// horizontalPanelFor sizes a horizontal panel for a k x n operand.
func (c Config) horizontalPanelFor(k, n int) int {
	return min(k, c.KC) * roundUp(min(n, c.NC), c.NR)
}

// roundUp returns the smallest multiple of step that is >= v.
func roundUp(v, step int) int {
	return (v + step - 1) / step * step
}
