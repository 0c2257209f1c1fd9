package blas

import (
	"errors"
	"testing"

	"github.com/samcharles93/blockmm/pkg/threadpool"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if got, want := cfg.VerticalPanelSize(), 8192*256; got != want {
		t.Fatalf("VerticalPanelSize = %d, want %d", got, want)
	}
	if got, want := cfg.HorizontalPanelSize(), 256*64; got != want {
		t.Fatalf("HorizontalPanelSize = %d, want %d", got, want)
	}
}

func TestPanelSizesRoundUp(t *testing.T) {
	t.Parallel()

	cfg := tinyConfig
	if got := cfg.VerticalPanelSize(); got != 9*5 {
		t.Fatalf("VerticalPanelSize = %d, want 45", got)
	}
	if got := cfg.HorizontalPanelSize(); got != 5*4 {
		t.Fatalf("HorizontalPanelSize = %d, want 20", got)
	}
	if got := cfg.verticalPanelFor(2, 3); got != 3*3 {
		t.Fatalf("verticalPanelFor(2,3) = %d, want 9", got)
	}
	if got := cfg.verticalPanelFor(100, 100); got != cfg.VerticalPanelSize() {
		t.Fatalf("verticalPanelFor exceeds cap: %d", got)
	}
	if got := cfg.horizontalPanelFor(100, 3); got != 5*4 {
		t.Fatalf("horizontalPanelFor(100,3) = %d, want 20", got)
	}
}

func TestValidateRejectsNonPositive(t *testing.T) {
	t.Parallel()

	for _, cfg := range []Config{
		{MR: 0, NR: 4, MC: 8, KC: 8, NC: 8},
		{MR: 8, NR: -1, MC: 8, KC: 8, NC: 8},
		{MR: 8, NR: 4, MC: 8, KC: 0, NC: 8},
		{MR: 8, NR: 4, MC: 8, KC: 8, NC: 0},
		{},
	} {
		if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Validate(%v) = %v, want ErrInvalidConfig", cfg, err)
		}
	}

	pool := threadpool.New(1)
	defer pool.Stop()
	if _, err := NewEngine(pool, WithConfig(Config{})); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("NewEngine with zero config: %v", err)
	}
}

func TestConfigMerge(t *testing.T) {
	t.Parallel()

	got := DefaultConfig().Merge(Config{KC: 128, NC: 32})
	want := Config{MR: 8, NR: 4, MC: 8192, KC: 128, NC: 32}
	if got != want {
		t.Fatalf("Merge = %v, want %v", got, want)
	}
}

func TestParseKernel(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]Kernel{"xl": XL, "SM": SM, " xl ": XL} {
		got, err := ParseKernel(in)
		if err != nil || got != want {
			t.Errorf("ParseKernel(%q) = %s, %v", in, got, err)
		}
	}
	if _, err := ParseKernel("auto"); !errors.Is(err, ErrUnsupportedKernel) {
		t.Fatalf("ParseKernel(auto): %v", err)
	}

	var k Kernel
	if err := k.UnmarshalText([]byte("sm")); err != nil || k != SM {
		t.Fatalf("UnmarshalText: %s, %v", k, err)
	}
	if _, err := Kernel(9).MarshalText(); !errors.Is(err, ErrUnsupportedKernel) {
		t.Fatalf("MarshalText(9): %v", err)
	}
	if s := Kernel(9).String(); s != "Kernel(9)" {
		t.Fatalf("String = %q", s)
	}
}

func TestPanelAllocatorReuse(t *testing.T) {
	a := newPanelAllocator()
	p := getPanel[float64](a, 32)
	if p.Cap() != 32 || len(p.Data()) != 32 {
		t.Fatalf("panel cap = %d", p.Cap())
	}
	putPanel(a, p)

	// Same size, different element type: distinct pools.
	q := getPanel[int32](a, 32)
	if q.Cap() != 32 {
		t.Fatalf("int32 panel cap = %d", q.Cap())
	}
	if len(a.pools) != 2 {
		t.Fatalf("expected 2 pools, got %d", len(a.pools))
	}
	putPanel[int32](a, nil)
}
