package render

import (
	"context"
	"errors"
	"github.com/willbeason/mandelbrot/internal/accel"
	"github.com/willbeason/mandelbrot/internal/forkjoin"
	"github.com/willbeason/mandelbrot/pkg/escape"
	"github.com/willbeason/mandelbrot/pkg/partition"
	"github.com/willbeason/mandelbrot/pkg/plane"
	"github.com/willbeason/mandelbrot/pkg/raster"
	"sync"
	"testing"
)

func smallConfig() plane.Config {
	return plane.Config{
		Window:  plane.Full,
		Width:   4,
		Height:  4,
		MaxIter: 50,
	}
}

func mediumConfig() plane.Config {
	return plane.Config{
		Window:  plane.SeahorseValley,
		Width:   96,
		Height:  61,
		MaxIter: 300,
	}
}

// reference evaluates every pixel directly from the plane mapping.
func reference(cfg plane.Config) *raster.Raster {
	r := raster.New(cfg.Width, cfg.Height)
	for y := 0; y < cfg.Height; y++ {
		for x := 0; x < cfg.Width; x++ {
			re, im := cfg.Coord(x, y)
			r.Set(x, y, escape.Iterate(re, im, cfg.MaxIter))
		}
	}
	return r
}

func cpuStrategies(t *testing.T, opts ...Option) map[string]Strategy {
	t.Helper()

	pool := forkjoin.NewPool(2)
	t.Cleanup(pool.Close)

	return map[string]Strategy{
		"threads":  NewFixedThreads(2, opts...),
		"taskpool": NewDivideAndConquer(pool, 0, opts...),
		"serial":   Serial{},
	}
}

func TestStrategies_SmallGridIdentical(t *testing.T) {
	cfg := smallConfig()
	want := reference(cfg)

	for name, s := range cpuStrategies(t) {
		t.Run(name, func(t *testing.T) {
			got, _, err := Render(context.Background(), s, cfg)
			if err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			if d := got.Diff(want); d != 0 {
				t.Errorf("Render() differs from direct evaluation in %d pixels", d)
			}
		})
	}
}

func TestStrategies_Agree(t *testing.T) {
	cfg := mediumConfig()
	want := reference(cfg)

	pool := forkjoin.NewPool(4)
	defer pool.Close()

	strategies := []Strategy{
		NewFixedThreads(1),
		NewFixedThreads(3),
		NewFixedThreads(8),
		NewFixedThreads(100),
		NewDivideAndConquer(pool, 0),
		NewDivideAndConquer(pool, 2),
		NewDivideAndConquer(pool, 7),
		NewDivideAndConquer(pool, 1000),
	}

	for _, s := range strategies {
		got, _, err := Render(context.Background(), s, cfg)
		if err != nil {
			t.Fatalf("%s: Render() error = %v", s.Name(), err)
		}
		if !got.Equal(want) {
			t.Errorf("%s: differs from direct evaluation in %d pixels", s.Name(), got.Diff(want))
		}
	}
}

func TestStrategies_Idempotent(t *testing.T) {
	cfg := mediumConfig()

	for name, s := range cpuStrategies(t) {
		first, _, err := Render(context.Background(), s, cfg)
		if err != nil {
			t.Fatalf("%s: Render() error = %v", name, err)
		}
		second, _, err := Render(context.Background(), s, cfg)
		if err != nil {
			t.Fatalf("%s: Render() error = %v", name, err)
		}
		if !first.Equal(second) {
			t.Errorf("%s: repeated render differs in %d pixels", name, first.Diff(second))
		}
	}
}

func TestStrategies_Coverage(t *testing.T) {
	cfg := mediumConfig()

	var mu sync.Mutex
	var units []partition.Unit
	observe := WithObserver(func(u partition.Unit) {
		mu.Lock()
		units = append(units, u)
		mu.Unlock()
	})

	for name, s := range cpuStrategies(t, observe) {
		units = nil

		_, stats, err := Render(context.Background(), s, cfg)
		if err != nil {
			t.Fatalf("%s: Render() error = %v", name, err)
		}

		if name == "serial" {
			// Serial takes no options.
			continue
		}
		if err := partition.Verify(units, cfg.Height); err != nil {
			t.Errorf("%s: dispatched units do not cover the raster: %v", name, err)
		}
		if stats.Units != len(units) {
			t.Errorf("%s: Stats.Units = %d, observed %d", name, stats.Units, len(units))
		}
	}
}

func TestDivideAndConquer_Leaves(t *testing.T) {
	cfg := mediumConfig()

	pool := forkjoin.NewPool(3)
	defer pool.Close()

	var mu sync.Mutex
	seen := make(map[partition.Unit]int)
	s := NewDivideAndConquer(pool, 5, WithObserver(func(u partition.Unit) {
		mu.Lock()
		seen[u]++
		mu.Unlock()
	}))

	if _, _, err := Render(context.Background(), s, cfg); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	want := partition.Leaves(partition.Unit{Start: 0, End: cfg.Height}, 5)
	if len(seen) != len(want) {
		t.Fatalf("dispatched %d distinct leaves, want %d", len(seen), len(want))
	}
	for _, u := range want {
		if seen[u] != 1 {
			t.Errorf("leaf %v dispatched %d times, want 1", u, seen[u])
		}
	}
}

func TestDivideAndConquer_Threshold(t *testing.T) {
	pool := forkjoin.NewPool(4)
	defer pool.Close()

	tests := []struct {
		threshold, height, want int
	}{
		{0, 2048, 51},
		{0, 10, partition.MinThreshold},
		{1, 2048, partition.MinThreshold},
		{64, 2048, 64},
	}
	for _, tc := range tests {
		s := NewDivideAndConquer(pool, tc.threshold)
		if got := s.Threshold(tc.height); got != tc.want {
			t.Errorf("Threshold(%d) with threshold %d = %d, want %d", tc.height, tc.threshold, got, tc.want)
		}
	}
}

func TestFixedThreads_Units(t *testing.T) {
	_, stats, err := Render(context.Background(), NewFixedThreads(3), mediumConfig())
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if stats.Units != 3 {
		t.Errorf("Stats.Units = %d, want 3", stats.Units)
	}
	if stats.Strategy != "threads" {
		t.Errorf("Stats.Strategy = %q, want %q", stats.Strategy, "threads")
	}
}

func TestFixedThreads_InvalidWorkers(t *testing.T) {
	_, _, err := Render(context.Background(), NewFixedThreads(0), smallConfig())
	if !errors.Is(err, partition.ErrWorkers) {
		t.Errorf("Render() = %v, want ErrWorkers", err)
	}
}

func TestRender_InvalidConfig(t *testing.T) {
	cfg := smallConfig()
	cfg.Width = 0

	_, _, err := Render(context.Background(), Serial{}, cfg)
	if !errors.Is(err, plane.ErrInvalidConfig) {
		t.Errorf("Render() = %v, want ErrInvalidConfig", err)
	}
}

func TestRender_BudgetBeyondPixelRange(t *testing.T) {
	cfg := plane.Config{
		Window:  plane.Window{MinReal: 3, MaxReal: 4, MinImag: 3, MaxImag: 4},
		Width:   1,
		Height:  1,
		MaxIter: 1<<32 + 5,
	}

	strategies := cpuStrategies(t)
	strategies["gpu"] = NewAccelerated(softwareOpener, "")

	for name, s := range strategies {
		r, _, err := Render(context.Background(), s, cfg)
		if !errors.Is(err, plane.ErrInvalidConfig) {
			t.Errorf("%s: Render() = %v, want ErrInvalidConfig", name, err)
		}
		if r != nil {
			t.Errorf("%s: Render() returned a raster for an invalid budget", name)
		}
	}
}

func TestStrategies_RasterMismatch(t *testing.T) {
	cfg := smallConfig()
	r := raster.New(cfg.Width+1, cfg.Height)

	strategies := cpuStrategies(t)
	strategies["gpu"] = NewAccelerated(softwareOpener, "")

	for name, s := range strategies {
		if err := s.Render(context.Background(), cfg, r); !errors.Is(err, ErrRasterMismatch) {
			t.Errorf("%s: Render() = %v, want ErrRasterMismatch", name, err)
		}
	}
}

func TestStrategies_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for name, s := range cpuStrategies(t) {
		_, _, err := Render(ctx, s, mediumConfig())
		if !errors.Is(err, context.Canceled) {
			t.Errorf("%s: Render() = %v, want context.Canceled", name, err)
		}
	}
}

func TestStrategies_WorkerPanic(t *testing.T) {
	boom := WithObserver(func(u partition.Unit) {
		if u.Start == 0 {
			panic("boom")
		}
	})

	for name, s := range cpuStrategies(t, boom) {
		if name == "serial" {
			continue
		}
		r, _, err := Render(context.Background(), s, mediumConfig())
		if !errors.Is(err, ErrWorkerPanic) {
			t.Errorf("%s: Render() = %v, want ErrWorkerPanic", name, err)
		}
		if r != nil {
			t.Errorf("%s: Render() returned a raster after a worker panic", name)
		}
	}
}

func softwareOpener() (accel.Accelerator, error) {
	return accel.NewSoftware(), nil
}

func TestAccelerated_Software(t *testing.T) {
	cfg := mediumConfig()

	got, stats, err := Render(context.Background(), NewAccelerated(softwareOpener, ""), cfg)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if stats.Units != 1 {
		t.Errorf("Stats.Units = %d, want 1", stats.Units)
	}

	s := cfg.Single()
	for y := 0; y < cfg.Height; y++ {
		for x := 0; x < cfg.Width; x++ {
			c := s.Coord(x, y)
			if want := escape.Iterate32(c.X(), c.Y(), cfg.MaxIter); got.At(x, y) != want {
				t.Fatalf("pixel (%d, %d) = %d, want %d", x, y, got.At(x, y), want)
			}
		}
	}

	t.Logf("single precision differs from double precision in %d of %d pixels", got.Diff(reference(cfg)), cfg.Pixels())
}

func TestAccelerated_SetupErrors(t *testing.T) {
	noDevice := func() (accel.Accelerator, error) { return nil, accel.ErrNoDevice }

	tests := []struct {
		name   string
		open   func() (accel.Accelerator, error)
		source string
		want   error
	}{
		{"no device", noDevice, "", accel.ErrNoDevice},
		{"bad kernel", softwareOpener, "fn main() {}", accel.ErrKernelBuild},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := NewAccelerated(tc.open, tc.source).Render(context.Background(), smallConfig(), raster.New(4, 4))
			if !accel.IsSetupError(err) {
				t.Errorf("Render() = %v, want a setup error", err)
			}
			if !errors.Is(err, tc.want) {
				t.Errorf("Render() = %v, want %v", err, tc.want)
			}
		})
	}
}

type failing struct{ err error }

func (failing) Name() string { return "failing" }

func (f failing) Render(context.Context, plane.Config, *raster.Raster) error { return f.err }

func TestFallback(t *testing.T) {
	cfg := smallConfig()
	noDevice := func() (accel.Accelerator, error) { return nil, accel.ErrNoDevice }

	got, stats, err := Render(context.Background(), NewFallback(NewAccelerated(noDevice, ""), Serial{}), cfg)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if stats.Strategy != "serial" {
		t.Errorf("Stats.Strategy = %q, want %q", stats.Strategy, "serial")
	}
	if !got.Equal(reference(cfg)) {
		t.Error("fallback render differs from direct evaluation")
	}
}

func TestFallback_OtherErrors(t *testing.T) {
	boom := errors.New("boom")

	_, _, err := Render(context.Background(), NewFallback(failing{boom}, Serial{}), smallConfig())
	if !errors.Is(err, boom) {
		t.Errorf("Render() = %v, want %v", err, boom)
	}
}
