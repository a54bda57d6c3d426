// Package render computes Mandelbrot rasters with interchangeable strategies.
//
// Every strategy maps pixels to the plane identically (plane.Config.Coord) and
// evaluates them with escape.Iterate or its single-precision kernel mirror.
// Strategies differ only in how rows are divided among workers; each row is
// written by exactly one worker, so the raster needs no locking.
package render

import (
	"context"
	"errors"
	"fmt"
	"github.com/willbeason/mandelbrot/pkg/escape"
	"github.com/willbeason/mandelbrot/pkg/partition"
	"github.com/willbeason/mandelbrot/pkg/plane"
	"github.com/willbeason/mandelbrot/pkg/raster"
	"time"
)

var (
	// ErrRasterMismatch is returned when a raster does not have the
	// configuration's dimensions.
	ErrRasterMismatch = errors.New("render: raster does not match configuration")

	// ErrWorkerPanic is returned when a worker panics. The raster is
	// incomplete and must be discarded.
	ErrWorkerPanic = errors.New("render: worker panicked")
)

// Strategy fills a raster for a configuration.
type Strategy interface {
	Name() string

	// Render writes every pixel of r. r must be cfg.Width by cfg.Height.
	// Render returns only after all workers have finished.
	Render(ctx context.Context, cfg plane.Config, r *raster.Raster) error
}

// Stats describes a completed render.
type Stats struct {
	// Strategy is the name of the strategy which produced the raster. For a
	// fallback this is the one that actually ran.
	Strategy string

	Width, Height int
	MaxIter       int

	// Units is the number of work units dispatched.
	Units int

	Elapsed time.Duration
}

func (s Stats) String() string {
	return fmt.Sprintf("%s  %dx%d  %d iterations  %d units  %v",
		s.Strategy, s.Width, s.Height, s.MaxIter, s.Units, s.Elapsed.Round(time.Millisecond))
}

// Render validates cfg, allocates a raster and fills it with s.
func Render(ctx context.Context, s Strategy, cfg plane.Config) (*raster.Raster, Stats, error) {
	if err := cfg.Validate(); err != nil {
		return nil, Stats{}, err
	}

	log := Logger()
	log.Info("rendering",
		"strategy", s.Name(),
		"width", cfg.Width,
		"height", cfg.Height,
		"maxIter", cfg.MaxIter,
	)

	r := raster.New(cfg.Width, cfg.Height)

	t := &tally{}
	start := time.Now()
	err := s.Render(withTally(ctx, t), cfg, r)
	elapsed := time.Since(start)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("render %s: %w", s.Name(), err)
	}

	stats := Stats{
		Strategy: s.Name(),
		Width:    cfg.Width,
		Height:   cfg.Height,
		MaxIter:  cfg.MaxIter,
		Units:    int(t.units.Load()),
		Elapsed:  elapsed,
	}
	if name := t.strategy.Load(); name != nil {
		stats.Strategy = *name
	}

	log.Info("rendered", "strategy", stats.Strategy, "units", stats.Units, "elapsed", elapsed)

	return r, stats, nil
}

func checkRaster(cfg plane.Config, r *raster.Raster) error {
	if r == nil || r.Width != cfg.Width || r.Height != cfg.Height || len(r.Pix) != cfg.Pixels() {
		return ErrRasterMismatch
	}
	return nil
}

// fillUnit evaluates every pixel in the rows of u.
func fillUnit(ctx context.Context, cfg plane.Config, r *raster.Raster, u partition.Unit) error {
	minReal, minImag := cfg.Window.MinReal, cfg.Window.MinImag
	pw, ph := cfg.PixelWidth(), cfg.PixelHeight()

	for py := u.Start; py < u.End; py++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		cImag := minImag + float64(py)*ph
		row := r.Row(py)
		for px := range row {
			cReal := minReal + float64(px)*pw
			row[px] = int32(escape.Iterate(cReal, cImag, cfg.MaxIter)) //nolint:gosec // bounded by MaxIter
		}
	}

	return nil
}
