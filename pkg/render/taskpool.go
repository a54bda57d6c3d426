package render

import (
	"context"
	"fmt"
	"github.com/willbeason/mandelbrot/internal/forkjoin"
	"github.com/willbeason/mandelbrot/pkg/partition"
	"github.com/willbeason/mandelbrot/pkg/plane"
	"github.com/willbeason/mandelbrot/pkg/raster"
)

// DivideAndConquer recursively halves the raster's rows on a work-stealing
// pool until a unit is shorter than the threshold, then fills it serially.
type DivideAndConquer struct {
	pool      *forkjoin.Pool
	threshold int
	opts      options
}

// NewDivideAndConquer returns a strategy running on pool. A threshold of 0 or
// less derives it from the raster height and pool size with
// partition.Threshold.
func NewDivideAndConquer(pool *forkjoin.Pool, threshold int, opts ...Option) *DivideAndConquer {
	return &DivideAndConquer{
		pool:      pool,
		threshold: threshold,
		opts:      newOptions(opts),
	}
}

func (s *DivideAndConquer) Name() string {
	return "taskpool"
}

// Threshold returns the leaf threshold used for a raster of the given height.
func (s *DivideAndConquer) Threshold(height int) int {
	if s.threshold > 0 {
		return max(s.threshold, partition.MinThreshold)
	}
	return partition.Threshold(height, s.pool.Workers())
}

func (s *DivideAndConquer) Render(ctx context.Context, cfg plane.Config, r *raster.Raster) error {
	if err := checkRaster(cfg, r); err != nil {
		return err
	}

	threshold := s.Threshold(cfg.Height)
	s.opts.log().Debug("divide and conquer",
		"workers", s.pool.Workers(),
		"threshold", threshold,
		"maxDepth", partition.MaxDepth(s.pool.Workers()),
	)

	var solve func(w *forkjoin.Worker, u partition.Unit)
	solve = func(w *forkjoin.Worker, u partition.Unit) {
		if ctx.Err() != nil {
			return
		}

		if partition.IsLeaf(u, threshold) {
			s.opts.dispatch(ctx, s.Name(), u)
			// Cancellation is reported once the pool returns.
			_ = fillUnit(ctx, cfg, r, u)
			return
		}

		upper, lower := partition.Split(u)
		w.InvokeAll(
			func(w *forkjoin.Worker) { solve(w, upper) },
			func(w *forkjoin.Worker) { solve(w, lower) },
		)
	}

	root := partition.Unit{Start: 0, End: cfg.Height}
	err := s.pool.Invoke(ctx, func(w *forkjoin.Worker) {
		solve(w, root)
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %w", ErrWorkerPanic, err)
	}

	return ctx.Err()
}
