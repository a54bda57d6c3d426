package render

import (
	"context"
	"fmt"
	"github.com/willbeason/mandelbrot/pkg/partition"
	"github.com/willbeason/mandelbrot/pkg/plane"
	"github.com/willbeason/mandelbrot/pkg/raster"
	"golang.org/x/sync/errgroup"
)

// FixedThreads splits the raster into one contiguous band of rows per worker
// and runs each band on its own goroutine.
type FixedThreads struct {
	workers int
	opts    options
}

// NewFixedThreads returns a strategy with the given number of workers.
// Render fails if workers is not positive.
func NewFixedThreads(workers int, opts ...Option) *FixedThreads {
	return &FixedThreads{
		workers: workers,
		opts:    newOptions(opts),
	}
}

func (s *FixedThreads) Name() string {
	return "threads"
}

func (s *FixedThreads) Workers() int {
	return s.workers
}

func (s *FixedThreads) Render(ctx context.Context, cfg plane.Config, r *raster.Raster) error {
	if err := checkRaster(cfg, r); err != nil {
		return err
	}

	units, err := partition.Fixed(cfg.Height, s.workers)
	if err != nil {
		return err
	}

	s.opts.log().Debug("fixed partition", "workers", s.workers, "rowsPerWorker", cfg.Height/s.workers)

	g, gctx := errgroup.WithContext(ctx)
	for i, u := range units {
		g.Go(func() (err error) {
			defer func() {
				if v := recover(); v != nil {
					err = fmt.Errorf("%w: worker %d on rows %v: %v", ErrWorkerPanic, i, u, v)
				}
			}()

			s.opts.dispatch(gctx, s.Name(), u)
			return fillUnit(gctx, cfg, r, u)
		})
	}

	return g.Wait()
}
