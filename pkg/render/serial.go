package render

import (
	"context"
	"github.com/willbeason/mandelbrot/pkg/partition"
	"github.com/willbeason/mandelbrot/pkg/plane"
	"github.com/willbeason/mandelbrot/pkg/raster"
)

// Serial fills the whole raster on the calling goroutine.
type Serial struct{}

func (Serial) Name() string {
	return "serial"
}

func (s Serial) Render(ctx context.Context, cfg plane.Config, r *raster.Raster) error {
	if err := checkRaster(cfg, r); err != nil {
		return err
	}

	u := partition.Unit{Start: 0, End: cfg.Height}
	var o options
	o.dispatch(ctx, s.Name(), u)

	return fillUnit(ctx, cfg, r, u)
}
