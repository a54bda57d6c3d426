// Package sink shows finished rasters: as PNG files, or served to a browser.
package sink

import (
	"context"
	"github.com/willbeason/mandelbrot/pkg/raster"
	"github.com/willbeason/mandelbrot/pkg/render"
)

// Sink displays a completed render. Show may block, for example until ctx is
// cancelled, but must not modify r.
type Sink interface {
	Show(ctx context.Context, r *raster.Raster, stats render.Stats) error
}

type multi []Sink

// Multi shows a raster on each sink in turn, stopping at the first error.
func Multi(sinks ...Sink) Sink {
	return multi(sinks)
}

func (m multi) Show(ctx context.Context, r *raster.Raster, stats render.Stats) error {
	for _, s := range m {
		if err := s.Show(ctx, r, stats); err != nil {
			return err
		}
	}
	return nil
}
