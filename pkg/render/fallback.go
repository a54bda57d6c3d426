package render

import (
	"context"
	"github.com/willbeason/mandelbrot/internal/accel"
	"github.com/willbeason/mandelbrot/pkg/plane"
	"github.com/willbeason/mandelbrot/pkg/raster"
)

// Fallback renders with Primary, and with Secondary if Primary could not set
// up its accelerator. Any other error from Primary is returned as is.
type Fallback struct {
	Primary   Strategy
	Secondary Strategy
}

func NewFallback(primary, secondary Strategy) *Fallback {
	return &Fallback{Primary: primary, Secondary: secondary}
}

func (s *Fallback) Name() string {
	return s.Primary.Name()
}

func (s *Fallback) Render(ctx context.Context, cfg plane.Config, r *raster.Raster) error {
	err := s.Primary.Render(ctx, cfg, r)
	if err == nil || !accel.IsSetupError(err) {
		return err
	}

	Logger().Warn("accelerator unavailable, falling back",
		"from", s.Primary.Name(),
		"to", s.Secondary.Name(),
		"err", err,
	)
	ranWith(ctx, s.Secondary.Name())

	return s.Secondary.Render(ctx, cfg, r)
}
