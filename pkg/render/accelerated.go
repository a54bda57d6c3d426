package render

import (
	"context"
	"fmt"
	"github.com/willbeason/mandelbrot/internal/accel"
	"github.com/willbeason/mandelbrot/pkg/partition"
	"github.com/willbeason/mandelbrot/pkg/plane"
	"github.com/willbeason/mandelbrot/pkg/raster"
)

// Accelerated renders with one kernel dispatch per render: one work-item per
// pixel in single precision.
type Accelerated struct {
	open   func() (accel.Accelerator, error)
	source string
	opts   options
}

// NewAccelerated returns a strategy which calls open for every render and
// closes the accelerator when the render ends. An empty source selects
// accel.DefaultKernel.
func NewAccelerated(open func() (accel.Accelerator, error), source string, opts ...Option) *Accelerated {
	if source == "" {
		source = accel.DefaultKernel
	}
	return &Accelerated{
		open:   open,
		source: source,
		opts:   newOptions(opts),
	}
}

func (s *Accelerated) Name() string {
	return "gpu"
}

// Render fails with an accel.SetupError if the device cannot be opened, the
// kernel does not build or the output buffer cannot be allocated. r is not
// written in that case.
func (s *Accelerated) Render(ctx context.Context, cfg plane.Config, r *raster.Raster) error {
	if err := checkRaster(cfg, r); err != nil {
		return err
	}

	device, err := s.open()
	if err != nil {
		return accel.Setup("open", err)
	}
	defer device.Close()

	log := s.opts.log()
	log.Debug("accelerator opened", "device", device.Name())

	kernel, err := device.Compile(s.source)
	if err != nil {
		return accel.Setup("compile", err)
	}

	args := accel.ArgsFor(nil, cfg)
	out, err := device.AllocateBuffer(args.OutputSize())
	if err != nil {
		return accel.Setup("allocate", err)
	}
	args.Output = out

	if err := ctx.Err(); err != nil {
		return err
	}

	s.opts.dispatch(ctx, s.Name(), partition.Unit{Start: 0, End: cfg.Height})
	if err := device.Dispatch(kernel, [2]uint32{args.Width, args.Height}, args); err != nil {
		return fmt.Errorf("dispatch on %s: %w", device.Name(), err)
	}

	data, err := device.ReadBack(out)
	if err != nil {
		return fmt.Errorf("read back from %s: %w", device.Name(), err)
	}

	counts := accel.DecodeCounts(data)
	if len(counts) < cfg.Pixels() {
		return fmt.Errorf("%w: read back %d counts, want %d", raster.ErrSize, len(counts), cfg.Pixels())
	}
	result, err := raster.FromUint32(cfg.Width, cfg.Height, counts[:cfg.Pixels()])
	if err != nil {
		return err
	}
	copy(r.Pix, result.Pix)

	return nil
}
