// Package cli holds the flags shared by the render programs.
package cli

import (
	"fmt"
	"github.com/spf13/cobra"
	"github.com/willbeason/mandelbrot/internal/sink"
	"github.com/willbeason/mandelbrot/pkg/plane"
	"github.com/willbeason/mandelbrot/pkg/render"
	"io"
	"log/slog"
	"strings"
)

// Flags are the options common to every render program.
type Flags struct {
	Width, Height int
	MaxIter       int

	// Region names a landmark window; the bound flags override its edges.
	Region           string
	MinReal, MaxReal float64
	MinImag, MaxImag float64

	// Out is the PNG path. Empty skips writing.
	Out     string
	Caption bool

	// Serve is the viewer's listen address. Empty skips serving.
	Serve string

	Verbose bool

	cmd *cobra.Command
}

// NewFlags returns flags defaulting to a size by size raster written to out.
func NewFlags(size int, out string) *Flags {
	w := plane.DefaultWindow
	return &Flags{
		Width:   size,
		Height:  size,
		MaxIter: plane.DefaultMaxIter,
		Region:  "full",
		MinReal: w.MinReal,
		MaxReal: w.MaxReal,
		MinImag: w.MinImag,
		MaxImag: w.MaxImag,
		Out:     out,
	}
}

// Register adds the flags to cmd, using the current field values as defaults.
func (f *Flags) Register(cmd *cobra.Command) {
	f.cmd = cmd

	fs := cmd.Flags()
	fs.IntVar(&f.Width, "width", f.Width, "raster width in pixels")
	fs.IntVar(&f.Height, "height", f.Height, "raster height in pixels")
	fs.IntVar(&f.MaxIter, "max-iter", f.MaxIter, "iteration budget per pixel")
	fs.StringVar(&f.Region, "region", f.Region, "named window: "+strings.Join(plane.Regions(), ", "))
	fs.Float64Var(&f.MinReal, "min-real", f.MinReal, "left edge of the window, overrides --region")
	fs.Float64Var(&f.MaxReal, "max-real", f.MaxReal, "right edge of the window, overrides --region")
	fs.Float64Var(&f.MinImag, "min-imag", f.MinImag, "top edge of the window, overrides --region")
	fs.Float64Var(&f.MaxImag, "max-imag", f.MaxImag, "bottom edge of the window, overrides --region")
	fs.StringVar(&f.Out, "out", f.Out, "PNG output path, empty to skip")
	fs.BoolVar(&f.Caption, "caption", f.Caption, "draw render statistics on the image")
	fs.StringVar(&f.Serve, "serve", f.Serve, "serve the image to browsers at this address until interrupted, e.g. localhost:8080")
	fs.BoolVarP(&f.Verbose, "verbose", "v", f.Verbose, "log debug output")
}

// Config builds and validates the render configuration.
func (f *Flags) Config() (plane.Config, error) {
	w, err := plane.Region(f.Region)
	if err != nil {
		return plane.Config{}, err
	}

	for _, o := range []struct {
		name string
		dst  *float64
		val  float64
	}{
		{"min-real", &w.MinReal, f.MinReal},
		{"max-real", &w.MaxReal, f.MaxReal},
		{"min-imag", &w.MinImag, f.MinImag},
		{"max-imag", &w.MaxImag, f.MaxImag},
	} {
		if f.changed(o.name) {
			*o.dst = o.val
		}
	}

	cfg := plane.Config{
		Window:  w,
		Width:   f.Width,
		Height:  f.Height,
		MaxIter: f.MaxIter,
	}
	if err := cfg.Validate(); err != nil {
		return plane.Config{}, err
	}
	return cfg, nil
}

func (f *Flags) changed(name string) bool {
	return f.cmd != nil && f.cmd.Flags().Changed(name)
}

// Sinks lists where the finished raster goes, in the order shown.
func (f *Flags) Sinks() []sink.Sink {
	var sinks []sink.Sink
	if f.Out != "" {
		sinks = append(sinks, sink.PNG{Path: f.Out, Caption: f.Caption})
	}
	if f.Serve != "" {
		sinks = append(sinks, sink.Viewer{Addr: f.Serve})
	}
	return sinks
}

func (f *Flags) Sink() sink.Sink {
	return sink.Multi(f.Sinks()...)
}

// Logger returns a text logger writing to w, at debug level with --verbose.
func (f *Flags) Logger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if f.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Prepare installs the logger and returns the validated configuration,
// logging the size and window of the render.
func (f *Flags) Prepare(cmd *cobra.Command) (plane.Config, *slog.Logger, error) {
	// At this point usage information has already been printed if obviously incorrect.
	cmd.SilenceUsage = true

	log := f.Logger(cmd.ErrOrStderr())
	render.SetLogger(log)

	cfg, err := f.Config()
	if err != nil {
		return plane.Config{}, nil, err
	}

	w := cfg.Window
	log.Info("configuration",
		"size", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"iterations", cfg.MaxIter,
	)
	log.Info("limits",
		"real", fmt.Sprintf("[%v, %v]", w.MinReal, w.MaxReal),
		"imag", fmt.Sprintf("[%v, %v]", w.MinImag, w.MaxImag),
	)

	return cfg, log, nil
}
