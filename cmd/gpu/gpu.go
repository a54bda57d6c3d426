package main

import (
	"context"
	"fmt"
	"github.com/spf13/cobra"
	"github.com/willbeason/mandelbrot/internal/accel"
	"github.com/willbeason/mandelbrot/internal/cli"
	"github.com/willbeason/mandelbrot/internal/forkjoin"
	"github.com/willbeason/mandelbrot/pkg/render"
	"os"
	"os/signal"
	"strings"
)

// Size is the default raster edge length.
const Size = 4096

type program struct {
	flags    *cli.Flags
	backend  string
	kernel   string
	fallback bool
}

func mainCmd() *cobra.Command {
	p := &program{flags: cli.NewFlags(Size, "out/gpu.png")}

	cmd := &cobra.Command{
		Use:   "gpu",
		Short: "Render the Mandelbrot set with one compute kernel invocation per pixel",
		Args:  cobra.ExactArgs(0),
		RunE:  p.runCmd,
	}

	p.flags.Register(cmd)
	cmd.Flags().StringVar(&p.backend, "backend", accel.BackendAuto, "accelerator: "+strings.Join(accel.Backends(), ", "))
	cmd.Flags().StringVar(&p.kernel, "kernel", "", "WGSL kernel file, empty for the built-in kernel")
	cmd.Flags().BoolVar(&p.fallback, "fallback", true, "render on the CPU task pool if the accelerator cannot be set up")

	return cmd
}

func (p *program) runCmd(cmd *cobra.Command, _ []string) error {
	cfg, log, err := p.flags.Prepare(cmd)
	if err != nil {
		return err
	}

	source, err := accel.LoadKernel(p.kernel)
	if err != nil {
		return err
	}
	if p.kernel != "" {
		words, err := accel.ValidateKernel(source)
		if err != nil {
			return fmt.Errorf("kernel %s: %w", p.kernel, err)
		}
		log.Debug("kernel validated", "path", p.kernel, "spirvWords", len(words))
	}

	var s render.Strategy = render.NewAccelerated(func() (accel.Accelerator, error) {
		return accel.Open(p.backend)
	}, source)

	if p.fallback {
		pool := forkjoin.NewPool(0)
		defer pool.Close()
		s = render.NewFallback(s, render.NewDivideAndConquer(pool, 0))
	}

	r, stats, err := render.Render(cmd.Context(), s, cfg)
	if err != nil {
		return err
	}
	log.Info("done", "strategy", stats.Strategy, "elapsed", stats.Elapsed)

	return p.flags.Sink().Show(cmd.Context(), r, stats)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	err := mainCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		// At this point the error has already been printed; no need to print again.
		os.Exit(1)
	}
}
