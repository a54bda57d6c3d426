package main

import (
	"context"
	"github.com/spf13/cobra"
	"github.com/willbeason/mandelbrot/internal/cli"
	"github.com/willbeason/mandelbrot/pkg/plane"
	"github.com/willbeason/mandelbrot/pkg/render"
	"os"
	"os/signal"
)

// Size is the default raster edge length.
const Size = 4096

type program struct {
	flags   *cli.Flags
	threads int
}

func mainCmd() *cobra.Command {
	p := &program{flags: cli.NewFlags(Size, "out/threads.png")}

	cmd := &cobra.Command{
		Use:   "threads",
		Short: "Render the Mandelbrot set on a fixed number of threads, one band of rows each",
		Args:  cobra.ExactArgs(0),
		RunE:  p.runCmd,
	}

	p.flags.Register(cmd)
	cmd.Flags().IntVar(&p.threads, "threads", plane.DefaultThreads, "number of worker threads")

	return cmd
}

func (p *program) runCmd(cmd *cobra.Command, _ []string) error {
	cfg, log, err := p.flags.Prepare(cmd)
	if err != nil {
		return err
	}
	log.Info("threads", "count", p.threads, "rowsPerThread", cfg.Height/max(p.threads, 1))

	r, stats, err := render.Render(cmd.Context(), render.NewFixedThreads(p.threads), cfg)
	if err != nil {
		return err
	}
	log.Info("done", "elapsed", stats.Elapsed)

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
