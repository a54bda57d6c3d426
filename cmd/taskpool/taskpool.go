package main

import (
	"context"
	"github.com/spf13/cobra"
	"github.com/willbeason/mandelbrot/internal/cli"
	"github.com/willbeason/mandelbrot/internal/forkjoin"
	"github.com/willbeason/mandelbrot/pkg/partition"
	"github.com/willbeason/mandelbrot/pkg/render"
	"os"
	"os/signal"
)

// Size is the default raster edge length.
const Size = 2048

type program struct {
	flags     *cli.Flags
	workers   int
	threshold int
}

func mainCmd() *cobra.Command {
	p := &program{flags: cli.NewFlags(Size, "out/taskpool.png")}

	cmd := &cobra.Command{
		Use:   "taskpool",
		Short: "Render the Mandelbrot set by recursively splitting rows on a work-stealing pool",
		Args:  cobra.ExactArgs(0),
		RunE:  p.runCmd,
	}

	p.flags.Register(cmd)
	cmd.Flags().IntVar(&p.workers, "workers", 0, "pool size, 0 for one per CPU")
	cmd.Flags().IntVar(&p.threshold, "threshold", 0, "rows below which a unit is not split, 0 for height/(10*workers)")

	return cmd
}

func (p *program) runCmd(cmd *cobra.Command, _ []string) error {
	cfg, log, err := p.flags.Prepare(cmd)
	if err != nil {
		return err
	}

	pool := forkjoin.NewPool(p.workers)
	defer pool.Close()

	s := render.NewDivideAndConquer(pool, p.threshold)
	log.Info("task pool",
		"cores", pool.Workers(),
		"threshold", s.Threshold(cfg.Height),
		"maxDepth", partition.MaxDepth(pool.Workers()),
	)

	r, stats, err := render.Render(cmd.Context(), s, cfg)
	if err != nil {
		return err
	}
	ps := pool.Stats()
	log.Info("done", "elapsed", stats.Elapsed, "leaves", stats.Units, "tasks", ps.Executed, "stolen", ps.Stolen)

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
