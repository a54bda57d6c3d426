package render

import (
	"context"
	"github.com/willbeason/mandelbrot/pkg/partition"
	"log/slog"
	"sync/atomic"
)

// Option configures a Strategy.
type Option func(*options)

type options struct {
	observer func(partition.Unit)
	logger   *slog.Logger
}

func newOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithObserver registers fn to be called once for every unit a strategy
// dispatches, before the unit is filled. For divide-and-conquer only leaf
// units are reported. fn may be called from several goroutines at once.
func WithObserver(fn func(partition.Unit)) Option {
	return func(o *options) {
		o.observer = fn
	}
}

// WithLogger overrides the package logger for one strategy.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func (o *options) log() *slog.Logger {
	if o.logger != nil {
		return o.logger
	}
	return Logger()
}

func (o *options) dispatch(ctx context.Context, name string, u partition.Unit) {
	o.log().Debug("dispatch", "strategy", name, "unit", u)

	if t := tallyFrom(ctx); t != nil {
		t.units.Add(1)
	}
	if o.observer != nil {
		o.observer(u)
	}
}

// tally collects per-render facts that strategies report back to Render.
type tally struct {
	units    atomic.Int64
	strategy atomic.Pointer[string]
}

type tallyKey struct{}

func withTally(ctx context.Context, t *tally) context.Context {
	return context.WithValue(ctx, tallyKey{}, t)
}

func tallyFrom(ctx context.Context) *tally {
	t, _ := ctx.Value(tallyKey{}).(*tally)
	return t
}

// ranWith records the strategy which actually produced the raster.
func ranWith(ctx context.Context, name string) {
	if t := tallyFrom(ctx); t != nil {
		t.strategy.Store(&name)
	}
}
