package flightlog

import (
	"log/slog"
	"runtime"

	"github.com/mendikup/flightlog/storage"
)

// Mode selects the worker execution strategy.
type Mode string

const (
	// ModeProcess has every worker re-open and re-map the log file,
	// sharing nothing with the orchestrator. This mirrors how a
	// process pool must behave: mappings are not inherited portably.
	ModeProcess Mode = "process"
	// ModeThread shares the orchestrator's single mapping across all
	// workers.
	ModeThread Mode = "thread"
)

// options defines all configuration options for a decoding run.
type options struct {
	workers         int
	mode            Mode
	roundFloats     bool
	filter          map[string]struct{}
	collectWarnings bool
	spillDir        string
	backend         storage.Backend
	logger          *slog.Logger
}

// Option is a function that configures the decoder options.
type Option func(*options)

// WithWorkers sets the worker count. Values below 1 fall back to the
// default.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n >= 1 {
			o.workers = n
		}
	}
}

// WithMode sets the worker execution strategy. Both modes produce
// identical output for the same input.
func WithMode(m Mode) Option {
	return func(o *options) {
		o.mode = m
	}
}

// WithRoundFloats rounds every floating-point value to 4 decimal
// digits: f32/f64 fields and fields turned into floats by scaling.
func WithRoundFloats(round bool) Option {
	return func(o *options) {
		o.roundFloats = round
	}
}

// WithFilter restricts decoding to the named message types. No names
// means no filter.
func WithFilter(names ...string) Option {
	return func(o *options) {
		if len(names) == 0 {
			o.filter = nil
			return
		}
		o.filter = make(map[string]struct{}, len(names))
		for _, n := range names {
			o.filter[n] = struct{}{}
		}
	}
}

// WithCollectWarnings controls whether warnings accumulate on the
// result. When disabled they are logged and dropped.
func WithCollectWarnings(collect bool) Option {
	return func(o *options) {
		o.collectWarnings = collect
	}
}

// WithSpillDir sets the directory for per-segment spill files. Empty
// means a fresh temporary directory per run.
func WithSpillDir(dir string) Option {
	return func(o *options) {
		o.spillDir = dir
	}
}

// WithSpillStore replaces the default filesystem spill store, e.g.
// with the pebbledb backend. The caller keeps ownership: Result.Close
// will not clean a store it did not create.
func WithSpillStore(b storage.Backend) Option {
	return func(o *options) {
		o.backend = b
	}
}

// WithLogger sets the logger for phase timings and dropped warnings.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// defaultOptions returns the default configuration.
func defaultOptions() options {
	return options{
		workers:         runtime.NumCPU(),
		mode:            ModeThread,
		collectWarnings: true,
		logger:          slog.Default(),
	}
}
