package flightlog

import (
	"context"
	"fmt"
	"iter"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mendikup/flightlog/format"
	"github.com/mendikup/flightlog/mmapfile"
	"github.com/mendikup/flightlog/record"
	"github.com/mendikup/flightlog/scan"
	"github.com/mendikup/flightlog/segment"
	"github.com/mendikup/flightlog/storage"
	"github.com/mendikup/flightlog/storage/local"
)

// Decoder drives a full parallel decode of one BIN log file.
type Decoder struct {
	path string
	opts options
}

// New creates a decoder for the log at path.
func New(path string, opts ...Option) *Decoder {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Decoder{path: path, opts: o}
}

// Result is the outcome of a successful run. Records is lazy, finite
// and single-use: it pulls from the spill store. Close releases the
// spill store (when the run created it) and may be called whether or
// not Records was consumed.
type Result struct {
	Records  iter.Seq[record.Record]
	Warnings []record.Warning

	backend    storage.Backend
	ownBackend bool
	once       sync.Once
	closeErr   error
}

// Close cleans up the run's spill storage.
func (r *Result) Close() error {
	r.once.Do(func() {
		if r.ownBackend {
			r.closeErr = r.backend.Cleanup(context.Background())
		}
	})
	return r.closeErr
}

// Run decodes the whole file: preload the schema table, locate frame
// boundaries, split them into one range per worker, decode the ranges
// in parallel into spill storage, and hand back the k-way merged
// stream ordered by (TimeUS, segment, offset).
//
// A worker's hard failure fails the run; per-frame problems surface as
// warnings on the result (or in the log when warning collection is
// off). Cancelling ctx stops each worker at its next cancellation
// check, which the segment decoder makes between frames once every
// 1024 frames.
func (d *Decoder) Run(ctx context.Context) (*Result, error) {
	start := time.Now()

	m, err := mmapfile.Open(d.path)
	if err != nil {
		return nil, ioError(NoSegment, err)
	}
	defer m.Close()
	data := m.Bytes()

	registry := format.NewRegistry()
	preloadWarnings, err := format.Preload(data, registry)
	if err != nil {
		return nil, formatError(err)
	}
	d.opts.logger.Debug("format table preloaded",
		"schemas", registry.Len(), "bytes", len(data))

	positions := scan.FindSyncPositions(data, registry)
	ranges := scan.Split(positions, d.opts.workers, int64(len(data)))
	d.opts.logger.Debug("file segmented",
		"frames", len(positions), "segments", len(ranges), "mode", d.opts.mode)

	backend, ownBackend, err := d.spillBackend()
	if err != nil {
		return nil, err
	}
	cleanupOnFailure := func() {
		if ownBackend {
			_ = backend.Cleanup(context.Background())
		}
	}

	warnBufs, err := d.decodeSegments(ctx, data, registry, ranges, backend)
	if err != nil {
		cleanupOnFailure()
		return nil, err
	}

	merged, err := backend.Merged(ctx)
	if err != nil {
		cleanupOnFailure()
		return nil, ioError(NoSegment, err)
	}

	warnings := preloadWarnings
	for _, buf := range warnBufs {
		warnings = append(warnings, buf...)
	}
	if !d.opts.collectWarnings {
		for _, w := range warnings {
			d.opts.logger.Warn("decode warning",
				"segment", w.Segment, "offset", w.Offset, "kind", string(w.Kind), "detail", w.Detail)
		}
		warnings = nil
	}

	d.opts.logger.Debug("decode complete",
		"segments", len(ranges), "warnings", len(warnings), "elapsed", time.Since(start))

	return &Result{
		Records:    merged,
		Warnings:   warnings,
		backend:    backend,
		ownBackend: ownBackend,
	}, nil
}

// decodeSegments fans one worker out per range and joins them. Workers
// share nothing but the read-only mapping, a registry snapshot each,
// and their own sink and warning buffer.
func (d *Decoder) decodeSegments(
	ctx context.Context,
	data []byte,
	registry *format.Registry,
	ranges []scan.Range,
	backend storage.Backend,
) ([][]record.Warning, error) {
	sinks := make([]storage.Sink, len(ranges))
	for i := range ranges {
		sink, err := backend.NewSink(ctx, i)
		if err != nil {
			for _, s := range sinks[:i] {
				s.Close()
			}
			return nil, ioError(i, err)
		}
		sinks[i] = sink
	}

	warnBufs := make([][]record.Warning, len(ranges))
	segOpts := segment.Options{
		Filter:      d.opts.filter,
		RoundFloats: d.opts.roundFloats,
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, rng := range ranges {
		g.Go(func() error {
			segData := data
			if d.opts.mode == ModeProcess {
				wm, err := mmapfile.Open(d.path)
				if err != nil {
					sinks[i].Close()
					return ioError(i, err)
				}
				defer wm.Close()
				segData = wm.Bytes()
			}

			dec := segment.New(segData, rng, registry.Snapshot(), i, segOpts)
			for rec := range dec.Records(gctx) {
				if err := sinks[i].Write(rec); err != nil {
					sinks[i].Close()
					return ioError(i, fmt.Errorf("spill write: %w", err))
				}
			}
			if err := gctx.Err(); err != nil {
				sinks[i].Close()
				return err
			}

			warnBufs[i] = dec.Warnings()
			if err := sinks[i].Close(); err != nil {
				return ioError(i, fmt.Errorf("spill close: %w", err))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return warnBufs, nil
}

func (d *Decoder) spillBackend() (storage.Backend, bool, error) {
	if d.opts.backend != nil {
		return d.opts.backend, false, nil
	}

	dir := d.opts.spillDir
	if dir == "" {
		tmp, err := os.MkdirTemp("", "flightlog-spill-*")
		if err != nil {
			return nil, false, ioError(NoSegment, err)
		}
		dir = tmp
	}

	backend, err := local.New(dir)
	if err != nil {
		return nil, false, ioError(NoSegment, err)
	}
	return backend, true, nil
}
