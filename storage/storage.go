// Package storage defines where decoded records spill between the
// decode and merge phases. Two implementations exist: local (one spill
// file of sorted runs per segment, merged through a loser tree) and
// pebbledb (records keyed so that database iteration order is the
// merge order).
package storage

import (
	"context"
	"iter"

	"github.com/mendikup/flightlog/record"
)

// Sink receives one segment's records. Sinks are single-writer; Close
// flushes any buffered state.
type Sink interface {
	Write(rec record.Record) error
	Close() error
}

// Backend is a spill store for one decoding run. NewSink is called
// once per segment before the workers start; Merged may only be called
// after every sink is closed. Cleanup releases everything the run
// spilled.
type Backend interface {
	NewSink(ctx context.Context, segment int) (Sink, error)
	Merged(ctx context.Context) (iter.Seq[record.Record], error)
	Cleanup(ctx context.Context) error
}
