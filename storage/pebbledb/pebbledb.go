// Package pebbledb implements the spill store on a Pebble database.
// Records are keyed by big-endian (TimeUS, segment, offset), so the
// database's own iteration order is the merge order and no separate
// merge structure is needed.
package pebbledb

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"iter"
	"os"

	"github.com/cockroachdb/pebble"

	"github.com/mendikup/flightlog/record"
	"github.com/mendikup/flightlog/recordio"
	"github.com/mendikup/flightlog/storage"
)

const defaultBatchSize = 1024

// Backend stores spilled records in one Pebble database under path.
type Backend struct {
	db        *pebble.DB
	path      string
	batchSize int
}

// Options configures the backend.
type Options struct {
	Path         string
	BatchSize    int
	CacheSize    int64
	MaxOpenFiles int
}

// New opens (or creates) the spill database.
func New(opts Options) (*Backend, error) {
	pebbleOpts := &pebble.Options{
		MaxOpenFiles: opts.MaxOpenFiles,
	}
	if opts.CacheSize > 0 {
		cache := pebble.NewCache(opts.CacheSize)
		defer cache.Unref()
		pebbleOpts.Cache = cache
	}

	db, err := pebble.Open(opts.Path, pebbleOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open spill database: %w", err)
	}

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	return &Backend{db: db, path: opts.Path, batchSize: batchSize}, nil
}

// NewSink returns a batched writer for one segment. Every key carries
// the segment index, so no two segments write the same key and sinks
// need no coordination.
func (b *Backend) NewSink(_ context.Context, segment int) (storage.Sink, error) {
	return &sink{
		db:        b.db,
		batch:     b.db.NewBatch(),
		batchSize: b.batchSize,
	}, nil
}

// Merged iterates the whole keyspace; the key encoding makes that the
// (TimeUS, segment, offset) merge.
func (b *Backend) Merged(_ context.Context) (iter.Seq[record.Record], error) {
	it, err := b.db.NewIter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to iterate spill database: %w", err)
	}

	return func(yield func(record.Record) bool) {
		defer it.Close()
		for valid := it.First(); valid; valid = it.Next() {
			rec, err := recordio.ReadRecord(bytes.NewReader(it.Value()))
			if err != nil {
				return
			}
			if !yield(rec) {
				return
			}
		}
	}, nil
}

// Cleanup closes and deletes the spill database.
func (b *Backend) Cleanup(_ context.Context) error {
	if err := b.db.Close(); err != nil {
		return err
	}
	return os.RemoveAll(b.path)
}

type sink struct {
	db        *pebble.DB
	batch     *pebble.Batch
	batchSize int
}

func (s *sink) Write(rec record.Record) error {
	var buf bytes.Buffer
	if _, err := recordio.Write(&buf, rec); err != nil {
		return err
	}

	if err := s.batch.Set(mergeKey(rec), buf.Bytes(), nil); err != nil {
		return err
	}

	if int(s.batch.Count()) >= s.batchSize {
		if err := s.batch.Commit(pebble.NoSync); err != nil {
			return fmt.Errorf("failed to commit spill batch: %w", err)
		}
		s.batch = s.db.NewBatch()
	}
	return nil
}

func (s *sink) Close() error {
	defer s.batch.Close()
	if s.batch.Count() == 0 {
		return nil
	}
	if err := s.batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("failed to commit spill batch: %w", err)
	}
	return nil
}

// mergeKey encodes the record's merge order so byte-wise key
// comparison reproduces Record.Less.
func mergeKey(rec record.Record) []byte {
	key := make([]byte, 20)
	binary.BigEndian.PutUint64(key[0:], rec.TimeUS)
	binary.BigEndian.PutUint32(key[8:], uint32(rec.Segment))
	binary.BigEndian.PutUint64(key[12:], uint64(rec.Offset))
	return key
}
