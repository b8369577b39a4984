// Package local implements the spill store on the local filesystem:
// one spill file per segment in a flat directory, merged by reading
// every file's sorted runs through the loser tree.
package local

import (
	"context"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mendikup/flightlog/loser"
	"github.com/mendikup/flightlog/record"
	"github.com/mendikup/flightlog/spill"
	"github.com/mendikup/flightlog/storage"
)

const (
	spillSuffix = ".spill"
	// defaultRunRecords is how many records buffer before a sorted
	// run flushes to disk.
	defaultRunRecords = 4096
)

// Backend stores one spill file per segment under dir.
type Backend struct {
	dir        string
	runRecords int
}

// Option configures the backend.
type Option func(*Backend)

// WithRunRecords sets the sorted-run buffer size.
func WithRunRecords(n int) Option {
	return func(b *Backend) {
		b.runRecords = n
	}
}

// New returns a filesystem spill store rooted at dir. The directory is
// created if needed.
func New(dir string, opts ...Option) (*Backend, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create spill dir %s: %w", dir, err)
	}
	b := &Backend{dir: dir, runRecords: defaultRunRecords}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

func (b *Backend) segmentPath(segment int) string {
	return filepath.Join(b.dir, fmt.Sprintf("segment-%06d%s", segment, spillSuffix))
}

// NewSink creates the segment's spill file. An existing file from an
// earlier run is truncated.
func (b *Backend) NewSink(_ context.Context, segment int) (storage.Sink, error) {
	file, err := os.OpenFile(b.segmentPath(segment), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to create spill file: %w", err)
	}
	w, err := spill.NewWriter(file, b.runRecords)
	if err != nil {
		file.Close()
		return nil, err
	}
	return w, nil
}

// Merged opens every spill file and merges all their runs into one
// ordered sequence. The files close when the sequence is exhausted or
// abandoned.
func (b *Backend) Merged(_ context.Context) (iter.Seq[record.Record], error) {
	names, err := b.list()
	if err != nil {
		return nil, err
	}

	var files []*os.File
	var sequences []loser.Sequence[record.Record]
	closeAll := func() {
		for _, f := range files {
			f.Close()
		}
	}

	for _, name := range names {
		f, err := os.Open(filepath.Join(b.dir, name))
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("failed to open spill file %s: %w", name, err)
		}
		files = append(files, f)

		seqs, err := spill.NewReader(f).Sequences()
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("failed to read spill file %s: %w", name, err)
		}
		sequences = append(sequences, seqs...)
	}

	merged := spill.Merge(sequences)
	return func(yield func(record.Record) bool) {
		defer closeAll()
		for rec := range merged {
			if !yield(rec) {
				return
			}
		}
	}, nil
}

// Cleanup removes the run's spill files.
func (b *Backend) Cleanup(_ context.Context) error {
	names, err := b.list()
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := os.Remove(filepath.Join(b.dir, name)); err != nil {
			return fmt.Errorf("failed to delete spill file %s: %w", name, err)
		}
	}
	return nil
}

func (b *Backend) list() ([]string, error) {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), spillSuffix) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
