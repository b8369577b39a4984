package spill

import (
	"bytes"
	"errors"
	"io"
	"sync"

	"github.com/google/btree"

	"github.com/mendikup/flightlog/record"
	"github.com/mendikup/flightlog/recordio"
)

var (
	ErrInvalidMaxRecords = errors.New("maxRecords must be greater than 0")
	ErrWriterClosed      = errors.New("spill writer is closed")
)

// Writer spills decoded records as a series of sorted runs. Records
// buffer in a btree ordered by (TimeUS, segment, offset); every
// maxRecords they flush as one size-prefixed run. The merging reader
// only needs each run internally sorted, so a worker can emit records
// in file order while the spill stays cheap to merge.
type Writer struct {
	run        *btree.BTreeG[record.Record]
	maxRecords int
	closed     bool
	wc         io.WriteCloser
	mu         sync.Mutex
}

func NewWriter(wc io.WriteCloser, maxRecords int) (*Writer, error) {
	if maxRecords <= 0 {
		return nil, ErrInvalidMaxRecords
	}

	w := &Writer{
		maxRecords: maxRecords,
		wc:         wc,
	}
	w.newRun()
	return w, nil
}

func (w *Writer) newRun() {
	w.run = btree.NewG[record.Record](2, func(a, b record.Record) bool {
		return a.Less(b)
	})
}

func (w *Writer) Write(rec record.Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWriterClosed
	}

	w.run.ReplaceOrInsert(rec)

	if w.run.Len() >= w.maxRecords {
		if err := w.flushRun(); err != nil {
			return err
		}
		w.newRun()
	}
	return nil
}

// flushRun writes the buffered run as [total size int64][records...];
// the size includes its own 8 bytes, matching what the reader expects
// when it walks run headers.
func (w *Writer) flushRun() error {
	var buf bytes.Buffer
	var writeErr error
	w.run.Ascend(func(rec record.Record) bool {
		if _, err := recordio.Write(&buf, rec); err != nil {
			writeErr = err
			return false
		}
		return true
	})
	if writeErr != nil {
		return writeErr
	}

	bw := recordio.NewBinaryWriter(w.wc)
	if _, err := bw.WriteInt64(recordio.Int64Size + int64(buf.Len())); err != nil {
		return err
	}
	_, err := w.wc.Write(buf.Bytes())
	return err
}

func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWriterClosed
	}
	w.closed = true

	if w.run.Len() > 0 {
		if err := w.flushRun(); err != nil {
			return err
		}
	}
	return w.wc.Close()
}
