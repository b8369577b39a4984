package spill

import (
	"errors"
	"io"
	"iter"

	"github.com/mendikup/flightlog/loser"
	"github.com/mendikup/flightlog/record"
	"github.com/mendikup/flightlog/recordio"
)

// Reader reads one segment's spill file: a series of size-prefixed
// sorted runs.
type Reader struct {
	r    io.ReaderAt
	runs []runInfo
}

type runInfo struct {
	offset int64
	length int64
}

func NewReader(r io.ReaderAt) *Reader {
	return &Reader{r: r}
}

// Sequences returns one sorted sequence per run in the file.
func (r *Reader) Sequences() ([]loser.Sequence[record.Record], error) {
	if err := r.readRunHeaders(); err != nil {
		return nil, err
	}

	sequences := make([]loser.Sequence[record.Record], 0, len(r.runs))
	for _, run := range r.runs {
		sequences = append(sequences, &runReader{
			reader: r.r,
			offset: run.offset,
			length: run.length,
		})
	}
	return sequences, nil
}

// All merges the file's runs back into (TimeUS, segment, offset)
// order.
func (r *Reader) All() (iter.Seq[record.Record], error) {
	sequences, err := r.Sequences()
	if err != nil {
		return nil, err
	}
	return Merge(sequences), nil
}

// Merge builds the k-way merge over any set of sorted record
// sequences.
func Merge(sequences []loser.Sequence[record.Record]) iter.Seq[record.Record] {
	tree := loser.New(sequences, record.Max, func(a, b record.Record) bool {
		return a.Less(b)
	})
	return tree.All()
}

func (r *Reader) readRunHeaders() error {
	r.runs = r.runs[:0]
	offset := int64(0)
	for {
		header := io.NewSectionReader(r.r, offset, recordio.Int64Size)
		length, err := recordio.NewBinaryReader(header).ReadInt64()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		r.runs = append(r.runs, runInfo{offset: offset, length: length})
		offset += length
	}
	return nil
}

// runReader exposes one run as a sorted sequence.
type runReader struct {
	reader io.ReaderAt
	offset int64
	length int64
}

func (rr *runReader) All() iter.Seq[record.Record] {
	section := io.NewSectionReader(rr.reader, rr.offset+recordio.Int64Size, rr.length-recordio.Int64Size)
	return recordio.Seq(section)
}
