// Package scan locates frame boundaries in a BIN log and partitions
// them into byte ranges for parallel decoding.
//
// The scanner runs once per file, single-threaded, after the format
// registry is preloaded. It applies a two-stage check to every sync
// prefix candidate: the type must be known to the registry and the
// frame must be followed by end-of-file or another sync byte. The
// second stage is what rejects sync-like byte patterns that appear
// inside payloads.
package scan

import (
	"bytes"

	"github.com/mendikup/flightlog/format"
)

// Range is a half-open byte range [Start, End). Start is always a
// valid frame start; End is end-of-file or another valid frame start.
type Range struct {
	Start int64
	End   int64
}

var syncPrefix = []byte{format.SyncA, format.SyncB}

// FindSyncPositions returns, in ascending order, every byte offset at
// which a valid message frame begins. A candidate is accepted iff its
// type is registered, the whole frame fits in data, and the byte after
// the frame is end-of-file or the start of another sync prefix.
// Unknown types are rejected silently: they are indistinguishable from
// payload noise at this stage.
func FindSyncPositions(data []byte, reg *format.Registry) []int64 {
	var positions []int64
	size := len(data)
	pos := 0

	for {
		idx := bytes.Index(data[pos:], syncPrefix)
		if idx < 0 {
			break
		}
		off := pos + idx
		if off+format.HeaderLen > size {
			break
		}

		if schema, ok := reg.Lookup(data[off+2]); ok {
			end := off + int(schema.Length)
			if end <= size && (end == size || data[end] == format.SyncA) {
				positions = append(positions, int64(off))
			}
		}
		pos = off + 1
	}
	return positions
}

// Split partitions the sorted offset list into at most n contiguous
// chunks of near-equal offset count and returns the frame-aligned byte
// range each chunk covers. The last range ends at size; empty chunks
// are dropped, so fewer than n ranges come back when there are fewer
// offsets than workers. A nil result means the scanner found nothing.
func Split(positions []int64, n int, size int64) []Range {
	if len(positions) == 0 {
		return nil
	}
	if n < 1 {
		n = 1
	}
	if n > len(positions) {
		n = len(positions)
	}

	perPart := len(positions) / n
	remainder := len(positions) % n

	ranges := make([]Range, 0, n)
	index := 0
	for i := 0; i < n; i++ {
		take := perPart
		if i < remainder {
			take++
		}
		next := index + take
		end := size
		if next < len(positions) {
			end = positions[next]
		}
		ranges = append(ranges, Range{Start: positions[index], End: end})
		index = next
	}
	return ranges
}
