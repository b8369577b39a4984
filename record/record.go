package record

import (
	"math"

	"github.com/Velocidex/ordereddict"
)

// Max is a sentinel record that sorts after every real record. The
// merge tree uses it to pad exhausted sequences.
var Max = Record{
	TimeUS:  math.MaxUint64,
	Segment: math.MaxInt32,
	Offset:  math.MaxInt64,
}

// Record is a single decoded telemetry message.
//
// Fields preserves the schema's column order. TimeUS is the effective
// merge timestamp: the frame's own TimeUS field when present, otherwise
// the last TimeUS seen earlier in the same segment (HasTimeUS reports
// which). Offset is the byte offset of the frame's sync prefix.
type Record struct {
	Type      string
	Fields    *ordereddict.Dict
	TimeUS    uint64
	HasTimeUS bool
	Segment   int
	Offset    int64
}

// Less orders records by (TimeUS, Segment, Offset), the merge order of
// the final stream.
func (r Record) Less(o Record) bool {
	if r.TimeUS != o.TimeUS {
		return r.TimeUS < o.TimeUS
	}
	if r.Segment != o.Segment {
		return r.Segment < o.Segment
	}
	return r.Offset < o.Offset
}

// Get returns the named field value.
func (r Record) Get(name string) (any, bool) {
	if r.Fields == nil {
		return nil, false
	}
	return r.Fields.Get(name)
}
