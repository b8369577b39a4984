// Package segment decodes the frames of one byte range into records.
//
// A segment is a contiguous byte range aligned to frame boundaries by
// the scanner, so the decoder can stride from frame to frame using the
// schema's fixed frame length. Everything that goes wrong inside a
// segment is a warning; the decoder never fails a range outright.
package segment

import (
	"bytes"
	"context"
	"fmt"
	"iter"
	"math"

	"github.com/Velocidex/ordereddict"

	"github.com/mendikup/flightlog/format"
	"github.com/mendikup/flightlog/record"
	"github.com/mendikup/flightlog/scan"
)

// timeField is the microsecond timestamp column the merge orders by.
const timeField = "TimeUS"

// ctxCheckInterval bounds how many frames are decoded between
// cancellation checks.
const ctxCheckInterval = 1024

// Options control per-frame decoding behavior.
type Options struct {
	// Filter restricts decoding to the named message types. A nil map
	// decodes everything.
	Filter map[string]struct{}
	// RoundFloats rounds every floating-point value to 4 decimal
	// digits: f32/f64 fields and fields turned into floats by scaling.
	RoundFloats bool
}

// Decoder walks one byte range and yields decoded records in file
// order. Warnings accumulate during iteration and are complete once
// the sequence is exhausted.
type Decoder struct {
	data     []byte
	rng      scan.Range
	registry *format.Registry
	segment  int
	opts     Options

	warnings   []record.Warning
	lastTimeUS uint64
}

// New returns a decoder for one segment. rng must start at a valid
// frame offset.
func New(data []byte, rng scan.Range, reg *format.Registry, seg int, opts Options) *Decoder {
	return &Decoder{
		data:     data,
		rng:      rng,
		registry: reg,
		segment:  seg,
		opts:     opts,
	}
}

// Warnings returns the warnings collected so far. The slice is final
// after Records has been fully consumed.
func (d *Decoder) Warnings() []record.Warning { return d.warnings }

// Records returns the segment's records as a single-use sequence.
// Iteration stops early when ctx is canceled. ctx is checked between
// frames once every ctxCheckInterval frames, so up to that many frames
// may still be decoded after cancellation.
func (d *Decoder) Records(ctx context.Context) iter.Seq[record.Record] {
	return func(yield func(record.Record) bool) {
		pos := d.rng.Start
		frames := 0

		for pos+format.HeaderLen <= d.rng.End {
			frames++
			if frames%ctxCheckInterval == 0 && ctx.Err() != nil {
				return
			}

			if d.data[pos] != format.SyncA || d.data[pos+1] != format.SyncB {
				next, ok := d.resync(pos)
				if !ok {
					return
				}
				pos = next
				continue
			}

			typeID := d.data[pos+2]
			if typeID == format.FMTTypeID {
				pos += format.FMTFrameLen
				continue
			}

			schema, ok := d.registry.Lookup(typeID)
			if !ok {
				d.warn(pos, record.KindUnknownType,
					fmt.Sprintf("unknown message type %d", typeID))
				pos += format.HeaderLen
				continue
			}

			if schema.Undecodable() {
				d.warn(pos, record.KindBadFormat,
					fmt.Sprintf("type %s has an undecodable format", schema.Name))
				pos += int64(schema.Length)
				continue
			}

			if pos+int64(schema.Length) > d.rng.End {
				d.warn(pos, record.KindShortRead,
					fmt.Sprintf("type %s needs %d bytes, %d remain",
						schema.Name, schema.Length, d.rng.End-pos))
				return
			}

			if d.opts.Filter != nil {
				if _, keep := d.opts.Filter[schema.Name]; !keep {
					pos += int64(schema.Length)
					continue
				}
			}

			if !yield(d.decodeFrame(schema, pos)) {
				return
			}
			pos += int64(schema.Length)
		}
	}
}

// resync scans forward for the next sync prefix inside the range. When
// none remains the tail of the range is undecodable and the segment
// halts with a decode-error warning.
func (d *Decoder) resync(pos int64) (int64, bool) {
	idx := bytes.Index(d.data[pos:d.rng.End], []byte{format.SyncA, format.SyncB})
	if idx < 0 {
		d.warn(pos, record.KindDecodeError, "no sync prefix in remainder of segment")
		return 0, false
	}
	return pos + int64(idx), true
}

func (d *Decoder) warn(off int64, kind record.Kind, detail string) {
	d.warnings = append(d.warnings, record.Warning{
		Segment: d.segment,
		Offset:  off,
		Kind:    kind,
		Detail:  detail,
	})
}

func (d *Decoder) decodeFrame(schema *format.Schema, pos int64) record.Record {
	payload := d.data[pos+format.HeaderLen : pos+int64(schema.Length)]
	values := schema.Codec().Unpack(payload)

	rec := record.Record{
		Type:    schema.Name,
		Fields:  ordereddict.NewDict(),
		Segment: d.segment,
		Offset:  pos,
	}

	for i, col := range schema.Columns {
		v := values[i]
		if s := schema.Scale(i); s != 0 {
			if f, ok := toFloat64(v); ok {
				v = f * s
			}
		}
		if d.opts.RoundFloats {
			if f, ok := v.(float64); ok {
				v = math.Round(f*1e4) / 1e4
			}
		}
		rec.Fields.Set(col, v)

		if col == timeField {
			if ts, ok := asTimestamp(values[i]); ok {
				rec.TimeUS = ts
				rec.HasTimeUS = true
			}
		}
	}

	if rec.HasTimeUS {
		d.lastTimeUS = rec.TimeUS
	} else {
		// Merge-ordering convenience only: the inherited timestamp is
		// not written into the record's fields.
		rec.TimeUS = d.lastTimeUS
	}
	return rec
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func asTimestamp(v any) (uint64, bool) {
	switch n := v.(type) {
	case uint64:
		return n, true
	case int64:
		if n >= 0 {
			return uint64(n), true
		}
	}
	return 0, false
}
