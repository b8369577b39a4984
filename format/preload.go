package format

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/mendikup/flightlog/record"
)

// ErrBootstrapSchema indicates the registry lost its self-describing
// FMT entry; nothing can be decoded without it.
var ErrBootstrapSchema = errors.New("bootstrap FMT schema missing from registry")

var fmtFrameHeader = []byte{SyncA, SyncB, FMTTypeID}

// PreloadSegment is the segment index attached to warnings raised
// before any segmentation exists.
const PreloadSegment = -1

// Preload performs the linear bootstrap scan: it discovers every FMT
// frame in data, inserts the schema each one describes, then applies
// FMTU/FUNIT multiplier frames to the schemas they reference. It must
// run before sync scanning so that workers see every type the file
// uses, wherever its FMT frame happens to live.
func Preload(data []byte, reg *Registry) ([]record.Warning, error) {
	if _, ok := reg.Lookup(FMTTypeID); !ok {
		return nil, ErrBootstrapSchema
	}

	var warnings []record.Warning
	pos := 0
	for {
		idx := bytes.Index(data[pos:], fmtFrameHeader)
		if idx < 0 {
			break
		}
		off := pos + idx
		if off+FMTFrameLen > len(data) {
			break
		}
		// A candidate with an invalid name is not a frame: resume the
		// search right after it so a real FMT frame nearby is not skipped.
		if !validName(TrimNul(data[off+HeaderLen+2 : off+HeaderLen+6])) {
			pos = off + 1
			continue
		}
		if w := parseFMTFrame(data, off, reg); w != nil {
			warnings = append(warnings, *w)
		}
		pos = off + FMTFrameLen
	}

	warnings = append(warnings, applyMultiplierFrames(data, reg)...)
	return warnings, nil
}

// parseFMTFrame decodes one FMT frame and inserts the described
// schema. Candidates with a non-alphanumeric name are sync-like bytes
// inside a payload and are skipped without a warning.
func parseFMTFrame(data []byte, off int, reg *Registry) *record.Warning {
	payload := data[off+HeaderLen : off+FMTFrameLen]

	s := &Schema{
		TypeID:  payload[0],
		Length:  payload[1],
		Name:    TrimNul(payload[2:6]),
		Format:  TrimNul(payload[6:22]),
		Columns: splitColumns(payload[22:86]),
	}
	if !validName(s.Name) {
		return nil
	}

	codec, err := Compile(s.Format)
	switch {
	case err != nil:
		s.undecodable = true
		reg.Insert(s)
		return &record.Warning{
			Segment: PreloadSegment,
			Offset:  int64(off),
			Kind:    record.KindBadFormat,
			Detail:  fmt.Sprintf("schema %s: %v", s.Name, err),
		}
	case codec.Width+HeaderLen != int(s.Length):
		s.undecodable = true
		reg.Insert(s)
		return &record.Warning{
			Segment: PreloadSegment,
			Offset:  int64(off),
			Kind:    record.KindBadFormat,
			Detail: fmt.Sprintf("schema %s: format %q implies %d-byte frames, FMT says %d",
				s.Name, s.Format, codec.Width+HeaderLen, s.Length),
		}
	case codec.NumFields() != len(s.Columns):
		s.undecodable = true
		reg.Insert(s)
		return &record.Warning{
			Segment: PreloadSegment,
			Offset:  int64(off),
			Kind:    record.KindBadFormat,
			Detail: fmt.Sprintf("schema %s: %d fields in format, %d column names",
				s.Name, codec.NumFields(), len(s.Columns)),
		}
	}

	s.codec = codec
	reg.Insert(s)
	return nil
}

// applyMultiplierFrames attaches per-field multipliers from FMTU (or
// FUNIT) frames. It runs after the FMT scan so a multiplier frame may
// precede the FMT definition of the type it references.
func applyMultiplierFrames(data []byte, reg *Registry) []record.Warning {
	fmtu, ok := reg.LookupName("FMTU")
	if !ok {
		fmtu, ok = reg.LookupName("FUNIT")
	}
	if !ok || fmtu.Undecodable() {
		return nil
	}

	typeCol, multCol := -1, -1
	for i, c := range fmtu.Columns {
		switch c {
		case "FmtType":
			typeCol = i
		case "MultIds":
			multCol = i
		}
	}
	if typeCol < 0 || multCol < 0 {
		return nil
	}

	var warnings []record.Warning
	header := []byte{SyncA, SyncB, fmtu.TypeID}
	pos := 0
	for {
		idx := bytes.Index(data[pos:], header)
		if idx < 0 {
			break
		}
		off := pos + idx
		end := off + int(fmtu.Length)
		if end > len(data) {
			break
		}
		if end < len(data) && data[end] != SyncA {
			pos = off + 1
			continue
		}

		values := fmtu.Codec().Unpack(data[off+HeaderLen : end])
		target, okT := asTypeID(values[typeCol])
		multIDs, okM := values[multCol].(string)
		if !okT || !okM {
			pos = end
			continue
		}

		ts, found := reg.Lookup(target)
		if !found {
			warnings = append(warnings, record.Warning{
				Segment: PreloadSegment,
				Offset:  int64(off),
				Kind:    record.KindUnknownType,
				Detail:  fmt.Sprintf("%s references unknown type %d", fmtu.Name, target),
			})
			pos = end
			continue
		}

		mults := make([]float64, len(ts.Columns))
		for i := range mults {
			if i < len(multIDs) {
				mults[i] = MultiplierFor(multIDs[i])
			}
		}
		ts.Multipliers = mults
		pos = end
	}
	return warnings
}

func asTypeID(v any) (uint8, bool) {
	switch n := v.(type) {
	case uint64:
		return uint8(n), n <= 0xFF
	case int64:
		return uint8(n), n >= 0 && n <= 0xFF
	}
	return 0, false
}

func validName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if !('A' <= c && c <= 'Z' || 'a' <= c && c <= 'z' || '0' <= c && c <= '9') {
			return false
		}
	}
	return true
}

// splitColumns parses the comma-separated Columns payload field,
// dropping NUL padding and stray spaces.
func splitColumns(b []byte) []string {
	text := TrimNul(b)
	if text == "" {
		return nil
	}
	parts := bytes.Split([]byte(text), []byte{','})
	cols := make([]string, 0, len(parts))
	for _, p := range parts {
		name := string(bytes.TrimSpace(p))
		if name != "" {
			cols = append(cols, name)
		}
	}
	return cols
}
