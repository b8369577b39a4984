package format

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"sync"
)

// fieldCodec decodes one field code of the ArduPilot format alphabet.
type fieldCodec struct {
	width  int
	scale  float64 // implicit scale, 0 means none
	decode func(b []byte) any
}

var codecs = map[byte]fieldCodec{
	'b': {width: 1, decode: func(b []byte) any { return int64(int8(b[0])) }},
	'B': {width: 1, decode: func(b []byte) any { return uint64(b[0]) }},
	'h': {width: 2, decode: decodeI16},
	'H': {width: 2, decode: decodeU16},
	'i': {width: 4, decode: decodeI32},
	'I': {width: 4, decode: decodeU32},
	'q': {width: 8, decode: func(b []byte) any { return int64(binary.LittleEndian.Uint64(b)) }},
	'Q': {width: 8, decode: func(b []byte) any { return binary.LittleEndian.Uint64(b) }},
	'f': {width: 4, decode: func(b []byte) any {
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	}},
	'd': {width: 8, decode: func(b []byte) any {
		return math.Float64frombits(binary.LittleEndian.Uint64(b))
	}},
	'n': {width: 4, decode: decodeString},
	'N': {width: 16, decode: decodeString},
	'Z': {width: 64, decode: decodeString},
	'c': {width: 2, scale: 1e-2, decode: decodeI16},
	'C': {width: 2, scale: 1e-2, decode: decodeU16},
	'e': {width: 4, scale: 1e-2, decode: decodeI32},
	'E': {width: 4, scale: 1e-2, decode: decodeU32},
	'L': {width: 4, scale: 1e-7, decode: decodeI32},
	'M': {width: 1, decode: func(b []byte) any { return uint64(b[0]) }},
	'a': {width: 64, decode: func(b []byte) any {
		vals := make([]int16, 32)
		for i := range vals {
			vals[i] = int16(binary.LittleEndian.Uint16(b[i*2:]))
		}
		return vals
	}},
}

func decodeI16(b []byte) any { return int64(int16(binary.LittleEndian.Uint16(b))) }
func decodeU16(b []byte) any { return uint64(binary.LittleEndian.Uint16(b)) }
func decodeI32(b []byte) any { return int64(int32(binary.LittleEndian.Uint32(b))) }
func decodeU32(b []byte) any { return uint64(binary.LittleEndian.Uint32(b)) }

func decodeString(b []byte) any { return TrimNul(b) }

// TrimNul converts NUL-padded ASCII bytes to a string without the
// padding.
func TrimNul(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// Codec is a compiled format string: the total payload width plus one
// decoder per field, in field order.
type Codec struct {
	Width  int
	fields []fieldCodec
}

// NumFields returns the number of fields the codec decodes.
func (c *Codec) NumFields() int { return len(c.fields) }

// ImplicitScale returns the field code's built-in scale for field i, or
// 0 when the code carries none.
func (c *Codec) ImplicitScale(i int) float64 { return c.fields[i].scale }

// Unpack decodes payload into one raw value per field. payload must be
// at least Width bytes; values are unscaled.
func (c *Codec) Unpack(payload []byte) []any {
	values := make([]any, len(c.fields))
	off := 0
	for i, fc := range c.fields {
		values[i] = fc.decode(payload[off : off+fc.width])
		off += fc.width
	}
	return values
}

var codecCache = struct {
	sync.Mutex
	m map[string]*Codec
}{m: make(map[string]*Codec)}

// Compile converts an ArduPilot format string into a Codec. Compiled
// codecs are cached by the raw format string, so schemas sharing a
// format share the codec.
func Compile(format string) (*Codec, error) {
	codecCache.Lock()
	defer codecCache.Unlock()

	if c, ok := codecCache.m[format]; ok {
		return c, nil
	}

	c := &Codec{fields: make([]fieldCodec, 0, len(format))}
	for i := 0; i < len(format); i++ {
		fc, ok := codecs[format[i]]
		if !ok {
			return nil, fmt.Errorf("unknown field code %q in format %q", format[i], format)
		}
		c.fields = append(c.fields, fc)
		c.Width += fc.width
	}

	codecCache.m[format] = c
	return c, nil
}
