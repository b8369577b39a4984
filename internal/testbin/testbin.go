// Package testbin assembles synthetic ArduPilot BIN logs for tests.
package testbin

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
)

const (
	syncA = 0xA3
	syncB = 0x95
)

// Builder accumulates frames of a synthetic log.
type Builder struct {
	buf bytes.Buffer
}

func New() *Builder { return &Builder{} }

// FMT appends a format-definition frame describing typeID.
func (b *Builder) FMT(typeID, length uint8, name, format, columns string) *Builder {
	frame := make([]byte, 89)
	frame[0], frame[1], frame[2] = syncA, syncB, 0x80
	frame[3] = typeID
	frame[4] = length
	copy(frame[5:9], pad(name, 4))
	copy(frame[9:25], pad(format, 16))
	copy(frame[25:89], pad(columns, 64))
	b.buf.Write(frame)
	return b
}

// Frame appends a message frame with the given payload parts.
func (b *Builder) Frame(typeID uint8, parts ...[]byte) *Builder {
	b.buf.WriteByte(syncA)
	b.buf.WriteByte(syncB)
	b.buf.WriteByte(typeID)
	for _, p := range parts {
		b.buf.Write(p)
	}
	return b
}

// Raw appends arbitrary bytes.
func (b *Builder) Raw(p []byte) *Builder {
	b.buf.Write(p)
	return b
}

func (b *Builder) Bytes() []byte { return b.buf.Bytes() }

// WriteFile stores the log in t's temp dir and returns its path.
func (b *Builder) WriteFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.bin")
	if err := os.WriteFile(path, b.Bytes(), 0o600); err != nil {
		t.Fatalf("write test log: %v", err)
	}
	return path
}

func pad(s string, n int) []byte {
	out := make([]byte, n)
	copy(out, s)
	return out
}

// Payload part helpers, all little-endian.

func U8(v uint8) []byte { return []byte{v} }

func U16(v uint16) []byte {
	out := make([]byte, 2)
	binary.LittleEndian.PutUint16(out, v)
	return out
}

func I16(v int16) []byte { return U16(uint16(v)) }

func U32(v uint32) []byte {
	out := make([]byte, 4)
	binary.LittleEndian.PutUint32(out, v)
	return out
}

func I32(v int32) []byte { return U32(uint32(v)) }

func U64(v uint64) []byte {
	out := make([]byte, 8)
	binary.LittleEndian.PutUint64(out, v)
	return out
}

func I64(v int64) []byte { return U64(uint64(v)) }

func F32(v float32) []byte { return U32(math.Float32bits(v)) }

func F64(v float64) []byte { return U64(math.Float64bits(v)) }

// Str returns s NUL-padded to n bytes.
func Str(s string, n int) []byte { return pad(s, n) }
