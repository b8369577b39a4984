package recordio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/Velocidex/ordereddict"
	"github.com/golang/snappy"

	"github.com/mendikup/flightlog/record"
)

var (
	Uint64Size = int64(binary.Size(uint64(0)))
	Int64Size  = int64(binary.Size(int64(0)))
	// MagicBytes identify a valid spill record (FLR).
	MagicBytes           = []byte{0x46, 0x4C, 0x52}
	ErrInvalidMagicBytes = errors.New("invalid magic bytes - not a valid spill record")
	ErrUnknownValueTag   = errors.New("unknown value tag in spill record")
)

// Value tags in the compressed field block.
const (
	tagInt64 byte = iota + 1
	tagUint64
	tagFloat64
	tagString
	tagInt16Array
	tagRaw
)

// BinaryWriter handles writing binary data with error handling.
type BinaryWriter struct {
	w io.Writer
}

func NewBinaryWriter(w io.Writer) BinaryWriter {
	return BinaryWriter{w: w}
}

func (bw BinaryWriter) WriteString(s string) (int64, error) {
	if err := binary.Write(bw.w, binary.LittleEndian, uint64(len(s))); err != nil {
		return 0, fmt.Errorf("error writing string length: %w", err)
	}

	n, err := io.WriteString(bw.w, s)
	if err != nil {
		return Uint64Size, fmt.Errorf("error writing string content: %w", err)
	}
	return Uint64Size + int64(n), nil
}

func (bw BinaryWriter) WriteInt64(i int64) (int64, error) {
	if err := binary.Write(bw.w, binary.LittleEndian, i); err != nil {
		return 0, err
	}
	return Int64Size, nil
}

func (bw BinaryWriter) WriteUint64(i uint64) (int64, error) {
	if err := binary.Write(bw.w, binary.LittleEndian, i); err != nil {
		return 0, err
	}
	return Uint64Size, nil
}

func (bw BinaryWriter) WriteBool(b bool) (int64, error) {
	var v byte
	if b {
		v = 1
	}
	if err := binary.Write(bw.w, binary.LittleEndian, v); err != nil {
		return 0, err
	}
	return 1, nil
}

func (bw BinaryWriter) WriteBytes(b []byte) (int64, error) {
	if err := binary.Write(bw.w, binary.LittleEndian, uint64(len(b))); err != nil {
		return 0, fmt.Errorf("error writing bytes length: %w", err)
	}

	n, err := bw.w.Write(b)
	if err != nil {
		return Uint64Size, fmt.Errorf("error writing bytes content: %w", err)
	}
	return Uint64Size + int64(n), nil
}

// BinaryReader handles reading binary data with error handling.
type BinaryReader struct {
	r io.Reader
}

func NewBinaryReader(r io.Reader) BinaryReader {
	return BinaryReader{r: r}
}

func (br BinaryReader) ReadString() (string, error) {
	var length uint64
	if err := binary.Read(br.r, binary.LittleEndian, &length); err != nil {
		return "", fmt.Errorf("error reading string length: %w", err)
	}

	b := make([]byte, length)
	if _, err := io.ReadFull(br.r, b); err != nil {
		return "", fmt.Errorf("error reading string content: %w", err)
	}
	return string(b), nil
}

func (br BinaryReader) ReadInt64() (int64, error) {
	var value int64
	err := binary.Read(br.r, binary.LittleEndian, &value)
	return value, err
}

func (br BinaryReader) ReadUint64() (uint64, error) {
	var value uint64
	err := binary.Read(br.r, binary.LittleEndian, &value)
	return value, err
}

func (br BinaryReader) ReadBool() (bool, error) {
	var value byte
	err := binary.Read(br.r, binary.LittleEndian, &value)
	return value != 0, err
}

func (br BinaryReader) ReadBytes() ([]byte, error) {
	var length uint64
	if err := binary.Read(br.r, binary.LittleEndian, &length); err != nil {
		return nil, fmt.Errorf("error reading bytes length: %w", err)
	}

	b := make([]byte, length)
	if _, err := io.ReadFull(br.r, b); err != nil {
		return nil, fmt.Errorf("error reading bytes content: %w", err)
	}
	return b, nil
}

// Write writes a single record to the writer. The field dictionary is
// snappy-compressed: spill files are written once and read once, so
// block compression trades a little CPU for most of the spill I/O.
func Write(w io.Writer, rec record.Record) (int64, error) {
	var totalBytes int64

	mn, err := w.Write(MagicBytes)
	if err != nil {
		return int64(mn), fmt.Errorf("failed to write magic bytes: %w", err)
	}
	totalBytes += int64(mn)

	bw := NewBinaryWriter(w)

	n, err := bw.WriteString(rec.Type)
	if err != nil {
		return totalBytes, fmt.Errorf("error writing type: %w", err)
	}
	totalBytes += n

	n, err = bw.WriteInt64(int64(rec.Segment))
	if err != nil {
		return totalBytes, fmt.Errorf("error writing segment: %w", err)
	}
	totalBytes += n

	n, err = bw.WriteInt64(rec.Offset)
	if err != nil {
		return totalBytes, fmt.Errorf("error writing offset: %w", err)
	}
	totalBytes += n

	n, err = bw.WriteUint64(rec.TimeUS)
	if err != nil {
		return totalBytes, fmt.Errorf("error writing timestamp: %w", err)
	}
	totalBytes += n

	n, err = bw.WriteBool(rec.HasTimeUS)
	if err != nil {
		return totalBytes, fmt.Errorf("error writing timestamp flag: %w", err)
	}
	totalBytes += n

	fields, err := encodeFields(rec.Fields)
	if err != nil {
		return totalBytes, err
	}

	n, err = bw.WriteBytes(snappy.Encode(nil, fields))
	if err != nil {
		return totalBytes, fmt.Errorf("error writing fields: %w", err)
	}
	totalBytes += n

	return totalBytes, nil
}

// ReadRecord reads a single record from the reader.
func ReadRecord(r io.Reader) (record.Record, error) {
	magic := make([]byte, len(MagicBytes))
	if _, err := io.ReadFull(r, magic); err != nil {
		return record.Record{}, fmt.Errorf("failed to read magic bytes: %w", err)
	}
	if !bytes.Equal(magic, MagicBytes) {
		return record.Record{}, ErrInvalidMagicBytes
	}

	br := NewBinaryReader(r)

	typ, err := br.ReadString()
	if err != nil {
		return record.Record{}, fmt.Errorf("error reading type: %w", err)
	}

	segment, err := br.ReadInt64()
	if err != nil {
		return record.Record{}, fmt.Errorf("error reading segment: %w", err)
	}

	offset, err := br.ReadInt64()
	if err != nil {
		return record.Record{}, fmt.Errorf("error reading offset: %w", err)
	}

	timeUS, err := br.ReadUint64()
	if err != nil {
		return record.Record{}, fmt.Errorf("error reading timestamp: %w", err)
	}

	hasTime, err := br.ReadBool()
	if err != nil {
		return record.Record{}, fmt.Errorf("error reading timestamp flag: %w", err)
	}

	compressed, err := br.ReadBytes()
	if err != nil {
		return record.Record{}, fmt.Errorf("error reading fields: %w", err)
	}

	raw, err := snappy.Decode(nil, compressed)
	if err != nil {
		return record.Record{}, fmt.Errorf("error decompressing fields: %w", err)
	}

	fields, err := decodeFields(raw)
	if err != nil {
		return record.Record{}, err
	}

	return record.Record{
		Type:      typ,
		Fields:    fields,
		TimeUS:    timeUS,
		HasTimeUS: hasTime,
		Segment:   int(segment),
		Offset:    offset,
	}, nil
}

// Seq creates an iterator over records.
func Seq(r io.Reader) iter.Seq[record.Record] {
	return func(yield func(record.Record) bool) {
		for {
			rec, err := ReadRecord(r)
			if err != nil {
				return
			}
			if !yield(rec) {
				return
			}
		}
	}
}

// ReadRecords reads all records into a slice.
func ReadRecords(r io.Reader) []record.Record {
	records := make([]record.Record, 0, 1)
	for rec := range Seq(r) {
		records = append(records, rec)
	}
	return records
}

func encodeFields(fields *ordereddict.Dict) ([]byte, error) {
	var buf bytes.Buffer
	bw := NewBinaryWriter(&buf)

	count := uint64(0)
	if fields != nil {
		count = uint64(fields.Len())
	}
	if _, err := bw.WriteUint64(count); err != nil {
		return nil, err
	}
	if fields == nil {
		return buf.Bytes(), nil
	}

	for _, name := range fields.Keys() {
		value, _ := fields.Get(name)
		if _, err := bw.WriteString(name); err != nil {
			return nil, err
		}
		if err := encodeValue(&buf, bw, value); err != nil {
			return nil, fmt.Errorf("field %s: %w", name, err)
		}
	}
	return buf.Bytes(), nil
}

func encodeValue(buf *bytes.Buffer, bw BinaryWriter, value any) error {
	switch v := value.(type) {
	case int64:
		buf.WriteByte(tagInt64)
		_, err := bw.WriteInt64(v)
		return err
	case uint64:
		buf.WriteByte(tagUint64)
		_, err := bw.WriteUint64(v)
		return err
	case float64:
		buf.WriteByte(tagFloat64)
		return binary.Write(buf, binary.LittleEndian, v)
	case string:
		buf.WriteByte(tagString)
		_, err := bw.WriteString(v)
		return err
	case []int16:
		buf.WriteByte(tagInt16Array)
		if _, err := bw.WriteUint64(uint64(len(v))); err != nil {
			return err
		}
		return binary.Write(buf, binary.LittleEndian, v)
	case []byte:
		buf.WriteByte(tagRaw)
		_, err := bw.WriteBytes(v)
		return err
	default:
		return fmt.Errorf("%w: %T", ErrUnknownValueTag, value)
	}
}

func decodeFields(raw []byte) (*ordereddict.Dict, error) {
	r := bytes.NewReader(raw)
	br := NewBinaryReader(r)

	count, err := br.ReadUint64()
	if err != nil {
		return nil, fmt.Errorf("error reading field count: %w", err)
	}

	fields := ordereddict.NewDict()
	for i := uint64(0); i < count; i++ {
		name, err := br.ReadString()
		if err != nil {
			return nil, fmt.Errorf("error reading field name: %w", err)
		}
		value, err := decodeValue(r, br)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", name, err)
		}
		fields.Set(name, value)
	}
	return fields, nil
}

func decodeValue(r *bytes.Reader, br BinaryReader) (any, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagInt64:
		return br.ReadInt64()
	case tagUint64:
		return br.ReadUint64()
	case tagFloat64:
		var v float64
		err := binary.Read(r, binary.LittleEndian, &v)
		return v, err
	case tagString:
		return br.ReadString()
	case tagInt16Array:
		n, err := br.ReadUint64()
		if err != nil {
			return nil, err
		}
		v := make([]int16, n)
		if err := binary.Read(r, binary.LittleEndian, v); err != nil {
			return nil, err
		}
		return v, nil
	case tagRaw:
		return br.ReadBytes()
	default:
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownValueTag, tag)
	}
}
