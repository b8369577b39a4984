// Package recordio implements the binary spill format for decoded
// telemetry records. Each record is framed by magic bytes and
// length-prefixed header fields, followed by a snappy-compressed block
// holding the ordered field dictionary with one type tag per value.
//
// Basic usage:
//
//	var buf bytes.Buffer
//	n, err := recordio.Write(&buf, rec)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for rec := range recordio.Seq(&buf) {
//	    fmt.Printf("read %s at offset %d\n", rec.Type, rec.Offset)
//	}
package recordio
