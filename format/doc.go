// Package format maintains the per-message schema table of an
// ArduPilot BIN log and compiles its format strings into binary
// decoders.
//
// BIN logs are self-describing: a FMT frame (type 0x80) defines the
// name, frame length, field names and field format of every other
// message type the file uses. Preload scans the whole file for these
// frames before any parallel work starts, because a segment handed to
// a worker may contain types whose FMT frame lives earlier in the
// file. Optional FMTU frames attach per-field unit multipliers to
// schemas already registered.
//
// Format strings use a fixed one-character-per-field alphabet; Compile
// turns a format string into a Codec holding the payload width and one
// little-endian decoder per field. Codecs are cached by format string,
// so two schemas with the same layout share one codec.
//
// Basic usage:
//
//	reg := format.NewRegistry()
//	warnings, err := format.Preload(data, reg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	schema, ok := reg.Lookup(typeID)
package format
