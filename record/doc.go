// Package record defines the decoded telemetry record produced by the
// decoder and the warning type that accompanies it.
//
// A Record carries the message type name, an insertion-ordered field
// dictionary, and the ordering key used by the merge phase: the
// effective TimeUS timestamp, the segment index, and the frame's byte
// offset. Records compare with Less in exactly that order, so sorting
// any collection of records reproduces the decoder's output order.
package record
