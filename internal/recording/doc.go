// Package recording reads and writes libcluon recording (.rec) files.
//
// A recording is a flat sequence of frames. Each frame starts with the two
// magic bytes 0x0D 0xA4 and a 24-bit little-endian body length, followed by a
// protobuf-encoded cluon.data.Envelope. Reader exposes the frames as an
// envelope source with HasMore/Next semantics and byte-based progress; Writer
// produces the same framing.
package recording
