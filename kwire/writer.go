// Package kwire implements the Kafka wire protocol's primitive encodings:
// fixed-width integers, booleans, unsigned and zigzag varints, legacy and
// compact strings/bytes/arrays, UUIDs, and tagged fields. Everything above
// this layer (record batches, API request/response bodies) is built out of
// a Writer and a Reader.
package kwire

import (
	"encoding/binary"
	"math"

	"github.com/google/uuid"
)

// Writer accumulates an encoded Kafka frame. The zero value is ready to
// use; callers typically start one per request body and call AppendTo on
// it via a type's own AppendTo method.
type Writer struct {
	buf []byte
}

// NewWriter returns a Writer with buf pre-allocated as starting capacity.
func NewWriter(sizeHint int) *Writer {
	return &Writer{buf: make([]byte, 0, sizeHint)}
}

// Bytes returns the accumulated buffer. The slice is owned by the Writer;
// callers that need to keep it past further writes should copy it.
func (w *Writer) Bytes() []byte { return w.buf }

// Len reports how many bytes have been written so far.
func (w *Writer) Len() int { return len(w.buf) }

// Raw appends p verbatim, for callers assembling a frame out of
// already-encoded sub-buffers (e.g. a compressed record batch).
func (w *Writer) Raw(p []byte) { w.buf = append(w.buf, p...) }

func (w *Writer) Int8(v int8) { w.buf = append(w.buf, byte(v)) }

func (w *Writer) Int16(v int16) {
	w.buf = binary.BigEndian.AppendUint16(w.buf, uint16(v))
}

func (w *Writer) Int32(v int32) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, uint32(v))
}

func (w *Writer) Int64(v int64) {
	w.buf = binary.BigEndian.AppendUint64(w.buf, uint64(v))
}

func (w *Writer) Uint8(v uint8) { w.buf = append(w.buf, v) }

func (w *Writer) Uint16(v uint16) {
	w.buf = binary.BigEndian.AppendUint16(w.buf, v)
}

func (w *Writer) Uint32(v uint32) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, v)
}

func (w *Writer) Uint64(v uint64) {
	w.buf = binary.BigEndian.AppendUint64(w.buf, v)
}

func (w *Writer) Float64(v float64) {
	w.buf = binary.BigEndian.AppendUint64(w.buf, math.Float64bits(v))
}

func (w *Writer) Bool(v bool) {
	if v {
		w.buf = append(w.buf, 1)
	} else {
		w.buf = append(w.buf, 0)
	}
}

// UUID appends the 16 raw bytes of id. The zero UUID is Kafka's encoding
// of "null".
func (w *Writer) UUID(id uuid.UUID) {
	w.buf = append(w.buf, id[:]...)
}

// Int32Slot reserves 4 bytes and returns the offset they start at, so a
// caller can backpatch a length or CRC once the rest of the frame is known
// (used by record batches and the outermost request/response framing).
func (w *Writer) Int32Slot() int {
	off := len(w.buf)
	w.buf = append(w.buf, 0, 0, 0, 0)
	return off
}

// PatchInt32 overwrites the 4 bytes at off (previously returned by
// Int32Slot) with v.
func (w *Writer) PatchInt32(off int, v int32) {
	binary.BigEndian.PutUint32(w.buf[off:off+4], uint32(v))
}

// Slice returns the bytes written starting at off, for checksum
// computation over a sub-range (e.g. CRC-32C over everything after a
// record batch's CRC field).
func (w *Writer) Slice(off int) []byte { return w.buf[off:] }
