package kwire

import (
	"encoding/binary"
	"math"

	"github.com/google/uuid"
	"github.com/knactor/kafka/kerr"
)

// Reader consumes a Kafka-encoded frame sequentially. It is sticky on
// error: once any read fails (short buffer, negative length, malformed
// varint), every subsequent method is a no-op returning the zero value,
// and the failure is available from Err. Callers decode a whole response
// body and check Err exactly once at the end.
type Reader struct {
	buf []byte
	err error
}

// NewReader wraps buf for sequential decoding.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Err returns the first decoding failure encountered, or nil if every read
// so far has succeeded.
func (r *Reader) Err() error { return r.err }

// Remaining returns the bytes not yet consumed.
func (r *Reader) Remaining() []byte { return r.buf }

// Len reports how many unconsumed bytes remain.
func (r *Reader) Len() int { return len(r.buf) }

// Complete reports an error if any bytes remain unconsumed (a "trailing
// garbage" check). kproto's ReadFrom methods do not call it; they ignore
// any bytes left after the fields they know about.
func (r *Reader) Complete() error {
	if r.err != nil {
		return r.err
	}
	if len(r.buf) > 0 {
		return kerr.New(kerr.KindResponse, "unexpected trailing bytes after decode")
	}
	return nil
}

func (r *Reader) fail(msg string) {
	if r.err == nil {
		r.err = kerr.New(kerr.KindResponse, msg)
	}
}

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || n > len(r.buf) {
		r.fail("truncated frame")
		return nil
	}
	b := r.buf[:n]
	r.buf = r.buf[n:]
	return b
}

func (r *Reader) Int8() int8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return int8(b[0])
}

func (r *Reader) Int16() int16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return int16(binary.BigEndian.Uint16(b))
}

func (r *Reader) Int32() int32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return int32(binary.BigEndian.Uint32(b))
}

func (r *Reader) Int64() int64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return int64(binary.BigEndian.Uint64(b))
}

func (r *Reader) Uint8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *Reader) Uint16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

func (r *Reader) Uint32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func (r *Reader) Uint64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}

func (r *Reader) Float64() float64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b))
}

func (r *Reader) Bool() bool {
	b := r.take(1)
	if b == nil {
		return false
	}
	return b[0] != 0
}

func (r *Reader) UUID() uuid.UUID {
	b := r.take(16)
	if b == nil {
		return uuid.UUID{}
	}
	var id uuid.UUID
	copy(id[:], b)
	return id
}

// Span consumes and returns the next n bytes verbatim (used for record
// batch payloads whose length was already decoded separately).
func (r *Reader) Span(n int) []byte {
	return r.take(n)
}
