package kwire

// Legacy (pre-flexible) encodings use an int16 length for strings and an
// int32 length for byte arrays and array counts, with -1 meaning null.
// Compact (flexible, KIP-482) encodings use an unsigned varint length that
// is the real length plus one, with 0 meaning null — this lets a reader
// tell null apart from empty without a separate sentinel.

// String writes a legacy nullable string: int16 length then bytes, -1 for nil.
func (w *Writer) String(s *string) {
	if s == nil {
		w.Int16(-1)
		return
	}
	w.Int16(int16(len(*s)))
	w.Raw([]byte(*s))
}

// CompactString writes a compact nullable string: uvarint(len+1) then
// bytes, 0 for nil.
func (w *Writer) CompactString(s *string) {
	if s == nil {
		w.Uvarint(0)
		return
	}
	w.Uvarint(uint64(len(*s)) + 1)
	w.Raw([]byte(*s))
}

// NullableBytes writes a legacy nullable byte array: int32 length then
// bytes, -1 for nil.
func (w *Writer) NullableBytes(b []byte) {
	if b == nil {
		w.Int32(-1)
		return
	}
	w.Int32(int32(len(b)))
	w.Raw(b)
}

// CompactBytes writes a compact nullable byte array: uvarint(len+1) then
// bytes, 0 for nil.
func (w *Writer) CompactBytes(b []byte) {
	if b == nil {
		w.Uvarint(0)
		return
	}
	w.Uvarint(uint64(len(b)) + 1)
	w.Raw(b)
}

// ArrayLen writes a legacy array length prefix (-1 for a nil array).
func (w *Writer) ArrayLen(n int, isNil bool) {
	if isNil {
		w.Int32(-1)
		return
	}
	w.Int32(int32(n))
}

// CompactArrayLen writes a compact array length prefix (0 for a nil array).
func (w *Writer) CompactArrayLen(n int, isNil bool) {
	if isNil {
		w.Uvarint(0)
		return
	}
	w.Uvarint(uint64(n) + 1)
}

func (r *Reader) String() *string {
	n := r.Int16()
	if r.err != nil {
		return nil
	}
	if n < 0 {
		return nil
	}
	b := r.take(int(n))
	if b == nil {
		return nil
	}
	s := string(b)
	return &s
}

func (r *Reader) CompactString() *string {
	n := r.Uvarint()
	if r.err != nil {
		return nil
	}
	if n == 0 {
		return nil
	}
	b := r.take(int(n - 1))
	if b == nil {
		return nil
	}
	s := string(b)
	return &s
}

func (r *Reader) Bytes() []byte {
	n := r.Int32()
	if r.err != nil {
		return nil
	}
	if n < 0 {
		return nil
	}
	return r.take(int(n))
}

func (r *Reader) CompactBytes() []byte {
	n := r.Uvarint()
	if r.err != nil {
		return nil
	}
	if n == 0 {
		return nil
	}
	return r.take(int(n - 1))
}

// ArrayLen returns the element count of a legacy array, and ok=false if
// the array is null (callers distinguish "null" from "empty" for fields
// where that matters, e.g. topic filters in Metadata requests).
func (r *Reader) ArrayLen() (n int, ok bool) {
	raw := r.Int32()
	if r.err != nil {
		return 0, false
	}
	if raw < 0 {
		return 0, false
	}
	return int(raw), true
}

// CompactArrayLen is ArrayLen for the compact (uvarint len+1) encoding.
func (r *Reader) CompactArrayLen() (n int, ok bool) {
	raw := r.Uvarint()
	if r.err != nil {
		return 0, false
	}
	if raw == 0 {
		return 0, false
	}
	return int(raw - 1), true
}
