package kwire

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrimitiveRoundTrip(t *testing.T) {
	w := NewWriter(0)
	w.Int8(-5)
	w.Int16(-1000)
	w.Int32(-100000)
	w.Int64(-1 << 40)
	w.Uint8(200)
	w.Uint32(0xdeadbeef)
	w.Bool(true)
	w.Bool(false)
	w.Float64(3.5)
	id := uuid.New()
	w.UUID(id)

	r := NewReader(w.Bytes())
	assert.Equal(t, int8(-5), r.Int8())
	assert.Equal(t, int16(-1000), r.Int16())
	assert.Equal(t, int32(-100000), r.Int32())
	assert.Equal(t, int64(-1<<40), r.Int64())
	assert.Equal(t, uint8(200), r.Uint8())
	assert.Equal(t, uint32(0xdeadbeef), r.Uint32())
	assert.Equal(t, true, r.Bool())
	assert.Equal(t, false, r.Bool())
	assert.Equal(t, 3.5, r.Float64())
	assert.Equal(t, id, r.UUID())
	require.NoError(t, r.Complete())
}

func TestStringLegacyNullVsEmpty(t *testing.T) {
	empty := ""
	w := NewWriter(0)
	w.String(nil)
	w.String(&empty)

	r := NewReader(w.Bytes())
	assert.Nil(t, r.String())
	got := r.String()
	require.NotNil(t, got)
	assert.Equal(t, "", *got)
}

func TestCompactStringNullVsEmpty(t *testing.T) {
	empty := ""
	hello := "hello"
	w := NewWriter(0)
	w.CompactString(nil)
	w.CompactString(&empty)
	w.CompactString(&hello)

	r := NewReader(w.Bytes())
	assert.Nil(t, r.CompactString())
	got := r.CompactString()
	require.NotNil(t, got)
	assert.Equal(t, "", *got)
	got = r.CompactString()
	require.NotNil(t, got)
	assert.Equal(t, "hello", *got)
}

func TestBytesNullVsEmpty(t *testing.T) {
	w := NewWriter(0)
	w.NullableBytes(nil)
	w.NullableBytes([]byte{})
	w.NullableBytes([]byte{1, 2, 3})

	r := NewReader(w.Bytes())
	assert.Nil(t, r.Bytes())
	assert.Equal(t, []byte{}, r.Bytes())
	assert.Equal(t, []byte{1, 2, 3}, r.Bytes())
}

func TestCompactArrayLenNullVsEmpty(t *testing.T) {
	w := NewWriter(0)
	w.CompactArrayLen(0, true)
	w.CompactArrayLen(0, false)
	w.CompactArrayLen(3, false)

	r := NewReader(w.Bytes())
	n, ok := r.CompactArrayLen()
	assert.False(t, ok)
	assert.Equal(t, 0, n)

	n, ok = r.CompactArrayLen()
	assert.True(t, ok)
	assert.Equal(t, 0, n)

	n, ok = r.CompactArrayLen()
	assert.True(t, ok)
	assert.Equal(t, 3, n)
}

func TestTaggedFieldsEmptyTerminator(t *testing.T) {
	w := NewWriter(0)
	w.EmptyTags()
	assert.Equal(t, []byte{0x00}, w.Bytes())

	r := NewReader(w.Bytes())
	r.SkipTags()
	require.NoError(t, r.Err())
	assert.Equal(t, 0, r.Len())
}

func TestSkipTagsSkipsUnknownTags(t *testing.T) {
	w := NewWriter(0)
	w.Uvarint(2) // two tags
	w.Uvarint(5) // tag id
	w.Uvarint(3) // length
	w.Raw([]byte{1, 2, 3})
	w.Uvarint(7)
	w.Uvarint(1)
	w.Raw([]byte{9})
	w.Int32(42) // sentinel following the tag section

	r := NewReader(w.Bytes())
	r.SkipTags()
	require.NoError(t, r.Err())
	assert.Equal(t, int32(42), r.Int32())
	require.NoError(t, r.Complete())
}

func TestInt32SlotBackpatch(t *testing.T) {
	w := NewWriter(0)
	slot := w.Int32Slot()
	w.Raw([]byte{1, 2, 3, 4, 5})
	w.PatchInt32(slot, int32(w.Len()-slot-4))

	r := NewReader(w.Bytes())
	assert.Equal(t, int32(5), r.Int32())
}
