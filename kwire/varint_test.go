package kwire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendUvarint300(t *testing.T) {
	got := AppendUvarint(nil, 300)
	assert.Equal(t, []byte{0xAC, 0x02}, got)
}

func TestUvarintRoundTripSmallAndLarge(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 300, 16384, 1 << 20, 1<<63 - 1}
	for _, v := range values {
		buf := AppendUvarint(nil, v)
		r := NewReader(buf)
		got := r.Uvarint()
		require.NoError(t, r.Err())
		assert.Equal(t, v, got, "round trip of %d", v)
	}
}

func TestZigZagEncode32RoundTrip(t *testing.T) {
	cases := []struct {
		v    int32
		want uint32
	}{
		{0, 0},
		{-1, 1},
		{1, 2},
		{-2, 3},
		{2, 4},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ZigZagEncode32(tc.v))
		assert.Equal(t, tc.v, ZigZagDecode32(tc.want))
	}
}

func TestZigZagEncode64RoundTrip(t *testing.T) {
	values := []int64{0, -1, 1, -2, 2, 1<<62 - 1, -(1 << 62)}
	for _, v := range values {
		enc := ZigZagEncode64(v)
		assert.Equal(t, v, ZigZagDecode64(enc))
	}
}

func TestVarintWriterReaderRoundTrip(t *testing.T) {
	w := NewWriter(0)
	w.Varint(-150)
	w.Varlong(-9000000000)
	r := NewReader(w.Bytes())
	assert.Equal(t, int32(-150), r.Varint())
	assert.Equal(t, int64(-9000000000), r.Varlong())
	require.NoError(t, r.Err())
}

func TestReaderStickyErrorOnTruncatedVarint(t *testing.T) {
	r := NewReader([]byte{0x80, 0x80, 0x80}) // all continuation bits, no terminator
	r.Uvarint()
	require.Error(t, r.Err())
	// further reads are no-ops once sticky
	assert.Equal(t, uint64(0), r.Uvarint())
}

func TestUvarintLenMatchesAppend(t *testing.T) {
	for _, v := range []uint64{0, 1, 127, 128, 300, 1 << 20} {
		assert.Len(t, AppendUvarint(nil, v), UvarintLen(v))
	}
}
