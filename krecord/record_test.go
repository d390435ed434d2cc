package krecord

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knactor/kafka/kwire"
)

func sampleBatch() Batch {
	return Batch{
		FirstOffset: 10,
		Records: []Record{
			{Timestamp: 1000, Key: []byte("k1"), Value: []byte("hello world this is a payload")},
			{Timestamp: 1001, Key: []byte("k2"), Value: []byte("another payload, a bit longer this time"),
				Headers: []Header{{Key: "trace", Value: []byte("abc123")}}},
			{Timestamp: 1002, Key: nil, Value: []byte("final record with nil key")},
		},
	}
}

func TestRecordBatchRoundTripEachCodec(t *testing.T) {
	codecs := []Codec{CodecNone, CodecGzip, CodecSnappy, CodecLz4, CodecZstd}
	for _, c := range codecs {
		c := c
		t.Run(c.String(), func(t *testing.T) {
			w := kwire.NewWriter(0)
			require.NoError(t, Encode(w, sampleBatch(), c))

			batches, err := DecodeAll(w.Bytes())
			require.NoError(t, err)
			require.Len(t, batches, 1)

			got := batches[0]
			want := sampleBatch()
			require.Len(t, got.Records, len(want.Records))
			for i := range want.Records {
				assert.Equal(t, want.Records[i].Key, got.Records[i].Key)
				assert.Equal(t, want.Records[i].Value, got.Records[i].Value)
				assert.Equal(t, want.Records[i].Timestamp, got.Records[i].Timestamp)
				assert.Equal(t, want.FirstOffset+int64(i), got.Records[i].Offset)
			}
			assert.Equal(t, "trace", got.Records[1].Headers[0].Key)
			assert.Equal(t, []byte("abc123"), got.Records[1].Headers[0].Value)
		})
	}
}

func TestRecordBatchCRCMismatchIsProtocolError(t *testing.T) {
	w := kwire.NewWriter(0)
	require.NoError(t, Encode(w, sampleBatch(), CodecNone))
	buf := w.Bytes()

	// flip a bit well inside the record payload, after the CRC field.
	buf[len(buf)-1] ^= 0xFF

	_, err := DecodeAll(buf)
	require.Error(t, err)
}

func TestDecodeAllDropsTrailingTruncatedBatch(t *testing.T) {
	w := kwire.NewWriter(0)
	require.NoError(t, Encode(w, sampleBatch(), CodecNone))
	full := w.Bytes()

	truncated := full[:len(full)-5]
	batches, err := DecodeAll(truncated)
	require.NoError(t, err)
	assert.Empty(t, batches)
}

func TestDecodeAllMultipleBatches(t *testing.T) {
	w := kwire.NewWriter(0)
	require.NoError(t, Encode(w, sampleBatch(), CodecNone))
	require.NoError(t, Encode(w, sampleBatch(), CodecGzip))

	batches, err := DecodeAll(w.Bytes())
	require.NoError(t, err)
	require.Len(t, batches, 2)
}
