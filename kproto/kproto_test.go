package kproto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knactor/kafka/kwire"
)

func TestMetadataRequestResponseRoundTrip(t *testing.T) {
	req := &MetadataRequest{Topics: []string{"orders", "payments"}, AllowAutoTopicCreation: true}
	req.SetVersion(9)
	w := kwire.NewWriter(0)
	req.AppendTo(w)

	r := kwire.NewReader(w.Bytes())
	flex := req.IsFlexible()
	n := arrLen(r, flex)
	require.Equal(t, 2, n)
	assert.Equal(t, "orders", readString(r, flex))
	assert.Equal(t, "payments", readString(r, flex))

	resp := &MetadataResponse{}
	resp.SetVersion(9)
	assert.Equal(t, KeyMetadata, resp.Key())
}

func TestApiVersionsResponseDecode(t *testing.T) {
	w := kwire.NewWriter(0)
	w.Int16(0) // error code
	w.Int32(2) // array len (legacy v0)
	w.Int16(18)
	w.Int16(0)
	w.Int16(3)
	w.Int16(3)
	w.Int16(0)
	w.Int16(12)

	resp := &ApiVersionsResponse{}
	resp.SetVersion(0)
	require.NoError(t, resp.ReadFrom(kwire.NewReader(w.Bytes())))
	require.Len(t, resp.ApiKeys, 2)
	assert.Equal(t, int16(18), resp.ApiKeys[0].APIKey)
	assert.Equal(t, int16(3), resp.ApiKeys[0].MaxVersion)
}

func TestApiVersionsRequestIsFlexibleAtV3(t *testing.T) {
	req := &ApiVersionsRequest{ClientSoftwareName: "knactor-kafka", ClientSoftwareVersion: "0.1.0"}
	req.SetVersion(3)
	assert.True(t, req.IsFlexible())
	req.SetVersion(2)
	assert.False(t, req.IsFlexible())
}

func TestProduceRequestResponseShapesMatch(t *testing.T) {
	req := &ProduceRequest{
		Acks:          -1,
		TimeoutMillis: 30000,
		Topics: []ProduceTopicData{
			{Name: "orders", Partitions: []ProducePartitionData{{Index: 0, RecordsBytes: []byte("batch-bytes")}}},
		},
	}
	req.SetVersion(9)
	w := kwire.NewWriter(0)
	req.AppendTo(w)
	assert.NotZero(t, w.Len())
	assert.Equal(t, KeyProduce, req.Key())
	assert.IsType(t, &ProduceResponse{}, req.ResponseKind())
}

func TestOffsetCommitUsesOffsetPlusOneConvention(t *testing.T) {
	// This test documents the decided semantics rather than exercising
	// new logic: the wire type stores whatever Offset value the caller
	// hands it, and it is the caller's job (the Consumer in the kafka
	// package) to pass lastConsumedOffset+1.
	req := &OffsetCommitRequest{
		GroupID: "g1",
		Topics: []OffsetCommitTopic{
			{Name: "t", Partitions: []OffsetCommitPartition{{Index: 0, Offset: 101}}},
		},
	}
	req.SetVersion(8)
	w := kwire.NewWriter(0)
	req.AppendTo(w)
	assert.NotZero(t, w.Len())
}
