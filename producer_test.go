package kafka_test

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/knactor/kafka"
	"github.com/knactor/kafka/internal/testkafka"
	"github.com/knactor/kafka/kproto"
)

func TestProducerSendRoundTrip(t *testing.T) {
	broker, err := testkafka.NewBroker(testkafka.DefaultMaxVersions())
	require.NoError(t, err)
	defer broker.Close()
	host, portStr, err := net.SplitHostPort(broker.Addr())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	metaBody := testkafka.EncodeMetadataResponse(9, 1,
		[]testkafka.MetadataBroker{{NodeID: 1, Host: host, Port: int32(port)}},
		[]testkafka.MetadataTopic{{Name: "orders", Partitions: []testkafka.MetadataPartition{
			{Index: 0, Leader: 1, Replicas: []int32{1}, Isr: []int32{1}},
		}}})
	broker.Script(testkafka.ScriptKey{APIKey: kproto.KeyMetadata, Version: 9}, testkafka.Response{Body: metaBody})

	produceBody := testkafka.EncodeProduceResponse(9, "orders", []testkafka.ProducedPartition{
		{Index: 0, ErrorCode: 0, BaseOffset: 42},
	})
	broker.Script(testkafka.ScriptKey{APIKey: kproto.KeyProduce, Version: 9}, testkafka.Response{Body: produceBody})

	client, err := kafka.NewClient(kafka.WithSeedBrokers(broker.Addr()))
	require.NoError(t, err)
	defer client.Close()

	producer := kafka.NewProducer(client, kafka.WithAcks(kafka.AcksLeader))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	results, err := producer.Send(ctx, []kafka.Record{
		{Topic: "orders", Partition: int32Ptr(0), Key: []byte("k-1"), Value: []byte("v-1")},
		{Topic: "orders", Partition: int32Ptr(0), Key: []byte("k-2"), Value: []byte("v-2")},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "orders", results[0].Topic)
	require.Equal(t, int32(0), results[0].Partition)
	require.Equal(t, int64(42), results[0].Offset)
	require.Equal(t, "orders", results[1].Topic)
	require.Equal(t, int32(0), results[1].Partition)
	require.Equal(t, int64(43), results[1].Offset)
}

func int32Ptr(v int32) *int32 { return &v }
