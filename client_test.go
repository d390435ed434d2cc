package kafka_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/knactor/kafka"
	"github.com/knactor/kafka/internal/testkafka"
	"github.com/knactor/kafka/kproto"
)

func TestMetadataCacheDedupesWithinTTL(t *testing.T) {
	broker, err := testkafka.NewBroker(testkafka.DefaultMaxVersions())
	require.NoError(t, err)
	defer broker.Close()

	body := testkafka.EncodeMetadataResponse(9, 1,
		[]testkafka.MetadataBroker{{NodeID: 1, Host: "127.0.0.1", Port: 9092}},
		[]testkafka.MetadataTopic{{Name: "t", Partitions: []testkafka.MetadataPartition{
			{Index: 0, Leader: 1, Replicas: []int32{1}, Isr: []int32{1}},
		}}})
	broker.Script(testkafka.ScriptKey{APIKey: kproto.KeyMetadata, Version: 9}, testkafka.Response{Body: body})

	client, err := kafka.NewClient(
		kafka.WithSeedBrokers(broker.Addr()),
		kafka.WithMetadataMaxAge(time.Minute),
	)
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	m1, err := client.Metadata(ctx, []string{"t"}, false)
	require.NoError(t, err)
	m2, err := client.Metadata(ctx, []string{"t"}, false)
	require.NoError(t, err)
	require.Equal(t, m1.LastUpdate, m2.LastUpdate, "second call within TTL must reuse the cached snapshot, not refresh")
}

func TestForceRefreshAlwaysRefetches(t *testing.T) {
	broker, err := testkafka.NewBroker(testkafka.DefaultMaxVersions())
	require.NoError(t, err)
	defer broker.Close()

	first := testkafka.EncodeMetadataResponse(9, 1, nil, []testkafka.MetadataTopic{{Name: "t"}})
	second := testkafka.EncodeMetadataResponse(9, 2, nil, []testkafka.MetadataTopic{{Name: "t"}})
	broker.Script(testkafka.ScriptKey{APIKey: kproto.KeyMetadata, Version: 9},
		testkafka.Response{Body: first}, testkafka.Response{Body: second})

	client, err := kafka.NewClient(
		kafka.WithSeedBrokers(broker.Addr()),
		kafka.WithMetadataMaxAge(time.Minute),
	)
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	m1, err := client.Metadata(ctx, []string{"t"}, false)
	require.NoError(t, err)
	require.Equal(t, int32(1), m1.ControllerID)

	m2, err := client.ForceRefreshMetadata(ctx, []string{"t"})
	require.NoError(t, err)
	require.Equal(t, int32(2), m2.ControllerID)
}

func TestCoordinatorCachesUntilInvalidated(t *testing.T) {
	broker, err := testkafka.NewBroker(testkafka.DefaultMaxVersions())
	require.NoError(t, err)
	defer broker.Close()

	body := testkafka.EncodeFindCoordinatorResponse(3, 7, "127.0.0.1", 9092)
	broker.Script(testkafka.ScriptKey{APIKey: kproto.KeyFindCoordinator, Version: 3}, testkafka.Response{Body: body})

	client, err := kafka.NewClient(kafka.WithSeedBrokers(broker.Addr()))
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	addr1, err := client.Coordinator(ctx, kproto.CoordinatorGroup, "g1")
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9092", addr1)

	client.InvalidateCoordinator(kproto.CoordinatorGroup, "g1")

	addr2, err := client.Coordinator(ctx, kproto.CoordinatorGroup, "g1")
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9092", addr2)
}
