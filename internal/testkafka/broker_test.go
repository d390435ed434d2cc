package testkafka

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/knactor/kafka"
	"github.com/knactor/kafka/kproto"
)

func TestBrokerAnswersApiVersions(t *testing.T) {
	b, err := NewBroker(DefaultMaxVersions())
	require.NoError(t, err)
	defer b.Close()
	b.Script(ScriptKey{APIKey: kproto.KeyMetadata, Version: 9}, Response{Body: EncodeMetadataResponse(9, 1, nil, nil)})

	client, err := kafka.NewClient(kafka.WithSeedBrokers(b.Addr()))
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	m, err := client.Metadata(ctx, nil, true)
	require.NoError(t, err)
	require.NotNil(t, m)
}

func TestBrokerScriptsMetadataResponse(t *testing.T) {
	b, err := NewBroker(DefaultMaxVersions())
	require.NoError(t, err)
	defer b.Close()

	body := EncodeMetadataResponse(9, 1, []MetadataBroker{{NodeID: 1, Host: "127.0.0.1", Port: 9092}},
		[]MetadataTopic{{Name: "orders", Partitions: []MetadataPartition{
			{Index: 0, Leader: 1, Replicas: []int32{1}, Isr: []int32{1}},
		}}})
	b.Script(ScriptKey{APIKey: kproto.KeyMetadata, Version: 9}, Response{Body: body})

	client, err := kafka.NewClient(kafka.WithSeedBrokers(b.Addr()))
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	m, err := client.Metadata(ctx, []string{"orders"}, true)
	require.NoError(t, err)
	addr, ok := m.LeaderAddr("orders", 0)
	require.True(t, ok)
	require.Equal(t, "127.0.0.1:9092", addr)
}

func TestScriptRepeatsLastResponse(t *testing.T) {
	b, err := NewBroker(DefaultMaxVersions())
	require.NoError(t, err)
	defer b.Close()

	key := ScriptKey{APIKey: kproto.KeyMetadata, Version: 9}
	first := EncodeMetadataResponse(9, 1, nil, []MetadataTopic{{Name: "a"}})
	second := EncodeMetadataResponse(9, 1, nil, []MetadataTopic{{Name: "b"}})
	b.Script(key, Response{Body: first}, Response{Body: second})

	client, err := kafka.NewClient(kafka.WithSeedBrokers(b.Addr()))
	require.NoError(t, err)
	defer client.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	m1, err := client.Metadata(ctx, []string{"a"}, true)
	require.NoError(t, err)
	_, ok := m1.Topics["a"]
	require.True(t, ok)

	m2, err := client.Metadata(ctx, []string{"b"}, true)
	require.NoError(t, err)
	_, ok = m2.Topics["b"]
	require.True(t, ok)

	m3, err := client.Metadata(ctx, []string{"b"}, true)
	require.NoError(t, err)
	_, ok = m3.Topics["b"]
	require.True(t, ok)
}
