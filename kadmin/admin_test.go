package kadmin

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/knactor/kafka"
	"github.com/knactor/kafka/internal/testkafka"
	"github.com/knactor/kafka/kproto"
)

func newTestAdmin(t *testing.T) (*Admin, *testkafka.Broker) {
	t.Helper()
	broker, err := testkafka.NewBroker(testkafka.DefaultMaxVersions())
	require.NoError(t, err)
	t.Cleanup(func() { broker.Close() })

	client, err := kafka.NewClient(kafka.WithSeedBrokers(broker.Addr()))
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return NewAdmin(client), broker
}

func TestCreateTopics(t *testing.T) {
	admin, broker := newTestAdmin(t)
	body := testkafka.EncodeCreateTopicsResponse(5, []testkafka.CreatedTopic{
		{Name: "orders", ErrorCode: 0, NumPartitions: 3},
	})
	broker.Script(testkafka.ScriptKey{APIKey: kproto.KeyCreateTopics, Version: 5}, testkafka.Response{Body: body})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	results, err := admin.CreateTopics(ctx, 30000, TopicSpec{Name: "orders", NumPartitions: 3, ReplicationFactor: 1})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "orders", results[0].Name)
	require.Equal(t, int32(3), results[0].NumPartitions)
}

func TestCreateTopicsPropagatesError(t *testing.T) {
	admin, broker := newTestAdmin(t)
	body := testkafka.EncodeCreateTopicsResponse(5, []testkafka.CreatedTopic{
		{Name: "orders", ErrorCode: 36}, // TOPIC_ALREADY_EXISTS
	})
	broker.Script(testkafka.ScriptKey{APIKey: kproto.KeyCreateTopics, Version: 5}, testkafka.Response{Body: body})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := admin.CreateTopics(ctx, 30000, TopicSpec{Name: "orders"})
	require.Error(t, err)
}

func TestDeleteTopics(t *testing.T) {
	admin, broker := newTestAdmin(t)
	body := testkafka.EncodeDeleteTopicsResponse(4, []testkafka.DeletedTopic{
		{Name: "orders", ErrorCode: 0},
	})
	broker.Script(testkafka.ScriptKey{APIKey: kproto.KeyDeleteTopics, Version: 4}, testkafka.Response{Body: body})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	results, err := admin.DeleteTopics(ctx, 30000, "orders")
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "orders", results[0].Name)
}
