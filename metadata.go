package kafka

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// BrokerMetadata is one broker entry from a Metadata response.
type BrokerMetadata struct {
	NodeID int32
	Host   string
	Port   int32
	Rack   *string
}

func (b BrokerMetadata) addr() string {
	return b.Host + ":" + strconv.Itoa(int(b.Port))
}

// PartitionMetadata is one partition's leadership and replica state.
type PartitionMetadata struct {
	Index           int32
	Leader          int32
	LeaderEpoch     int32
	Replicas        []int32
	Isr             []int32
	OfflineReplicas []int32
}

// TopicMetadata is one topic's partition set.
type TopicMetadata struct {
	Name       string
	ErrorCode  int16
	Partitions []PartitionMetadata
}

// ClusterMetadata is a point-in-time snapshot of cluster shape: the
// broker set and, for every topic the client has asked about, partition
// leadership. Per spec.md §3's data-model invariant, every partition's
// Leader here is present in Brokers for any topic with no error.
type ClusterMetadata struct {
	ID           string
	ControllerID int32
	Brokers      map[int32]BrokerMetadata
	Topics       map[string]TopicMetadata
	LastUpdate   time.Time
}

func newClusterMetadata() *ClusterMetadata {
	return &ClusterMetadata{
		Brokers: make(map[int32]BrokerMetadata),
		Topics:  make(map[string]TopicMetadata),
	}
}

// LeaderAddr returns the "host:port" of the current leader for
// (topic, partition), or "" if unknown.
func (m *ClusterMetadata) LeaderAddr(topic string, partition int32) (string, bool) {
	t, ok := m.Topics[topic]
	if !ok {
		return "", false
	}
	for _, p := range t.Partitions {
		if p.Index == partition {
			b, ok := m.Brokers[p.Leader]
			if !ok {
				return "", false
			}
			return b.addr(), true
		}
	}
	return "", false
}

// PartitionCount returns how many partitions topic has, or 0 if the
// topic isn't in this snapshot.
func (m *ClusterMetadata) PartitionCount(topic string) int {
	return len(m.Topics[topic].Partitions)
}

// AnyBrokerAddr returns an arbitrary broker address from this snapshot,
// for requests that aren't partition-scoped (FindCoordinator, group
// coordination bootstrap).
func (m *ClusterMetadata) AnyBrokerAddr() (string, bool) {
	for _, b := range m.Brokers {
		return b.addr(), true
	}
	return "", false
}

// metadataCacheKey is the dedup key for a metadata fetch: spec.md §4.6
// says concurrent calls are coalesced by "metadata:" + sorted(topics).
// A nil/empty topic list (fetch everything) gets its own fixed key so it
// never collides with (or is served by) a narrower request.
func metadataCacheKey(topics []string) string {
	if len(topics) == 0 {
		return "metadata:*"
	}
	sorted := append([]string(nil), topics...)
	sort.Strings(sorted)
	return "metadata:" + strings.Join(sorted, ",")
}

// missingTopics reports which of topics are absent from m (forcing a
// refresh even within metadataMaxAge, per spec.md §4.6 "any inclusion of
// a not-yet-known topic also forces a refresh").
func (m *ClusterMetadata) missingTopics(topics []string) bool {
	if m == nil {
		return true
	}
	for _, t := range topics {
		if _, ok := m.Topics[t]; !ok {
			return true
		}
	}
	return false
}
