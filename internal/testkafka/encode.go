package testkafka

import (
	"github.com/knactor/kafka/kwire"
)

// writeStr writes a string using flex's string encoding (compact vs.
// legacy), mirroring kproto's own unexported writeString helper — kept
// here rather than imported since kproto doesn't export it.
func writeStr(w *kwire.Writer, s string, flex bool) {
	if flex {
		w.CompactString(&s)
	} else {
		w.String(&s)
	}
}

func writeNullableStr(w *kwire.Writer, s *string, flex bool) {
	if flex {
		w.CompactString(s)
	} else {
		w.String(s)
	}
}

func writeArrLen(w *kwire.Writer, n int, flex bool) {
	if flex {
		w.CompactArrayLen(n, false)
	} else {
		w.ArrayLen(n, false)
	}
}

func tagsIfFlex(w *kwire.Writer, flex bool) {
	if flex {
		w.EmptyTags()
	}
}

// MetadataBroker is one broker entry of a scripted MetadataResponse.
type MetadataBroker struct {
	NodeID int32
	Host   string
	Port   int32
}

// MetadataPartition is one partition entry of a scripted topic.
type MetadataPartition struct {
	Index    int32
	Leader   int32
	Replicas []int32
	Isr      []int32
}

// MetadataTopic is one topic entry of a scripted MetadataResponse.
type MetadataTopic struct {
	Name       string
	Partitions []MetadataPartition
}

// EncodeMetadataResponse builds a MetadataResponse body for version,
// matching kproto.MetadataResponse.ReadFrom field-for-field.
func EncodeMetadataResponse(version int16, controllerID int32, brokers []MetadataBroker, topics []MetadataTopic) []byte {
	flex := version >= 9
	w := kwire.NewWriter(256)
	if version >= 3 {
		w.Int32(0) // throttle millis
	}
	writeArrLen(w, len(brokers), flex)
	for _, b := range brokers {
		w.Int32(b.NodeID)
		writeStr(w, b.Host, flex)
		w.Int32(b.Port)
		if version >= 1 {
			writeNullableStr(w, nil, flex) // rack
		}
		tagsIfFlex(w, flex)
	}
	if version >= 2 {
		clusterID := ""
		writeNullableStr(w, &clusterID, flex)
	}
	if version >= 1 {
		w.Int32(controllerID)
	}
	writeArrLen(w, len(topics), flex)
	for _, t := range topics {
		w.Int16(0) // error code
		writeStr(w, t.Name, flex)
		if version >= 10 {
			w.UUID([16]byte{})
		}
		if version >= 1 {
			w.Bool(false) // is internal
		}
		writeArrLen(w, len(t.Partitions), flex)
		for _, p := range t.Partitions {
			w.Int16(0) // error code
			w.Int32(p.Index)
			w.Int32(p.Leader)
			if version >= 7 {
				w.Int32(0) // leader epoch
			}
			writeArrLen(w, len(p.Replicas), flex)
			for _, r := range p.Replicas {
				w.Int32(r)
			}
			writeArrLen(w, len(p.Isr), flex)
			for _, r := range p.Isr {
				w.Int32(r)
			}
			if version >= 5 {
				writeArrLen(w, 0, flex) // offline replicas
			}
			tagsIfFlex(w, flex)
		}
		if version >= 8 {
			w.Int32(0) // topic authorized operations
		}
		tagsIfFlex(w, flex)
	}
	tagsIfFlex(w, flex)
	return w.Bytes()
}

// ProducedPartition is one partition's result in a scripted
// ProduceResponse.
type ProducedPartition struct {
	Index      int32
	ErrorCode  int16
	BaseOffset int64
}

// EncodeProduceResponse builds a ProduceResponse body for version.
func EncodeProduceResponse(version int16, topic string, partitions []ProducedPartition) []byte {
	flex := version >= 9
	w := kwire.NewWriter(128)
	writeArrLen(w, 1, flex)
	writeStr(w, topic, flex)
	writeArrLen(w, len(partitions), flex)
	for _, p := range partitions {
		w.Int32(p.Index)
		w.Int16(p.ErrorCode)
		w.Int64(p.BaseOffset)
		if version >= 2 {
			w.Int64(-1) // log append time
		}
		if version >= 5 {
			w.Int64(0) // log start offset
		}
		if version >= 8 {
			writeArrLen(w, 0, flex) // record errors
			writeNullableStr(w, nil, flex)
		}
		tagsIfFlex(w, flex)
	}
	tagsIfFlex(w, flex)
	if version >= 1 {
		w.Int32(0) // throttle millis
	}
	tagsIfFlex(w, flex)
	return w.Bytes()
}

// FetchedRecord is one partition's fetched payload in a scripted
// FetchResponse: recordsBytes is a pre-encoded krecord batch (build one
// with krecord.Encode).
type FetchedRecord struct {
	Index         int32
	HighWatermark int64
	RecordsBytes  []byte
}

// EncodeFetchResponse builds a FetchResponse body for version, one topic
// with the given per-partition payloads.
func EncodeFetchResponse(version int16, topic string, partitions []FetchedRecord) []byte {
	flex := version >= 12
	w := kwire.NewWriter(256)
	if version >= 1 {
		w.Int32(0) // throttle millis
	}
	if version >= 7 {
		w.Int16(0) // error code
		w.Int32(0) // session id
	}
	writeArrLen(w, 1, flex)
	writeStr(w, topic, flex)
	writeArrLen(w, len(partitions), flex)
	for _, p := range partitions {
		w.Int32(p.Index)
		w.Int16(0) // error code
		w.Int64(p.HighWatermark)
		if version >= 4 {
			w.Int64(p.HighWatermark) // last stable offset
			if version >= 5 {
				w.Int64(0) // log start offset
			}
			writeArrLen(w, 0, flex) // aborted transactions
		}
		if version >= 11 {
			w.Int32(-1) // preferred read replica
		}
		if flex {
			w.CompactBytes(p.RecordsBytes)
		} else {
			w.NullableBytes(p.RecordsBytes)
		}
		tagsIfFlex(w, flex)
	}
	tagsIfFlex(w, flex)
	return w.Bytes()
}

// EncodeFindCoordinatorResponse builds a FindCoordinatorResponse body
// for version, naming the single coordinator broker.
func EncodeFindCoordinatorResponse(version int16, nodeID int32, host string, port int32) []byte {
	flex := version >= 3
	w := kwire.NewWriter(64)
	if version >= 1 {
		w.Int32(0) // throttle millis
	}
	w.Int16(0) // error code
	if version >= 1 {
		writeNullableStr(w, nil, flex) // error message
	}
	w.Int32(nodeID)
	writeStr(w, host, flex)
	w.Int32(port)
	tagsIfFlex(w, flex)
	return w.Bytes()
}

// EncodeJoinGroupResponse builds a JoinGroupResponse body for version.
// members is non-empty only for the group leader's response; metadata
// bytes are the raw ConsumerProtocolSubscription payload the caller
// built (e.g. with the consumer group's own encodeSubscription).
func EncodeJoinGroupResponse(version int16, generationID int32, protocol, leaderID, memberID string, members map[string][]byte) []byte {
	flex := version >= 6
	w := kwire.NewWriter(128)
	if version >= 2 {
		w.Int32(0) // throttle millis
	}
	w.Int16(0) // error code
	w.Int32(generationID)
	writeStr(w, protocol, flex)
	writeStr(w, leaderID, flex)
	writeStr(w, memberID, flex)
	writeArrLen(w, len(members), flex)
	for id, meta := range members {
		writeStr(w, id, flex)
		if version >= 5 {
			writeNullableStr(w, nil, flex) // group instance id
		}
		if flex {
			w.CompactBytes(meta)
		} else {
			w.NullableBytes(meta)
		}
		tagsIfFlex(w, flex)
	}
	tagsIfFlex(w, flex)
	return w.Bytes()
}

// EncodeSyncGroupResponse builds a SyncGroupResponse body for version
// carrying this member's assignment payload.
func EncodeSyncGroupResponse(version int16, assignment []byte) []byte {
	flex := version >= 4
	w := kwire.NewWriter(64)
	if version >= 1 {
		w.Int32(0) // throttle millis
	}
	w.Int16(0) // error code
	if version >= 5 {
		writeNullableStr(w, nil, flex) // protocol type
		writeNullableStr(w, nil, flex) // protocol name
	}
	if flex {
		w.CompactBytes(assignment)
	} else {
		w.NullableBytes(assignment)
	}
	tagsIfFlex(w, flex)
	return w.Bytes()
}

// EncodeHeartbeatResponse builds a HeartbeatResponse body with the given
// error code (0 for success, kerr-table codes like 27 for
// RebalanceInProgress).
func EncodeHeartbeatResponse(version int16, errorCode int16) []byte {
	flex := version >= 4
	w := kwire.NewWriter(16)
	if version >= 1 {
		w.Int32(0) // throttle millis
	}
	w.Int16(errorCode)
	tagsIfFlex(w, flex)
	return w.Bytes()
}

// EncodeLeaveGroupResponse builds a LeaveGroupResponse body.
func EncodeLeaveGroupResponse(version int16) []byte {
	flex := version >= 4
	w := kwire.NewWriter(16)
	if version >= 1 {
		w.Int32(0) // throttle millis
	}
	w.Int16(0) // error code
	tagsIfFlex(w, flex)
	return w.Bytes()
}

// EncodeOffsetCommitResponse builds an OffsetCommitResponse body for a
// single topic whose partitions all succeed.
func EncodeOffsetCommitResponse(version int16, topic string, partitions []int32) []byte {
	flex := version >= 8
	w := kwire.NewWriter(64)
	if version >= 3 {
		w.Int32(0) // throttle millis
	}
	writeArrLen(w, 1, flex)
	writeStr(w, topic, flex)
	writeArrLen(w, len(partitions), flex)
	for _, idx := range partitions {
		w.Int32(idx)
		w.Int16(0) // error code
		tagsIfFlex(w, flex)
	}
	tagsIfFlex(w, flex)
	tagsIfFlex(w, flex)
	return w.Bytes()
}

// CreatedTopic is one topic's result in a scripted CreateTopicsResponse.
type CreatedTopic struct {
	Name          string
	ErrorCode     int16
	NumPartitions int32
}

// EncodeCreateTopicsResponse builds a CreateTopicsResponse body for
// version.
func EncodeCreateTopicsResponse(version int16, topics []CreatedTopic) []byte {
	flex := version >= 5
	w := kwire.NewWriter(64)
	if version >= 2 {
		w.Int32(0) // throttle millis
	}
	writeArrLen(w, len(topics), flex)
	for _, t := range topics {
		writeStr(w, t.Name, flex)
		w.Int16(t.ErrorCode)
		if version >= 1 {
			writeNullableStr(w, nil, flex) // error message
		}
		if version >= 5 {
			w.Int32(t.NumPartitions)
			w.Int16(-1)             // replication factor, unused by this fake
			writeArrLen(w, 0, flex) // configs
		}
		tagsIfFlex(w, flex)
	}
	tagsIfFlex(w, flex)
	return w.Bytes()
}

// DeletedTopic is one topic's result in a scripted DeleteTopicsResponse.
type DeletedTopic struct {
	Name      string
	ErrorCode int16
}

// EncodeDeleteTopicsResponse builds a DeleteTopicsResponse body for
// version.
func EncodeDeleteTopicsResponse(version int16, topics []DeletedTopic) []byte {
	flex := version >= 4
	w := kwire.NewWriter(64)
	w.Int32(0) // throttle millis
	writeArrLen(w, len(topics), flex)
	for _, t := range topics {
		writeStr(w, t.Name, flex)
		w.Int16(t.ErrorCode)
		if version >= 5 {
			writeNullableStr(w, nil, flex) // error message
		}
		tagsIfFlex(w, flex)
	}
	tagsIfFlex(w, flex)
	return w.Bytes()
}

// EncodeInitProducerIDResponse builds an InitProducerIdResponse body.
func EncodeInitProducerIDResponse(version int16, producerID int64, producerEpoch int16) []byte {
	flex := version >= 2
	w := kwire.NewWriter(32)
	w.Int32(0) // throttle millis
	w.Int16(0) // error code
	w.Int64(producerID)
	w.Int16(producerEpoch)
	tagsIfFlex(w, flex)
	return w.Bytes()
}
