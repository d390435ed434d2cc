package kproto

import "github.com/knactor/kafka/kwire"

type MetadataRequest struct {
	base
	Topics                 []string // nil means "all topics"
	AllowAutoTopicCreation bool
}

func (r *MetadataRequest) Key() int16       { return KeyMetadata }
func (r *MetadataRequest) IsFlexible() bool { return r.version >= 9 }

func (r *MetadataRequest) AppendTo(w *kwire.Writer) {
	flex := r.IsFlexible()
	if flex {
		w.CompactArrayLen(len(r.Topics), r.Topics == nil)
	} else {
		w.ArrayLen(len(r.Topics), r.Topics == nil)
	}
	for _, t := range r.Topics {
		t := t
		if flex {
			w.CompactString(&t)
			w.EmptyTags()
		} else {
			w.String(&t)
		}
	}
	if r.version >= 4 {
		w.Bool(r.AllowAutoTopicCreation)
	}
	if flex {
		w.EmptyTags()
	}
}

func (r *MetadataRequest) ResponseKind() Response {
	return &MetadataResponse{base: base{version: r.version}}
}

type MetadataBroker struct {
	NodeID int32
	Host   string
	Port   int32
	Rack   *string
}

type MetadataPartition struct {
	ErrorCode      int16
	PartitionIndex int32
	LeaderID       int32
	LeaderEpoch    int32
	ReplicaNodes   []int32
	IsrNodes       []int32
}

type MetadataTopic struct {
	ErrorCode  int16
	Name       string
	IsInternal bool
	Partitions []MetadataPartition
}

type MetadataResponse struct {
	base
	ThrottleMillis int32
	Brokers        []MetadataBroker
	ClusterID      *string
	ControllerID   int32
	Topics         []MetadataTopic
}

func (r *MetadataResponse) Key() int16       { return KeyMetadata }
func (r *MetadataResponse) IsFlexible() bool { return r.version >= 9 }
func (r *MetadataResponse) Throttle() (int32, bool) { return r.ThrottleMillis, false }

func (r *MetadataResponse) ReadFrom(b *kwire.Reader) error {
	flex := r.IsFlexible()
	if r.version >= 3 {
		r.ThrottleMillis = b.Int32()
	}

	nBrokers := arrLen(b, flex)
	r.Brokers = make([]MetadataBroker, 0, nBrokers)
	for i := 0; i < nBrokers; i++ {
		br := MetadataBroker{NodeID: b.Int32()}
		br.Host = readString(b, flex)
		br.Port = b.Int32()
		if r.version >= 1 {
			br.Rack = readNullableString(b, flex)
		}
		if flex {
			b.SkipTags()
		}
		r.Brokers = append(r.Brokers, br)
	}

	if r.version >= 2 {
		r.ClusterID = readNullableString(b, flex)
	}
	if r.version >= 1 {
		r.ControllerID = b.Int32()
	}

	nTopics := arrLen(b, flex)
	r.Topics = make([]MetadataTopic, 0, nTopics)
	for i := 0; i < nTopics; i++ {
		t := MetadataTopic{ErrorCode: b.Int16()}
		t.Name = readString(b, flex)
		if r.version >= 1 {
			t.IsInternal = b.Bool()
		}
		nParts := arrLen(b, flex)
		t.Partitions = make([]MetadataPartition, 0, nParts)
		for j := 0; j < nParts; j++ {
			p := MetadataPartition{
				ErrorCode:      b.Int16(),
				PartitionIndex: b.Int32(),
				LeaderID:       b.Int32(),
			}
			if r.version >= 7 {
				p.LeaderEpoch = b.Int32()
			}
			p.ReplicaNodes = readInt32Array(b, flex)
			p.IsrNodes = readInt32Array(b, flex)
			if r.version >= 5 {
				_ = readInt32Array(b, flex) // offline replicas, unused
			}
			if flex {
				b.SkipTags()
			}
			t.Partitions = append(t.Partitions, p)
		}
		if r.version >= 8 {
			b.Int32() // topic authorized operations, unused
		}
		if flex {
			b.SkipTags()
		}
		r.Topics = append(r.Topics, t)
	}
	if flex {
		b.SkipTags()
	}
	return b.Err()
}

// --- shared flexible/legacy helpers used across kproto types ---

func arrLen(b *kwire.Reader, flex bool) int {
	if flex {
		n, _ := b.CompactArrayLen()
		return n
	}
	n, _ := b.ArrayLen()
	return n
}

func readString(b *kwire.Reader, flex bool) string {
	if flex {
		s := b.CompactString()
		if s == nil {
			return ""
		}
		return *s
	}
	s := b.String()
	if s == nil {
		return ""
	}
	return *s
}

func readNullableString(b *kwire.Reader, flex bool) *string {
	if flex {
		return b.CompactString()
	}
	return b.String()
}

func writeString(w *kwire.Writer, s string, flex bool) {
	if flex {
		w.CompactString(&s)
	} else {
		w.String(&s)
	}
}

func readInt32Array(b *kwire.Reader, flex bool) []int32 {
	n := arrLen(b, flex)
	out := make([]int32, n)
	for i := range out {
		out[i] = b.Int32()
	}
	return out
}

func writeInt32Array(w *kwire.Writer, vals []int32, flex bool) {
	if flex {
		w.CompactArrayLen(len(vals), vals == nil)
	} else {
		w.ArrayLen(len(vals), vals == nil)
	}
	for _, v := range vals {
		w.Int32(v)
	}
}
