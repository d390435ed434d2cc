package kproto

import "github.com/knactor/kafka/kwire"

// OffsetCommitPartition carries the offset to commit for one partition.
// Per this library's Open Question decision, Offset here is the next
// offset to be consumed (the "offset+1" convention: a consumer that has
// processed record at offset N commits N+1).
type OffsetCommitPartition struct {
	Index     int32
	Offset    int64
	Metadata  *string
}

type OffsetCommitTopic struct {
	Name       string
	Partitions []OffsetCommitPartition
}

type OffsetCommitRequest struct {
	base
	GroupID         string
	GenerationID    int32
	MemberID        string
	GroupInstanceID *string
	Topics          []OffsetCommitTopic
}

func (r *OffsetCommitRequest) Key() int16       { return KeyOffsetCommit }
func (r *OffsetCommitRequest) IsFlexible() bool { return r.version >= 8 }

func (r *OffsetCommitRequest) AppendTo(w *kwire.Writer) {
	flex := r.IsFlexible()
	writeString(w, r.GroupID, flex)
	if r.version >= 1 {
		w.Int32(r.GenerationID)
		writeString(w, r.MemberID, flex)
	}
	if r.version >= 7 {
		writeNullableString(w, r.GroupInstanceID, flex)
	}
	if flex {
		w.CompactArrayLen(len(r.Topics), false)
	} else {
		w.ArrayLen(len(r.Topics), false)
	}
	for _, t := range r.Topics {
		writeString(w, t.Name, flex)
		if flex {
			w.CompactArrayLen(len(t.Partitions), false)
		} else {
			w.ArrayLen(len(t.Partitions), false)
		}
		for _, p := range t.Partitions {
			w.Int32(p.Index)
			w.Int64(p.Offset)
			writeNullableString(w, p.Metadata, flex)
			if flex {
				w.EmptyTags()
			}
		}
		if flex {
			w.EmptyTags()
		}
	}
	if flex {
		w.EmptyTags()
	}
}

func (r *OffsetCommitRequest) ResponseKind() Response {
	return &OffsetCommitResponse{base: base{version: r.version}}
}

type OffsetCommitPartitionResponse struct {
	Index     int32
	ErrorCode int16
}

type OffsetCommitTopicResponse struct {
	Name       string
	Partitions []OffsetCommitPartitionResponse
}

type OffsetCommitResponse struct {
	base
	ThrottleMillis int32
	Topics         []OffsetCommitTopicResponse
}

func (r *OffsetCommitResponse) Key() int16       { return KeyOffsetCommit }
func (r *OffsetCommitResponse) IsFlexible() bool  { return r.version >= 8 }
func (r *OffsetCommitResponse) Throttle() (int32, bool) { return r.ThrottleMillis, false }

func (r *OffsetCommitResponse) ReadFrom(b *kwire.Reader) error {
	flex := r.IsFlexible()
	if r.version >= 3 {
		r.ThrottleMillis = b.Int32()
	}
	nTopics := arrLen(b, flex)
	r.Topics = make([]OffsetCommitTopicResponse, 0, nTopics)
	for i := 0; i < nTopics; i++ {
		t := OffsetCommitTopicResponse{Name: readString(b, flex)}
		nParts := arrLen(b, flex)
		t.Partitions = make([]OffsetCommitPartitionResponse, 0, nParts)
		for j := 0; j < nParts; j++ {
			p := OffsetCommitPartitionResponse{Index: b.Int32(), ErrorCode: b.Int16()}
			if flex {
				b.SkipTags()
			}
			t.Partitions = append(t.Partitions, p)
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

// --- OffsetFetch ---

type OffsetFetchTopic struct {
	Name       string
	Partitions []int32
}

type OffsetFetchRequest struct {
	base
	GroupID string
	Topics  []OffsetFetchTopic // nil means "all partitions this group has committed"
}

func (r *OffsetFetchRequest) Key() int16       { return KeyOffsetFetch }
func (r *OffsetFetchRequest) IsFlexible() bool { return r.version >= 6 }

func (r *OffsetFetchRequest) AppendTo(w *kwire.Writer) {
	flex := r.IsFlexible()
	writeString(w, r.GroupID, flex)
	if flex {
		w.CompactArrayLen(len(r.Topics), r.Topics == nil)
	} else {
		w.ArrayLen(len(r.Topics), r.Topics == nil)
	}
	for _, t := range r.Topics {
		writeString(w, t.Name, flex)
		writeInt32Array(w, t.Partitions, flex)
		if flex {
			w.EmptyTags()
		}
	}
	if r.version >= 7 {
		w.Bool(true) // RequireStable
	}
	if flex {
		w.EmptyTags()
	}
}

func (r *OffsetFetchRequest) ResponseKind() Response {
	return &OffsetFetchResponse{base: base{version: r.version}}
}

type OffsetFetchPartition struct {
	Index     int32
	Offset    int64
	LeaderEpoch int32
	Metadata  *string
	ErrorCode int16
}

type OffsetFetchTopicResponse struct {
	Name       string
	Partitions []OffsetFetchPartition
}

type OffsetFetchResponse struct {
	base
	ThrottleMillis int32
	Topics         []OffsetFetchTopicResponse
	ErrorCode      int16
}

func (r *OffsetFetchResponse) Key() int16       { return KeyOffsetFetch }
func (r *OffsetFetchResponse) IsFlexible() bool  { return r.version >= 6 }
func (r *OffsetFetchResponse) Throttle() (int32, bool) { return r.ThrottleMillis, false }

func (r *OffsetFetchResponse) ReadFrom(b *kwire.Reader) error {
	flex := r.IsFlexible()
	if r.version >= 3 {
		r.ThrottleMillis = b.Int32()
	}
	nTopics := arrLen(b, flex)
	r.Topics = make([]OffsetFetchTopicResponse, 0, nTopics)
	for i := 0; i < nTopics; i++ {
		t := OffsetFetchTopicResponse{Name: readString(b, flex)}
		nParts := arrLen(b, flex)
		t.Partitions = make([]OffsetFetchPartition, 0, nParts)
		for j := 0; j < nParts; j++ {
			p := OffsetFetchPartition{Index: b.Int32(), Offset: b.Int64()}
			if r.version >= 5 {
				p.LeaderEpoch = b.Int32()
			}
			p.Metadata = readNullableString(b, flex)
			p.ErrorCode = b.Int16()
			if flex {
				b.SkipTags()
			}
			t.Partitions = append(t.Partitions, p)
		}
		if flex {
			b.SkipTags()
		}
		r.Topics = append(r.Topics, t)
	}
	if r.version >= 2 {
		r.ErrorCode = b.Int16()
	}
	if flex {
		b.SkipTags()
	}
	return b.Err()
}

// --- ListOffsets ---

const (
	ListOffsetsEarliest int64 = -2
	ListOffsetsLatest   int64 = -1
)

type ListOffsetsPartition struct {
	Index              int32
	CurrentLeaderEpoch int32
	Timestamp          int64
}

type ListOffsetsTopic struct {
	Name       string
	Partitions []ListOffsetsPartition
}

type ListOffsetsRequest struct {
	base
	ReplicaID      int32
	IsolationLevel int8
	Topics         []ListOffsetsTopic
}

func (r *ListOffsetsRequest) Key() int16       { return KeyListOffsets }
func (r *ListOffsetsRequest) IsFlexible() bool { return r.version >= 6 }

func (r *ListOffsetsRequest) AppendTo(w *kwire.Writer) {
	flex := r.IsFlexible()
	w.Int32(r.ReplicaID)
	if r.version >= 2 {
		w.Int8(r.IsolationLevel)
	}
	if flex {
		w.CompactArrayLen(len(r.Topics), false)
	} else {
		w.ArrayLen(len(r.Topics), false)
	}
	for _, t := range r.Topics {
		writeString(w, t.Name, flex)
		if flex {
			w.CompactArrayLen(len(t.Partitions), false)
		} else {
			w.ArrayLen(len(t.Partitions), false)
		}
		for _, p := range t.Partitions {
			w.Int32(p.Index)
			if r.version >= 4 {
				w.Int32(p.CurrentLeaderEpoch)
			}
			w.Int64(p.Timestamp)
			if flex {
				w.EmptyTags()
			}
		}
		if flex {
			w.EmptyTags()
		}
	}
	if flex {
		w.EmptyTags()
	}
}

func (r *ListOffsetsRequest) ResponseKind() Response {
	return &ListOffsetsResponse{base: base{version: r.version}}
}

type ListOffsetsPartitionResponse struct {
	Index       int32
	ErrorCode   int16
	Timestamp   int64
	Offset      int64
	LeaderEpoch int32
}

type ListOffsetsTopicResponse struct {
	Name       string
	Partitions []ListOffsetsPartitionResponse
}

type ListOffsetsResponse struct {
	base
	ThrottleMillis int32
	Topics         []ListOffsetsTopicResponse
}

func (r *ListOffsetsResponse) Key() int16       { return KeyListOffsets }
func (r *ListOffsetsResponse) IsFlexible() bool  { return r.version >= 6 }
func (r *ListOffsetsResponse) Throttle() (int32, bool) { return r.ThrottleMillis, false }

func (r *ListOffsetsResponse) ReadFrom(b *kwire.Reader) error {
	flex := r.IsFlexible()
	if r.version >= 2 {
		r.ThrottleMillis = b.Int32()
	}
	nTopics := arrLen(b, flex)
	r.Topics = make([]ListOffsetsTopicResponse, 0, nTopics)
	for i := 0; i < nTopics; i++ {
		t := ListOffsetsTopicResponse{Name: readString(b, flex)}
		nParts := arrLen(b, flex)
		t.Partitions = make([]ListOffsetsPartitionResponse, 0, nParts)
		for j := 0; j < nParts; j++ {
			p := ListOffsetsPartitionResponse{Index: b.Int32(), ErrorCode: b.Int16()}
			if r.version >= 1 {
				p.Timestamp = b.Int64()
				p.Offset = b.Int64()
				if r.version >= 4 {
					p.LeaderEpoch = b.Int32()
				}
			} else {
				offs := readInt32Array(b, flex) // v0: array of old-style offsets
				if len(offs) > 0 {
					p.Offset = int64(offs[0])
				}
			}
			if flex {
				b.SkipTags()
			}
			t.Partitions = append(t.Partitions, p)
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
