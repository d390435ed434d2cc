package kproto

import "github.com/knactor/kafka/kwire"

type CreatableReplicaAssignment struct {
	PartitionIndex int32
	BrokerIDs      []int32
}

type CreatableTopicConfig struct {
	Name  string
	Value *string
}

type CreatableTopic struct {
	Name              string
	NumPartitions     int32
	ReplicationFactor int16
	Assignments       []CreatableReplicaAssignment
	Configs           []CreatableTopicConfig
}

type CreateTopicsRequest struct {
	base
	Topics       []CreatableTopic
	TimeoutMs    int32
	ValidateOnly bool
}

func (r *CreateTopicsRequest) Key() int16       { return KeyCreateTopics }
func (r *CreateTopicsRequest) IsFlexible() bool { return r.version >= 5 }

func (r *CreateTopicsRequest) AppendTo(w *kwire.Writer) {
	flex := r.IsFlexible()
	if flex {
		w.CompactArrayLen(len(r.Topics), false)
	} else {
		w.ArrayLen(len(r.Topics), false)
	}
	for _, t := range r.Topics {
		writeString(w, t.Name, flex)
		w.Int32(t.NumPartitions)
		w.Int16(t.ReplicationFactor)
		if flex {
			w.CompactArrayLen(len(t.Assignments), false)
		} else {
			w.ArrayLen(len(t.Assignments), false)
		}
		for _, a := range t.Assignments {
			w.Int32(a.PartitionIndex)
			writeInt32Array(w, a.BrokerIDs, flex)
			if flex {
				w.EmptyTags()
			}
		}
		if flex {
			w.CompactArrayLen(len(t.Configs), false)
		} else {
			w.ArrayLen(len(t.Configs), false)
		}
		for _, c := range t.Configs {
			writeString(w, c.Name, flex)
			writeNullableString(w, c.Value, flex)
			if flex {
				w.EmptyTags()
			}
		}
		if flex {
			w.EmptyTags()
		}
	}
	w.Int32(r.TimeoutMs)
	if r.version >= 1 {
		w.Bool(r.ValidateOnly)
	}
	if flex {
		w.EmptyTags()
	}
}

func (r *CreateTopicsRequest) ResponseKind() Response {
	return &CreateTopicsResponse{base: base{version: r.version}}
}

type CreatableTopicResult struct {
	Name          string
	ErrorCode     int16
	ErrorMessage  *string
	NumPartitions int32
}

type CreateTopicsResponse struct {
	base
	ThrottleMillis int32
	Topics         []CreatableTopicResult
}

func (r *CreateTopicsResponse) Key() int16       { return KeyCreateTopics }
func (r *CreateTopicsResponse) IsFlexible() bool  { return r.version >= 5 }
func (r *CreateTopicsResponse) Throttle() (int32, bool) { return r.ThrottleMillis, false }

func (r *CreateTopicsResponse) ReadFrom(b *kwire.Reader) error {
	flex := r.IsFlexible()
	if r.version >= 2 {
		r.ThrottleMillis = b.Int32()
	}
	n := arrLen(b, flex)
	r.Topics = make([]CreatableTopicResult, 0, n)
	for i := 0; i < n; i++ {
		t := CreatableTopicResult{Name: readString(b, flex), ErrorCode: b.Int16()}
		if r.version >= 1 {
			t.ErrorMessage = readNullableString(b, flex)
		}
		if r.version >= 5 {
			t.NumPartitions = b.Int32()
			b.Int16() // replication factor, unused
			cfgN := arrLen(b, flex)
			for j := 0; j < cfgN; j++ {
				readString(b, flex)
				readNullableString(b, flex)
				b.Bool()
				b.Int8()
				b.Bool()
				if flex {
					b.SkipTags()
				}
			}
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

// --- DeleteTopics ---

type DeleteTopicsRequest struct {
	base
	TopicNames []string
	TimeoutMs  int32
}

func (r *DeleteTopicsRequest) Key() int16       { return KeyDeleteTopics }
func (r *DeleteTopicsRequest) IsFlexible() bool { return r.version >= 4 }

func (r *DeleteTopicsRequest) AppendTo(w *kwire.Writer) {
	flex := r.IsFlexible()
	if flex {
		w.CompactArrayLen(len(r.TopicNames), false)
	} else {
		w.ArrayLen(len(r.TopicNames), false)
	}
	for _, name := range r.TopicNames {
		writeString(w, name, flex)
		if flex {
			w.EmptyTags()
		}
	}
	w.Int32(r.TimeoutMs)
	if flex {
		w.EmptyTags()
	}
}

func (r *DeleteTopicsRequest) ResponseKind() Response {
	return &DeleteTopicsResponse{base: base{version: r.version}}
}

type DeletableTopicResult struct {
	Name         string
	ErrorCode    int16
	ErrorMessage *string
}

type DeleteTopicsResponse struct {
	base
	ThrottleMillis int32
	Responses      []DeletableTopicResult
}

func (r *DeleteTopicsResponse) Key() int16       { return KeyDeleteTopics }
func (r *DeleteTopicsResponse) IsFlexible() bool  { return r.version >= 4 }
func (r *DeleteTopicsResponse) Throttle() (int32, bool) { return r.ThrottleMillis, false }

func (r *DeleteTopicsResponse) ReadFrom(b *kwire.Reader) error {
	flex := r.IsFlexible()
	r.ThrottleMillis = b.Int32()
	n := arrLen(b, flex)
	r.Responses = make([]DeletableTopicResult, 0, n)
	for i := 0; i < n; i++ {
		t := DeletableTopicResult{Name: readString(b, flex), ErrorCode: b.Int16()}
		if r.version >= 5 {
			t.ErrorMessage = readNullableString(b, flex)
		}
		if flex {
			b.SkipTags()
		}
		r.Responses = append(r.Responses, t)
	}
	if flex {
		b.SkipTags()
	}
	return b.Err()
}

// --- CreatePartitions ---

type CreatePartitionsAssignment struct {
	BrokerIDs []int32
}

type CreatePartitionsTopic struct {
	Name        string
	Count       int32
	Assignments []CreatePartitionsAssignment
}

type CreatePartitionsRequest struct {
	base
	Topics       []CreatePartitionsTopic
	TimeoutMs    int32
	ValidateOnly bool
}

func (r *CreatePartitionsRequest) Key() int16       { return KeyCreatePartitions }
func (r *CreatePartitionsRequest) IsFlexible() bool { return r.version >= 2 }

func (r *CreatePartitionsRequest) AppendTo(w *kwire.Writer) {
	flex := r.IsFlexible()
	if flex {
		w.CompactArrayLen(len(r.Topics), false)
	} else {
		w.ArrayLen(len(r.Topics), false)
	}
	for _, t := range r.Topics {
		writeString(w, t.Name, flex)
		w.Int32(t.Count)
		if flex {
			w.CompactArrayLen(len(t.Assignments), t.Assignments == nil)
		} else {
			w.ArrayLen(len(t.Assignments), t.Assignments == nil)
		}
		for _, a := range t.Assignments {
			writeInt32Array(w, a.BrokerIDs, flex)
			if flex {
				w.EmptyTags()
			}
		}
		if flex {
			w.EmptyTags()
		}
	}
	w.Int32(r.TimeoutMs)
	w.Bool(r.ValidateOnly)
	if flex {
		w.EmptyTags()
	}
}

func (r *CreatePartitionsRequest) ResponseKind() Response {
	return &CreatePartitionsResponse{base: base{version: r.version}}
}

type CreatePartitionsTopicResult struct {
	Name         string
	ErrorCode    int16
	ErrorMessage *string
}

type CreatePartitionsResponse struct {
	base
	ThrottleMillis int32
	Results        []CreatePartitionsTopicResult
}

func (r *CreatePartitionsResponse) Key() int16       { return KeyCreatePartitions }
func (r *CreatePartitionsResponse) IsFlexible() bool  { return r.version >= 2 }
func (r *CreatePartitionsResponse) Throttle() (int32, bool) { return r.ThrottleMillis, false }

func (r *CreatePartitionsResponse) ReadFrom(b *kwire.Reader) error {
	flex := r.IsFlexible()
	r.ThrottleMillis = b.Int32()
	n := arrLen(b, flex)
	r.Results = make([]CreatePartitionsTopicResult, 0, n)
	for i := 0; i < n; i++ {
		t := CreatePartitionsTopicResult{Name: readString(b, flex), ErrorCode: b.Int16()}
		t.ErrorMessage = readNullableString(b, flex)
		if flex {
			b.SkipTags()
		}
		r.Results = append(r.Results, t)
	}
	if flex {
		b.SkipTags()
	}
	return b.Err()
}
