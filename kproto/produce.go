package kproto

import "github.com/knactor/kafka/kwire"

type ProducePartitionData struct {
	Index        int32
	RecordsBytes []byte // a pre-encoded krecord batch
}

type ProduceTopicData struct {
	Name       string
	Partitions []ProducePartitionData
}

type ProduceRequest struct {
	base
	TransactionalID *string
	Acks            int16
	TimeoutMillis   int32
	Topics          []ProduceTopicData
}

func (r *ProduceRequest) Key() int16       { return KeyProduce }
func (r *ProduceRequest) IsFlexible() bool { return r.version >= 9 }

// NoResponse reports whether the broker sends no reply frame at all for
// this request. A real broker never sends a Produce response when
// acks=0; the connection layer type-switches for this method to avoid
// waiting on a correlation id that will never arrive.
func (r *ProduceRequest) NoResponse() bool { return r.Acks == 0 }

func (r *ProduceRequest) AppendTo(w *kwire.Writer) {
	flex := r.IsFlexible()
	if r.version >= 3 {
		if flex {
			w.CompactString(r.TransactionalID)
		} else {
			w.String(r.TransactionalID)
		}
	}
	w.Int16(r.Acks)
	w.Int32(r.TimeoutMillis)
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
			if flex {
				w.CompactBytes(p.RecordsBytes)
			} else {
				w.NullableBytes(p.RecordsBytes)
			}
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

func (r *ProduceRequest) ResponseKind() Response {
	return &ProduceResponse{base: base{version: r.version}}
}

type ProducePartitionResponse struct {
	Index           int32
	ErrorCode       int16
	BaseOffset      int64
	LogAppendTime   int64
	LogStartOffset  int64
}

type ProduceTopicResponse struct {
	Name       string
	Partitions []ProducePartitionResponse
}

type ProduceResponse struct {
	base
	Topics         []ProduceTopicResponse
	ThrottleMillis int32
}

func (r *ProduceResponse) Key() int16       { return KeyProduce }
func (r *ProduceResponse) IsFlexible() bool { return r.version >= 9 }
func (r *ProduceResponse) Throttle() (int32, bool) { return r.ThrottleMillis, false }

func (r *ProduceResponse) ReadFrom(b *kwire.Reader) error {
	flex := r.IsFlexible()
	nTopics := arrLen(b, flex)
	r.Topics = make([]ProduceTopicResponse, 0, nTopics)
	for i := 0; i < nTopics; i++ {
		t := ProduceTopicResponse{Name: readString(b, flex)}
		nParts := arrLen(b, flex)
		t.Partitions = make([]ProducePartitionResponse, 0, nParts)
		for j := 0; j < nParts; j++ {
			p := ProducePartitionResponse{
				Index:      b.Int32(),
				ErrorCode:  b.Int16(),
				BaseOffset: b.Int64(),
			}
			if r.version >= 2 {
				p.LogAppendTime = b.Int64()
			}
			if r.version >= 5 {
				p.LogStartOffset = b.Int64()
			}
			if r.version >= 8 {
				n := arrLen(b, flex) // record errors, unused detail
				for k := 0; k < n; k++ {
					b.Int32()
					_ = readNullableString(b, flex)
					if flex {
						b.SkipTags()
					}
				}
				_ = readNullableString(b, flex) // error message
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
	if r.version >= 1 {
		r.ThrottleMillis = b.Int32()
	}
	if flex {
		b.SkipTags()
	}
	return b.Err()
}
