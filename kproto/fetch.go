package kproto

import "github.com/knactor/kafka/kwire"

type FetchPartition struct {
	Index              int32
	CurrentLeaderEpoch int32
	FetchOffset        int64
	LastFetchedEpoch   int32
	PartitionMaxBytes  int32
}

type FetchTopic struct {
	Name       string
	Partitions []FetchPartition
}

type FetchRequest struct {
	base
	ReplicaID     int32
	MaxWaitMillis int32
	MinBytes      int32
	MaxBytes      int32
	IsolationLevel int8
	SessionID     int32
	SessionEpoch  int32
	Topics        []FetchTopic
}

func (r *FetchRequest) Key() int16       { return KeyFetch }
func (r *FetchRequest) IsFlexible() bool { return r.version >= 12 }

func (r *FetchRequest) AppendTo(w *kwire.Writer) {
	flex := r.IsFlexible()
	w.Int32(r.ReplicaID)
	w.Int32(r.MaxWaitMillis)
	w.Int32(r.MinBytes)
	if r.version >= 3 {
		w.Int32(r.MaxBytes)
	}
	if r.version >= 4 {
		w.Int8(r.IsolationLevel)
	}
	if r.version >= 7 {
		w.Int32(r.SessionID)
		w.Int32(r.SessionEpoch)
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
			if r.version >= 9 {
				w.Int32(p.CurrentLeaderEpoch)
			}
			w.Int64(p.FetchOffset)
			if r.version >= 12 {
				w.Int32(p.LastFetchedEpoch)
			}
			w.Int32(p.PartitionMaxBytes)
			if flex {
				w.EmptyTags()
			}
		}
		if flex {
			w.EmptyTags()
		}
	}
	if r.version >= 7 {
		if flex {
			w.CompactArrayLen(0, false) // forgotten topics, always empty
		} else {
			w.ArrayLen(0, false)
		}
	}
	if flex {
		w.EmptyTags()
	}
}

func (r *FetchRequest) ResponseKind() Response {
	return &FetchResponse{base: base{version: r.version}}
}

// AbortedTransaction is one entry of a partition's aborted-transaction
// list: every record batch from ProducerID starting at FirstOffset was
// part of a transaction the producer aborted. A read-committed consumer
// drops those batches rather than exposing them to the caller.
type AbortedTransaction struct {
	ProducerID  int64
	FirstOffset int64
}

type FetchedPartition struct {
	Index              int32
	ErrorCode          int16
	HighWatermark      int64
	LastStableOffset   int64
	LogStartOffset     int64
	AbortedTransactions []AbortedTransaction
	RecordsBytes       []byte
}

type FetchedTopic struct {
	Name       string
	Partitions []FetchedPartition
}

type FetchResponse struct {
	base
	ThrottleMillis int32
	ErrorCode      int16
	SessionID      int32
	Topics         []FetchedTopic
}

func (r *FetchResponse) Key() int16       { return KeyFetch }
func (r *FetchResponse) IsFlexible() bool { return r.version >= 12 }
func (r *FetchResponse) Throttle() (int32, bool) { return r.ThrottleMillis, false }

func (r *FetchResponse) ReadFrom(b *kwire.Reader) error {
	flex := r.IsFlexible()
	if r.version >= 1 {
		r.ThrottleMillis = b.Int32()
	}
	if r.version >= 7 {
		r.ErrorCode = b.Int16()
		r.SessionID = b.Int32()
	}
	nTopics := arrLen(b, flex)
	r.Topics = make([]FetchedTopic, 0, nTopics)
	for i := 0; i < nTopics; i++ {
		t := FetchedTopic{Name: readString(b, flex)}
		nParts := arrLen(b, flex)
		t.Partitions = make([]FetchedPartition, 0, nParts)
		for j := 0; j < nParts; j++ {
			p := FetchedPartition{
				Index:         b.Int32(),
				ErrorCode:     b.Int16(),
				HighWatermark: b.Int64(),
			}
			if r.version >= 4 {
				p.LastStableOffset = b.Int64()
				if r.version >= 5 {
					p.LogStartOffset = b.Int64()
				}
				nAborted := arrLen(b, flex)
				p.AbortedTransactions = make([]AbortedTransaction, 0, nAborted)
				for k := 0; k < nAborted; k++ {
					at := AbortedTransaction{ProducerID: b.Int64(), FirstOffset: b.Int64()}
					if flex {
						b.SkipTags()
					}
					p.AbortedTransactions = append(p.AbortedTransactions, at)
				}
			}
			if r.version >= 11 {
				b.Int32() // preferred read replica
			}
			if flex {
				p.RecordsBytes = b.CompactBytes()
			} else {
				p.RecordsBytes = b.Bytes()
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
