package kproto

import "github.com/knactor/kafka/kwire"

type InitProducerIDRequest struct {
	base
	TransactionalID      *string
	TransactionTimeoutMs int32
	ProducerID           int64
	ProducerEpoch        int16
}

func (r *InitProducerIDRequest) Key() int16       { return KeyInitProducerId }
func (r *InitProducerIDRequest) IsFlexible() bool { return r.version >= 2 }

func (r *InitProducerIDRequest) AppendTo(w *kwire.Writer) {
	flex := r.IsFlexible()
	writeNullableString(w, r.TransactionalID, flex)
	w.Int32(r.TransactionTimeoutMs)
	if r.version >= 3 {
		w.Int64(r.ProducerID)
		w.Int16(r.ProducerEpoch)
	}
	if flex {
		w.EmptyTags()
	}
}

func (r *InitProducerIDRequest) ResponseKind() Response {
	return &InitProducerIDResponse{base: base{version: r.version}}
}

type InitProducerIDResponse struct {
	base
	ThrottleMillis int32
	ErrorCode      int16
	ProducerID     int64
	ProducerEpoch  int16
}

func (r *InitProducerIDResponse) Key() int16       { return KeyInitProducerId }
func (r *InitProducerIDResponse) IsFlexible() bool  { return r.version >= 2 }
func (r *InitProducerIDResponse) Throttle() (int32, bool) { return r.ThrottleMillis, false }

func (r *InitProducerIDResponse) ReadFrom(b *kwire.Reader) error {
	r.ThrottleMillis = b.Int32()
	r.ErrorCode = b.Int16()
	r.ProducerID = b.Int64()
	r.ProducerEpoch = b.Int16()
	if r.IsFlexible() {
		b.SkipTags()
	}
	return b.Err()
}

// --- AddPartitionsToTxn ---

type AddPartitionsToTxnTopic struct {
	Name       string
	Partitions []int32
}

type AddPartitionsToTxnRequest struct {
	base
	TransactionalID string
	ProducerID      int64
	ProducerEpoch   int16
	Topics          []AddPartitionsToTxnTopic
}

func (r *AddPartitionsToTxnRequest) Key() int16       { return KeyAddPartitionsToTxn }
func (r *AddPartitionsToTxnRequest) IsFlexible() bool { return r.version >= 3 }

func (r *AddPartitionsToTxnRequest) AppendTo(w *kwire.Writer) {
	flex := r.IsFlexible()
	writeString(w, r.TransactionalID, flex)
	w.Int64(r.ProducerID)
	w.Int16(r.ProducerEpoch)
	if flex {
		w.CompactArrayLen(len(r.Topics), false)
	} else {
		w.ArrayLen(len(r.Topics), false)
	}
	for _, t := range r.Topics {
		writeString(w, t.Name, flex)
		writeInt32Array(w, t.Partitions, flex)
		if flex {
			w.EmptyTags()
		}
	}
	if flex {
		w.EmptyTags()
	}
}

func (r *AddPartitionsToTxnRequest) ResponseKind() Response {
	return &AddPartitionsToTxnResponse{base: base{version: r.version}}
}

type AddPartitionsToTxnPartitionResult struct {
	Index     int32
	ErrorCode int16
}

type AddPartitionsToTxnTopicResult struct {
	Name       string
	Partitions []AddPartitionsToTxnPartitionResult
}

type AddPartitionsToTxnResponse struct {
	base
	ThrottleMillis int32
	Topics         []AddPartitionsToTxnTopicResult
}

func (r *AddPartitionsToTxnResponse) Key() int16       { return KeyAddPartitionsToTxn }
func (r *AddPartitionsToTxnResponse) IsFlexible() bool  { return r.version >= 3 }
func (r *AddPartitionsToTxnResponse) Throttle() (int32, bool) { return r.ThrottleMillis, false }

func (r *AddPartitionsToTxnResponse) ReadFrom(b *kwire.Reader) error {
	flex := r.IsFlexible()
	r.ThrottleMillis = b.Int32()
	nTopics := arrLen(b, flex)
	r.Topics = make([]AddPartitionsToTxnTopicResult, 0, nTopics)
	for i := 0; i < nTopics; i++ {
		t := AddPartitionsToTxnTopicResult{Name: readString(b, flex)}
		nParts := arrLen(b, flex)
		t.Partitions = make([]AddPartitionsToTxnPartitionResult, 0, nParts)
		for j := 0; j < nParts; j++ {
			p := AddPartitionsToTxnPartitionResult{Index: b.Int32(), ErrorCode: b.Int16()}
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

// --- AddOffsetsToTxn ---

type AddOffsetsToTxnRequest struct {
	base
	TransactionalID string
	ProducerID      int64
	ProducerEpoch   int16
	GroupID         string
}

func (r *AddOffsetsToTxnRequest) Key() int16       { return KeyAddOffsetsToTxn }
func (r *AddOffsetsToTxnRequest) IsFlexible() bool { return r.version >= 3 }

func (r *AddOffsetsToTxnRequest) AppendTo(w *kwire.Writer) {
	flex := r.IsFlexible()
	writeString(w, r.TransactionalID, flex)
	w.Int64(r.ProducerID)
	w.Int16(r.ProducerEpoch)
	writeString(w, r.GroupID, flex)
	if flex {
		w.EmptyTags()
	}
}

func (r *AddOffsetsToTxnRequest) ResponseKind() Response {
	return &AddOffsetsToTxnResponse{base: base{version: r.version}}
}

type AddOffsetsToTxnResponse struct {
	base
	ThrottleMillis int32
	ErrorCode      int16
}

func (r *AddOffsetsToTxnResponse) Key() int16       { return KeyAddOffsetsToTxn }
func (r *AddOffsetsToTxnResponse) IsFlexible() bool  { return r.version >= 3 }
func (r *AddOffsetsToTxnResponse) Throttle() (int32, bool) { return r.ThrottleMillis, false }

func (r *AddOffsetsToTxnResponse) ReadFrom(b *kwire.Reader) error {
	r.ThrottleMillis = b.Int32()
	r.ErrorCode = b.Int16()
	if r.IsFlexible() {
		b.SkipTags()
	}
	return b.Err()
}

// --- EndTxn ---

type EndTxnRequest struct {
	base
	TransactionalID string
	ProducerID      int64
	ProducerEpoch   int16
	Committed       bool
}

func (r *EndTxnRequest) Key() int16       { return KeyEndTxn }
func (r *EndTxnRequest) IsFlexible() bool { return r.version >= 3 }

func (r *EndTxnRequest) AppendTo(w *kwire.Writer) {
	flex := r.IsFlexible()
	writeString(w, r.TransactionalID, flex)
	w.Int64(r.ProducerID)
	w.Int16(r.ProducerEpoch)
	w.Bool(r.Committed)
	if flex {
		w.EmptyTags()
	}
}

func (r *EndTxnRequest) ResponseKind() Response {
	return &EndTxnResponse{base: base{version: r.version}}
}

type EndTxnResponse struct {
	base
	ThrottleMillis int32
	ErrorCode      int16
}

func (r *EndTxnResponse) Key() int16       { return KeyEndTxn }
func (r *EndTxnResponse) IsFlexible() bool  { return r.version >= 3 }
func (r *EndTxnResponse) Throttle() (int32, bool) { return r.ThrottleMillis, false }

func (r *EndTxnResponse) ReadFrom(b *kwire.Reader) error {
	r.ThrottleMillis = b.Int32()
	r.ErrorCode = b.Int16()
	if r.IsFlexible() {
		b.SkipTags()
	}
	return b.Err()
}

// --- TxnOffsetCommit ---

type TxnOffsetCommitPartition struct {
	Index    int32
	Offset   int64
	Metadata *string
}

type TxnOffsetCommitTopic struct {
	Name       string
	Partitions []TxnOffsetCommitPartition
}

type TxnOffsetCommitRequest struct {
	base
	TransactionalID string
	GroupID         string
	ProducerID      int64
	ProducerEpoch   int16
	Topics          []TxnOffsetCommitTopic
}

func (r *TxnOffsetCommitRequest) Key() int16       { return KeyTxnOffsetCommit }
func (r *TxnOffsetCommitRequest) IsFlexible() bool { return r.version >= 3 }

func (r *TxnOffsetCommitRequest) AppendTo(w *kwire.Writer) {
	flex := r.IsFlexible()
	writeString(w, r.TransactionalID, flex)
	writeString(w, r.GroupID, flex)
	w.Int64(r.ProducerID)
	w.Int16(r.ProducerEpoch)
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

func (r *TxnOffsetCommitRequest) ResponseKind() Response {
	return &TxnOffsetCommitResponse{base: base{version: r.version}}
}

type TxnOffsetCommitResponse struct {
	base
	ThrottleMillis int32
	Topics         []OffsetCommitTopicResponse
}

func (r *TxnOffsetCommitResponse) Key() int16       { return KeyTxnOffsetCommit }
func (r *TxnOffsetCommitResponse) IsFlexible() bool  { return r.version >= 3 }
func (r *TxnOffsetCommitResponse) Throttle() (int32, bool) { return r.ThrottleMillis, false }

func (r *TxnOffsetCommitResponse) ReadFrom(b *kwire.Reader) error {
	flex := r.IsFlexible()
	r.ThrottleMillis = b.Int32()
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
