package kproto

import "github.com/knactor/kafka/kwire"

type DeleteRecordsPartition struct {
	Index      int32
	BeforeOffset int64
}

type DeleteRecordsTopic struct {
	Name       string
	Partitions []DeleteRecordsPartition
}

type DeleteRecordsRequest struct {
	base
	Topics    []DeleteRecordsTopic
	TimeoutMs int32
}

func (r *DeleteRecordsRequest) Key() int16       { return KeyDeleteRecords }
func (r *DeleteRecordsRequest) IsFlexible() bool { return false }

func (r *DeleteRecordsRequest) AppendTo(w *kwire.Writer) {
	w.ArrayLen(len(r.Topics), false)
	for _, t := range r.Topics {
		w.String(&t.Name)
		w.ArrayLen(len(t.Partitions), false)
		for _, p := range t.Partitions {
			w.Int32(p.Index)
			w.Int64(p.BeforeOffset)
		}
	}
	w.Int32(r.TimeoutMs)
}

func (r *DeleteRecordsRequest) ResponseKind() Response {
	return &DeleteRecordsResponse{base: base{version: r.version}}
}

type DeleteRecordsPartitionResult struct {
	Index          int32
	LowWatermark   int64
	ErrorCode      int16
}

type DeleteRecordsTopicResult struct {
	Name       string
	Partitions []DeleteRecordsPartitionResult
}

type DeleteRecordsResponse struct {
	base
	ThrottleMillis int32
	Topics         []DeleteRecordsTopicResult
}

func (r *DeleteRecordsResponse) Key() int16       { return KeyDeleteRecords }
func (r *DeleteRecordsResponse) IsFlexible() bool  { return false }
func (r *DeleteRecordsResponse) Throttle() (int32, bool) { return r.ThrottleMillis, false }

func (r *DeleteRecordsResponse) ReadFrom(b *kwire.Reader) error {
	r.ThrottleMillis = b.Int32()
	n, _ := b.ArrayLen()
	r.Topics = make([]DeleteRecordsTopicResult, 0, n)
	for i := 0; i < n; i++ {
		t := DeleteRecordsTopicResult{Name: readString(b, false)}
		np, _ := b.ArrayLen()
		t.Partitions = make([]DeleteRecordsPartitionResult, 0, np)
		for j := 0; j < np; j++ {
			t.Partitions = append(t.Partitions, DeleteRecordsPartitionResult{
				Index: b.Int32(), LowWatermark: b.Int64(), ErrorCode: b.Int16(),
			})
		}
		r.Topics = append(r.Topics, t)
	}
	return b.Err()
}
