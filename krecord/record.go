// Package krecord implements the Kafka record batch v2 format (the wire
// format produced and consumed by the Produce and Fetch APIs since
// KIP-98): a batch header with CRC-32C, pluggable per-batch compression,
// and a varint-delta-encoded list of records.
package krecord

// Header is a single record header: an arbitrary key/value pair a
// producer can attach to a record, independent of the record's own key
// and value.
type Header struct {
	Key   string
	Value []byte
}

// Record is one message within a batch. Offset and timestamp are stored
// as deltas from the batch's base values on the wire; DecodeAll resolves
// them back to absolute values for caller convenience. Encode takes
// absolute timestamps and computes their deltas from the first record's;
// it assigns offset deltas by position in the batch and ignores Offset.
type Record struct {
	Attributes int8
	Timestamp  int64
	Offset     int64
	Key        []byte
	Value      []byte
	Headers    []Header
}

const (
	attrCompressionMask = 0x07
	attrTimestampType   = 1 << 3
	attrIsTransactional = 1 << 4
	attrIsControlBatch  = 1 << 5
)

// Batch is a decoded (or pre-encode) record batch.
type Batch struct {
	FirstOffset          int64
	PartitionLeaderEpoch int32
	IsTransactional      bool
	IsControlBatch       bool
	LogAppendTimeType    bool // true if timestamps are log-append time rather than create time
	ProducerID           int64
	ProducerEpoch        int16
	BaseSequence         int32
	Records              []Record
}
