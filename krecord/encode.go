package krecord

import (
	"github.com/knactor/kafka/kwire"
)

// Encode appends one v2 record batch to w, compressing the record
// payload under codec. b.BaseSequence is the producer sequence number of
// the first record in the batch (the producer sets -1 when not producing
// idempotently).
func Encode(w *kwire.Writer, b Batch, codec Codec) error {
	recW := kwire.NewWriter(256)
	for i, rec := range b.Records {
		encodeRecord(recW, rec, b.FirstOffset, b.Records[0].Timestamp, int32(i))
	}
	body, err := compress(codec, recW.Bytes())
	if err != nil {
		return err
	}

	w.Int64(b.FirstOffset)
	lengthSlot := w.Int32Slot()
	w.Int32(b.PartitionLeaderEpoch)
	w.Int8(2) // magic
	crcSlot := w.Int32Slot()

	attrsOff := w.Len()
	attrs := int16(codec) & attrCompressionMask
	if b.IsTransactional {
		attrs |= attrIsTransactional
	}
	if b.IsControlBatch {
		attrs |= attrIsControlBatch
	}
	if b.LogAppendTimeType {
		attrs |= attrTimestampType
	}
	w.Int16(attrs)

	lastOffsetDelta := int32(0)
	if n := len(b.Records); n > 0 {
		lastOffsetDelta = int32(n - 1)
	}
	w.Int32(lastOffsetDelta)

	firstTimestamp := int64(0)
	maxTimestamp := int64(0)
	if len(b.Records) > 0 {
		firstTimestamp = b.Records[0].Timestamp
		maxTimestamp = b.Records[0].Timestamp
		for _, r := range b.Records {
			if r.Timestamp > maxTimestamp {
				maxTimestamp = r.Timestamp
			}
		}
	}
	w.Int64(firstTimestamp)
	w.Int64(maxTimestamp)
	w.Int64(b.ProducerID)
	w.Int16(b.ProducerEpoch)
	w.Int32(b.BaseSequence)
	w.Int32(int32(len(b.Records)))
	w.Raw(body)

	crc := checksum(w.Slice(attrsOff))
	w.PatchInt32(crcSlot, int32(crc))
	w.PatchInt32(lengthSlot, int32(w.Len()-lengthSlot-4))
	return nil
}

func encodeRecord(w *kwire.Writer, r Record, baseOffset, firstTimestamp int64, offsetDelta int32) {
	body := kwire.NewWriter(64)
	body.Int8(r.Attributes)
	body.Varlong(r.Timestamp - firstTimestamp)
	body.Varint(offsetDelta)
	if r.Key == nil {
		body.Varint(-1)
	} else {
		body.Varint(int32(len(r.Key)))
		body.Raw(r.Key)
	}
	if r.Value == nil {
		body.Varint(-1)
	} else {
		body.Varint(int32(len(r.Value)))
		body.Raw(r.Value)
	}
	body.Varint(int32(len(r.Headers)))
	for _, h := range r.Headers {
		body.Varint(int32(len(h.Key)))
		body.Raw([]byte(h.Key))
		if h.Value == nil {
			body.Varint(-1)
		} else {
			body.Varint(int32(len(h.Value)))
			body.Raw(h.Value)
		}
	}
	w.Varint(int32(body.Len()))
	w.Raw(body.Bytes())
}
