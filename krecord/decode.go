package krecord

import (
	"github.com/knactor/kafka/kerr"
	"github.com/knactor/kafka/kwire"
)

// ErrTruncatedBatch is returned by decodeOne when fewer bytes remain than the
// batch header claims it needs. A fetch response's last batch is
// routinely cut off mid-frame when the broker hit its max-bytes limit;
// DecodeAll treats this as "stop here", not a corruption.
var ErrTruncatedBatch = kerr.New(kerr.KindResponse, "truncated record batch")

// DecodeAll decodes every complete batch in buf, in order. A batch cut
// short at the end of buf is silently dropped rather than treated as an
// error, matching how a Fetch response's final batch can be partial.
func DecodeAll(buf []byte) ([]Batch, error) {
	var out []Batch
	for len(buf) > 0 {
		if len(buf) < 12 {
			break
		}
		b, consumed, err := decodeOne(buf)
		if err == ErrTruncatedBatch {
			break
		}
		if err != nil {
			return out, err
		}
		out = append(out, b)
		buf = buf[consumed:]
	}
	return out, nil
}

func decodeOne(buf []byte) (Batch, int, error) {
	if len(buf) < 12 {
		return Batch{}, 0, ErrTruncatedBatch
	}
	r := kwire.NewReader(buf)
	firstOffset := r.Int64()
	batchLength := r.Int32()
	total := 12 + int(batchLength)
	if total < 0 || len(buf) < total {
		return Batch{}, 0, ErrTruncatedBatch
	}

	body := kwire.NewReader(buf[12:total])
	partitionLeaderEpoch := body.Int32()
	magic := body.Int8()
	if magic != 2 {
		return Batch{}, 0, kerr.New(kerr.KindUnsupported, "unsupported record batch magic (only v2 is supported)")
	}
	declaredCRC := body.Uint32()
	rest := body.Remaining()
	if checksum(rest) != declaredCRC {
		return Batch{}, 0, kerr.New(kerr.KindProtocol, "record batch CRC-32C mismatch")
	}

	attrs := body.Int16()
	_ = body.Int32() // lastOffsetDelta, redundant with record count
	firstTimestamp := body.Int64()
	body.Int64() // maxTimestamp, redundant once records are decoded
	producerID := body.Int64()
	producerEpoch := body.Int16()
	baseSequence := body.Int32()
	count := body.Int32()

	payload := body.Remaining()
	if err := body.Err(); err != nil {
		return Batch{}, 0, err
	}

	codec := Codec(attrs & attrCompressionMask)
	decompressed, err := decompress(codec, payload)
	if err != nil {
		return Batch{}, 0, err
	}

	recR := kwire.NewReader(decompressed)
	records := make([]Record, 0, count)
	for i := int32(0); i < count; i++ {
		rec, err := decodeRecord(recR, firstOffset, firstTimestamp)
		if err != nil {
			return Batch{}, 0, err
		}
		records = append(records, rec)
	}

	b := Batch{
		FirstOffset:          firstOffset,
		PartitionLeaderEpoch: partitionLeaderEpoch,
		IsTransactional:      attrs&attrIsTransactional != 0,
		IsControlBatch:       attrs&attrIsControlBatch != 0,
		LogAppendTimeType:    attrs&attrTimestampType != 0,
		ProducerID:           producerID,
		ProducerEpoch:        producerEpoch,
		BaseSequence:         baseSequence,
		Records:              records,
	}
	return b, total, nil
}

func decodeRecord(r *kwire.Reader, baseOffset, firstTimestamp int64) (Record, error) {
	length := r.Varint()
	bodyBuf := r.Span(int(length))
	if err := r.Err(); err != nil {
		return Record{}, err
	}
	rr := kwire.NewReader(bodyBuf)

	attrs := rr.Int8()
	tsDelta := rr.Varlong()
	offsetDelta := rr.Varint()
	keyLen := rr.Varint()
	var key []byte
	if keyLen >= 0 {
		key = rr.Span(int(keyLen))
	}
	valLen := rr.Varint()
	var val []byte
	if valLen >= 0 {
		val = rr.Span(int(valLen))
	}
	headerCount := rr.Varint()
	headers := make([]Header, 0, headerCount)
	for i := int32(0); i < headerCount; i++ {
		hKeyLen := rr.Varint()
		hKey := rr.Span(int(hKeyLen))
		hValLen := rr.Varint()
		var hVal []byte
		if hValLen >= 0 {
			hVal = rr.Span(int(hValLen))
		}
		headers = append(headers, Header{Key: string(hKey), Value: hVal})
	}
	if err := rr.Err(); err != nil {
		return Record{}, err
	}

	return Record{
		Attributes: attrs,
		Timestamp:  firstTimestamp + tsDelta,
		Offset:     baseOffset + int64(offsetDelta),
		Key:        key,
		Value:      val,
		Headers:    headers,
	}, nil
}
