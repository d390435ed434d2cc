package krecord

import (
	"bytes"
	"compress/gzip"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/golang/snappy"
	"github.com/knactor/kafka/kerr"
)

// Codec identifies one of the batch-level compression types Kafka defines.
// The numeric value is also the low 3 bits of a batch's attributes field.
type Codec int8

const (
	CodecNone   Codec = 0
	CodecGzip   Codec = 1
	CodecSnappy Codec = 2
	CodecLz4    Codec = 3
	CodecZstd   Codec = 4
)

func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecGzip:
		return "gzip"
	case CodecSnappy:
		return "snappy"
	case CodecLz4:
		return "lz4"
	case CodecZstd:
		return "zstd"
	default:
		return "unknown"
	}
}

// compress returns p compressed under c, or p unchanged for CodecNone.
func compress(c Codec, p []byte) ([]byte, error) {
	switch c {
	case CodecNone:
		return p, nil
	case CodecGzip:
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(p); err != nil {
			return nil, kerr.Wrap(kerr.KindUnsupportedCompression, "gzip compress", err)
		}
		if err := zw.Close(); err != nil {
			return nil, kerr.Wrap(kerr.KindUnsupportedCompression, "gzip compress", err)
		}
		return buf.Bytes(), nil
	case CodecSnappy:
		return snappy.Encode(nil, p), nil
	case CodecLz4:
		var buf bytes.Buffer
		zw := lz4.NewWriter(&buf)
		if _, err := zw.Write(p); err != nil {
			return nil, kerr.Wrap(kerr.KindUnsupportedCompression, "lz4 compress", err)
		}
		if err := zw.Close(); err != nil {
			return nil, kerr.Wrap(kerr.KindUnsupportedCompression, "lz4 compress", err)
		}
		return buf.Bytes(), nil
	case CodecZstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, kerr.Wrap(kerr.KindUnsupportedCompression, "zstd compress", err)
		}
		defer enc.Close()
		return enc.EncodeAll(p, nil), nil
	default:
		return nil, kerr.New(kerr.KindUnsupportedCompression, "unknown compression codec "+c.String())
	}
}

// decompress reverses compress.
func decompress(c Codec, p []byte) ([]byte, error) {
	switch c {
	case CodecNone:
		return p, nil
	case CodecGzip:
		zr, err := gzip.NewReader(bytes.NewReader(p))
		if err != nil {
			return nil, kerr.Wrap(kerr.KindUnsupportedCompression, "gzip decompress", err)
		}
		defer zr.Close()
		out, err := io.ReadAll(zr)
		if err != nil {
			return nil, kerr.Wrap(kerr.KindUnsupportedCompression, "gzip decompress", err)
		}
		return out, nil
	case CodecSnappy:
		out, err := snappy.Decode(nil, p)
		if err != nil {
			return nil, kerr.Wrap(kerr.KindUnsupportedCompression, "snappy decompress", err)
		}
		return out, nil
	case CodecLz4:
		zr := lz4.NewReader(bytes.NewReader(p))
		out, err := io.ReadAll(zr)
		if err != nil {
			return nil, kerr.Wrap(kerr.KindUnsupportedCompression, "lz4 decompress", err)
		}
		return out, nil
	case CodecZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, kerr.Wrap(kerr.KindUnsupportedCompression, "zstd decompress", err)
		}
		defer dec.Close()
		out, err := dec.DecodeAll(p, nil)
		if err != nil {
			return nil, kerr.Wrap(kerr.KindUnsupportedCompression, "zstd decompress", err)
		}
		return out, nil
	default:
		return nil, kerr.New(kerr.KindUnsupportedCompression, "unknown compression codec in batch attributes")
	}
}
