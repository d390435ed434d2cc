package kconn

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/knactor/kafka/kwire"
)

// fingerprint is a stable identity for a request's (api key, api version,
// argument bytes): two requests with the same fingerprint are assumed to
// produce the same response, so a request already in flight on this
// connection can serve every caller asking for it again before the first
// reply lands, rather than writing a duplicate frame.
func fingerprint(apiKey, apiVersion int16, body []byte) string {
	h := sha256.New()
	var hdr [4]byte
	hdr[0] = byte(apiKey >> 8)
	hdr[1] = byte(apiKey)
	hdr[2] = byte(apiVersion >> 8)
	hdr[3] = byte(apiVersion)
	h.Write(hdr[:])
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// encodeBody runs req.AppendTo into a fresh Writer, for fingerprinting
// before a frame is built and, on the non-deduplicated path, reused
// directly as the frame's body so AppendTo only runs once.
func encodeBody(req interface {
	AppendTo(w *kwire.Writer)
}) []byte {
	w := kwire.NewWriter(128)
	req.AppendTo(w)
	return w.Bytes()
}
