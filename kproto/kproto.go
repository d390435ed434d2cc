// Package kproto implements the request/response stubs for the Kafka
// broker APIs this client speaks: one request type and one response type
// per API key, each covering every version it supports (chosen with
// SetVersion). Every concrete type satisfies Request or
// Response; AppendTo/ReadFrom do the actual wire encoding via kwire.
package kproto

import "github.com/knactor/kafka/kwire"

// Request is satisfied by every API's request type.
type Request interface {
	// Key is the numeric API key identifying this request type
	// (e.g. 0 for Produce, 3 for Metadata).
	Key() int16
	// Version is the API version this particular value was built for.
	Version() int16
	// SetVersion picks the API version to encode this request at.
	SetVersion(v int16)
	// IsFlexible reports whether this version uses compact encodings and
	// tagged fields (true from the version KIP-482 was adopted for this
	// API onward).
	IsFlexible() bool
	// AppendTo encodes the request body (not including the standard
	// request header) onto w.
	AppendTo(w *kwire.Writer)
	// ResponseKind returns a zero-value Response of the matching type,
	// for the connection layer to decode into.
	ResponseKind() Response
}

// Response is satisfied by every API's response type.
type Response interface {
	// Key is the numeric API key this is a response for.
	Key() int16
	// SetVersion records which version to decode the body as; the
	// connection layer calls this before ReadFrom using the version it
	// sent the request at.
	SetVersion(v int16)
	Version() int16
	IsFlexible() bool
	// ReadFrom decodes the response body (not including the standard
	// response header) from r.
	ReadFrom(r *kwire.Reader) error
	// Throttle returns the throttle time in milliseconds this response
	// carries, and whether the connection layer should treat it as
	// applying *after* this response was processed (as opposed to the
	// more common "already waited" semantics). Responses with no
	// throttle field return (0, false).
	Throttle() (millis int32, afterResp bool)
}

// base is embedded by every concrete request/response type to implement
// the version bookkeeping so each type only has to set its own key and
// AppendTo/ReadFrom logic.
type base struct {
	version int16
}

func (b *base) Version() int16     { return b.version }
func (b *base) SetVersion(v int16) { b.version = v }

// API key constants for every request this client builds and every
// response it parses. Values match the Kafka protocol's published list.
const (
	KeyProduce               int16 = 0
	KeyFetch                 int16 = 1
	KeyListOffsets           int16 = 2
	KeyMetadata              int16 = 3
	KeyOffsetCommit          int16 = 8
	KeyOffsetFetch           int16 = 9
	KeyFindCoordinator       int16 = 10
	KeyJoinGroup             int16 = 11
	KeyHeartbeat             int16 = 12
	KeyLeaveGroup            int16 = 13
	KeySyncGroup             int16 = 14
	KeyDescribeGroups        int16 = 15
	KeyListGroups            int16 = 16
	KeySaslHandshake         int16 = 17
	KeyApiVersions           int16 = 18
	KeyCreateTopics          int16 = 19
	KeyDeleteTopics          int16 = 20
	KeyDeleteRecords         int16 = 21
	KeyInitProducerId        int16 = 22
	KeyOffsetForLeaderEpoch  int16 = 23
	KeyAddPartitionsToTxn    int16 = 24
	KeyAddOffsetsToTxn       int16 = 25
	KeyEndTxn                int16 = 26
	KeyTxnOffsetCommit       int16 = 28
	KeyDescribeAcls          int16 = 29
	KeyCreateAcls            int16 = 30
	KeyDeleteAcls            int16 = 31
	KeyDescribeConfigs       int16 = 32
	KeyAlterConfigs          int16 = 33
	KeySaslAuthenticate      int16 = 36
	KeyCreatePartitions      int16 = 37
	KeyDeleteGroups          int16 = 42
	KeyOffsetDelete          int16 = 47

	// MaxKey is the largest API key this client knows about; callers
	// sizing a per-key array (e.g. an ApiVersions cache) use this.
	MaxKey int16 = KeyOffsetDelete
)
