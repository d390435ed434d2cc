package kproto

import "github.com/knactor/kafka/kwire"

// ApiVersionsRequest asks a broker which (api key, version range) pairs it
// supports. Version 3+ is flexible in the body, but the connection layer
// must still treat its *response header* as non-flexible: ApiVersions is
// the one API where the header format doesn't follow the request's own
// flexible-ness, because a client has to be able to parse the response
// before it knows what the broker supports. See internal/kconn for where
// this is applied.
type ApiVersionsRequest struct {
	base
	ClientSoftwareName    string
	ClientSoftwareVersion string
}

func (r *ApiVersionsRequest) Key() int16      { return KeyApiVersions }
func (r *ApiVersionsRequest) IsFlexible() bool { return r.version >= 3 }

func (r *ApiVersionsRequest) AppendTo(w *kwire.Writer) {
	if r.version >= 3 {
		w.CompactString(&r.ClientSoftwareName)
		w.CompactString(&r.ClientSoftwareVersion)
		w.EmptyTags()
	}
}

func (r *ApiVersionsRequest) ResponseKind() Response {
	return &ApiVersionsResponse{base: base{version: r.version}}
}

// ApiVersionKey is one (api key, min, max) entry in an ApiVersions reply.
type ApiVersionKey struct {
	APIKey     int16
	MinVersion int16
	MaxVersion int16
}

type ApiVersionsResponse struct {
	base
	ErrorCode      int16
	ApiKeys        []ApiVersionKey
	ThrottleMillis int32
}

func (r *ApiVersionsResponse) Key() int16       { return KeyApiVersions }
func (r *ApiVersionsResponse) IsFlexible() bool  { return r.version >= 3 }
func (r *ApiVersionsResponse) Throttle() (int32, bool) { return r.ThrottleMillis, false }

func (r *ApiVersionsResponse) ReadFrom(b *kwire.Reader) error {
	r.ErrorCode = b.Int16()
	var n int
	if r.IsFlexible() {
		m, _ := b.CompactArrayLen()
		n = m
	} else {
		m, _ := b.ArrayLen()
		n = m
	}
	r.ApiKeys = make([]ApiVersionKey, 0, n)
	for i := 0; i < n; i++ {
		k := ApiVersionKey{
			APIKey:     b.Int16(),
			MinVersion: b.Int16(),
			MaxVersion: b.Int16(),
		}
		if r.IsFlexible() {
			b.SkipTags()
		}
		r.ApiKeys = append(r.ApiKeys, k)
	}
	if r.version >= 1 {
		r.ThrottleMillis = b.Int32()
	}
	if r.IsFlexible() {
		b.SkipTags()
	}
	return b.Err()
}
