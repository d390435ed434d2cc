package kproto

import "github.com/knactor/kafka/kwire"

type SaslHandshakeRequest struct {
	base
	Mechanism string
}

func (r *SaslHandshakeRequest) Key() int16       { return KeySaslHandshake }
func (r *SaslHandshakeRequest) IsFlexible() bool { return false }

func (r *SaslHandshakeRequest) AppendTo(w *kwire.Writer) {
	w.String(&r.Mechanism)
}

func (r *SaslHandshakeRequest) ResponseKind() Response {
	return &SaslHandshakeResponse{base: base{version: r.version}}
}

type SaslHandshakeResponse struct {
	base
	ErrorCode         int16
	EnabledMechanisms []string
}

func (r *SaslHandshakeResponse) Key() int16               { return KeySaslHandshake }
func (r *SaslHandshakeResponse) IsFlexible() bool          { return false }
func (r *SaslHandshakeResponse) Throttle() (int32, bool) { return 0, false }

func (r *SaslHandshakeResponse) ReadFrom(b *kwire.Reader) error {
	r.ErrorCode = b.Int16()
	n, _ := b.ArrayLen()
	r.EnabledMechanisms = make([]string, 0, n)
	for i := 0; i < n; i++ {
		r.EnabledMechanisms = append(r.EnabledMechanisms, readString(b, false))
	}
	return b.Err()
}

// --- SaslAuthenticate (post KIP-368) ---

type SaslAuthenticateRequest struct {
	base
	AuthBytes []byte
}

func (r *SaslAuthenticateRequest) Key() int16       { return KeySaslAuthenticate }
func (r *SaslAuthenticateRequest) IsFlexible() bool { return r.version >= 2 }

func (r *SaslAuthenticateRequest) AppendTo(w *kwire.Writer) {
	flex := r.IsFlexible()
	if flex {
		w.CompactBytes(r.AuthBytes)
		w.EmptyTags()
	} else {
		w.NullableBytes(r.AuthBytes)
	}
}

func (r *SaslAuthenticateRequest) ResponseKind() Response {
	return &SaslAuthenticateResponse{base: base{version: r.version}}
}

type SaslAuthenticateResponse struct {
	base
	ErrorCode          int16
	ErrorMessage       *string
	AuthBytes          []byte
	SessionLifetimeMs  int64
}

func (r *SaslAuthenticateResponse) Key() int16       { return KeySaslAuthenticate }
func (r *SaslAuthenticateResponse) IsFlexible() bool  { return r.version >= 2 }
func (r *SaslAuthenticateResponse) Throttle() (int32, bool) { return 0, false }

func (r *SaslAuthenticateResponse) ReadFrom(b *kwire.Reader) error {
	flex := r.IsFlexible()
	r.ErrorCode = b.Int16()
	r.ErrorMessage = readNullableString(b, flex)
	if flex {
		r.AuthBytes = b.CompactBytes()
	} else {
		r.AuthBytes = b.Bytes()
	}
	if r.version >= 1 {
		r.SessionLifetimeMs = b.Int64()
	}
	if flex {
		b.SkipTags()
	}
	return b.Err()
}
