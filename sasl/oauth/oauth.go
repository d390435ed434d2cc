// Package oauth implements the SASL OAUTHBEARER mechanism (RFC 7628): a
// single client message carrying a bearer token, matching the framing
// Kafka brokers expect ("n,,\x01auth=Bearer <token>\x01\x01").
package oauth

import (
	"context"

	"github.com/knactor/kafka/sasl"
)

// TokenSource supplies the bearer token for each new session; callers
// fetching tokens from an external identity provider implement this
// rather than this package reaching out to one itself.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource that always returns the same token, for
// callers managing refresh themselves.
type StaticToken string

func (s StaticToken) Token(context.Context) (string, error) { return string(s), nil }

// Auth authenticates using OAUTHBEARER bearer tokens from Source.
type Auth struct {
	Source TokenSource
}

func (a Auth) Name() string { return "OAUTHBEARER" }

func (a Auth) Session(ctx context.Context) (sasl.Session, error) {
	token, err := a.Source.Token(ctx)
	if err != nil {
		return nil, err
	}
	return &session{token: token}, nil
}

type session struct {
	token string
	sent  bool
}

func (s *session) Challenge(serverChallenge []byte) ([]byte, bool, error) {
	if s.sent {
		// A non-empty challenge here means the broker rejected the
		// token and is sending a JSON error object; the client replies
		// with a single 0x01 byte to abort per RFC 7628 §3.2.3.
		if len(serverChallenge) > 0 {
			return []byte{0x01}, true, nil
		}
		return nil, true, nil
	}
	s.sent = true
	msg := "n,,\x01auth=Bearer " + s.token + "\x01\x01"
	return []byte(msg), false, nil
}
