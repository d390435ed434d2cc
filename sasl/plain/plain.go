// Package plain implements the SASL PLAIN mechanism (RFC 4616): a single
// message of the form "\x00authzid\x00user\x00pass" sent by the client,
// nothing further required from the broker.
package plain

import (
	"context"

	"github.com/knactor/kafka/sasl"
)

// Auth holds PLAIN credentials.
type Auth struct {
	Zid      string // authorization identity, usually left empty
	User     string
	Password string
}

func (a Auth) Name() string { return "PLAIN" }

func (a Auth) Session(context.Context) (sasl.Session, error) {
	return &session{auth: a}, nil
}

type session struct {
	auth Auth
	sent bool
}

func (s *session) Challenge([]byte) ([]byte, bool, error) {
	if s.sent {
		return nil, true, nil
	}
	s.sent = true
	msg := make([]byte, 0, len(s.auth.Zid)+len(s.auth.User)+len(s.auth.Password)+2)
	msg = append(msg, s.auth.Zid...)
	msg = append(msg, 0)
	msg = append(msg, s.auth.User...)
	msg = append(msg, 0)
	msg = append(msg, s.auth.Password...)
	return msg, true, nil
}
