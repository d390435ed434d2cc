// Package sasl defines the Mechanism interface every SASL mechanism this
// client supports implements, and the session abstraction the connection
// layer drives during the broker handshake.
package sasl

import "context"

// Mechanism is a SASL mechanism a client can authenticate a connection
// with. Name must match one of the strings a broker's SaslHandshake
// response lists as supported.
type Mechanism interface {
	Name() string
	// Session starts a new authentication exchange for one connection.
	Session(ctx context.Context) (Session, error)
}

// Session drives one SASL exchange to completion. Challenge is called
// repeatedly with whatever bytes the broker sent (empty on the very first
// call for mechanisms that send first), returning the next bytes to send
// and whether the exchange is now complete.
type Session interface {
	// Challenge returns the client's response to serverChallenge (which
	// is empty for the first call of a client-first mechanism), and
	// whether authentication is now complete.
	Challenge(serverChallenge []byte) (clientResponse []byte, done bool, err error)
}
