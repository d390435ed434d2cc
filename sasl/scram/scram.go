// Package scram implements the SASL SCRAM-SHA-256 and SCRAM-SHA-512
// mechanisms (RFC 5802) with channel binding disabled ("n,,", this client
// never negotiates TLS channel binding since Kafka brokers don't require
// it).
package scram

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"hash"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"

	"github.com/knactor/kafka/kerr"
	"github.com/knactor/kafka/sasl"
)

// minIterations is RFC 5802's / Kafka's floor on the PBKDF2 iteration
// count a server may advertise, for both SHA-256 and SHA-512.
const minIterations = 4096

// Auth holds SCRAM credentials. AsSha256Mechanism/AsSha512Mechanism pick
// which hash the exchange uses; a broker's SaslHandshake response
// determines which one a client should actually offer.
type Auth struct {
	User     string
	Password string
}

func (a Auth) AsSha256Mechanism() sasl.Mechanism {
	return mechanism{auth: a, name: "SCRAM-SHA-256", newHash: sha256.New}
}

func (a Auth) AsSha512Mechanism() sasl.Mechanism {
	return mechanism{auth: a, name: "SCRAM-SHA-512", newHash: sha512.New}
}

type mechanism struct {
	auth    Auth
	name    string
	newHash func() hash.Hash
}

func (m mechanism) Name() string { return m.name }

func (m mechanism) Session(context.Context) (sasl.Session, error) {
	nonce := make([]byte, 18)
	if _, err := rand.Read(nonce); err != nil {
		return nil, kerr.Wrap(kerr.KindAuthentication, "generating SCRAM client nonce", err)
	}
	return &session{
		auth:        m.auth,
		newHash:     m.newHash,
		clientNonce: base64.StdEncoding.EncodeToString(nonce),
		step:        stepClientFirst,
	}, nil
}

type step int

const (
	stepClientFirst step = iota
	stepClientFinal
	stepDone
)

type session struct {
	auth        Auth
	newHash     func() hash.Hash
	clientNonce string
	step        step

	clientFirstBare string
	serverKey       []byte
	authMessage     string
}

func (s *session) Challenge(serverChallenge []byte) ([]byte, bool, error) {
	switch s.step {
	case stepClientFirst:
		s.clientFirstBare = "n=" + escapeUsername(s.auth.User) + ",r=" + s.clientNonce
		s.step = stepClientFinal
		return []byte("n,," + s.clientFirstBare), false, nil

	case stepClientFinal:
		fields, err := parseFields(string(serverChallenge))
		if err != nil {
			return nil, false, kerr.Wrap(kerr.KindAuthentication, "parsing SCRAM server-first-message", err)
		}
		serverNonce := fields["r"]
		saltB64 := fields["s"]
		iterStr := fields["i"]
		if serverNonce == "" || saltB64 == "" || iterStr == "" {
			return nil, false, kerr.New(kerr.KindAuthentication, "malformed SCRAM server-first-message")
		}
		if !strings.HasPrefix(serverNonce, s.clientNonce) {
			return nil, false, kerr.New(kerr.KindAuthentication, "SCRAM server nonce does not extend client nonce")
		}
		salt, err := base64.StdEncoding.DecodeString(saltB64)
		if err != nil {
			return nil, false, kerr.Wrap(kerr.KindAuthentication, "decoding SCRAM salt", err)
		}
		iterations, err := strconv.Atoi(iterStr)
		if err != nil || iterations < minIterations {
			return nil, false, kerr.New(kerr.KindAuthentication, "SCRAM iteration count below required minimum")
		}

		channelBinding := base64.StdEncoding.EncodeToString([]byte("n,,"))
		clientFinalWithoutProof := "c=" + channelBinding + ",r=" + serverNonce

		saltedPassword := pbkdf2.Key([]byte(s.auth.Password), salt, iterations, s.newHash().Size(), s.newHash)
		clientKey := hmacSum(s.newHash, saltedPassword, []byte("Client Key"))
		storedKey := hashSum(s.newHash, clientKey)

		authMessage := s.clientFirstBare + "," + string(serverChallenge) + "," + clientFinalWithoutProof
		clientSignature := hmacSum(s.newHash, storedKey, []byte(authMessage))

		clientProof := xorBytes(clientKey, clientSignature)
		msg := clientFinalWithoutProof + ",p=" + base64.StdEncoding.EncodeToString(clientProof)

		s.serverKey = hmacSum(s.newHash, saltedPassword, []byte("Server Key"))
		s.authMessage = authMessage
		s.step = stepDone
		return []byte(msg), false, nil

	case stepDone:
		fields, err := parseFields(string(serverChallenge))
		if err != nil {
			return nil, false, kerr.Wrap(kerr.KindAuthentication, "parsing SCRAM server-final-message", err)
		}
		if e, ok := fields["e"]; ok {
			return nil, false, kerr.New(kerr.KindAuthentication, "SCRAM server rejected authentication: "+e)
		}
		v, ok := fields["v"]
		if !ok {
			return nil, false, kerr.New(kerr.KindAuthentication, "SCRAM server-final-message missing verifier")
		}
		gotSignature, err := base64.StdEncoding.DecodeString(v)
		if err != nil {
			return nil, false, kerr.Wrap(kerr.KindAuthentication, "decoding SCRAM server signature", err)
		}
		wantSignature := hmacSum(s.newHash, s.serverKey, []byte(s.authMessage))
		if subtle.ConstantTimeCompare(gotSignature, wantSignature) != 1 {
			return nil, false, kerr.New(kerr.KindAuthentication, "SCRAM server signature verification failed")
		}
		return nil, true, nil
	}
	return nil, false, kerr.New(kerr.KindAuthentication, "SCRAM session used after completion")
}

func hmacSum(newHash func() hash.Hash, key, data []byte) []byte {
	h := hmac.New(newHash, key)
	h.Write(data)
	return h.Sum(nil)
}

func hashSum(newHash func() hash.Hash, data []byte) []byte {
	h := newHash()
	h.Write(data)
	return h.Sum(nil)
}

func xorBytes(a, b []byte) []byte {
	out := make([]byte, len(a))
	for i := range a {
		out[i] = a[i] ^ b[i]
	}
	return out
}

// escapeUsername applies RFC 5802's ",", "=" escaping for the "n="
// attribute.
func escapeUsername(u string) string {
	u = strings.ReplaceAll(u, "=", "=3D")
	u = strings.ReplaceAll(u, ",", "=2C")
	return u
}

func parseFields(s string) (map[string]string, error) {
	out := map[string]string{}
	for _, part := range strings.Split(s, ",") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("malformed attribute %q", part)
		}
		out[kv[0]] = kv[1]
	}
	return out, nil
}
