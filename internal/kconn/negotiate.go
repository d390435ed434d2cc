package kconn

import (
	"context"
	"fmt"

	"github.com/knactor/kafka/kerr"
	"github.com/knactor/kafka/kproto"
	"github.com/knactor/kafka/kwire"
	"github.com/knactor/kafka/sasl"
)

// negotiateVersions runs once per connection, before the read loop
// starts: there is at most one in-flight request at this point, so it
// writes and reads synchronously rather than going through Do/pending.
//
// It asks for ApiVersions at the highest version this client knows
// (3, the first flexible one). A broker older than Kafka 2.4 replies
// to an unrecognized version with error code 35 (UNSUPPORTED_VERSION)
// encoded as a v0 response; this client detects that and retries once
// at version 0, the one version every broker back to 0.10 understands.
func (c *Conn) negotiateVersions(ctx context.Context) error {
	version := int16(3)
	for {
		req := &kproto.ApiVersionsRequest{
			ClientSoftwareName:    c.opts.SoftwareName,
			ClientSoftwareVersion: c.opts.SoftwareVersion,
		}
		req.SetVersion(version)

		corrID := c.nextCorrID()
		if _, err := c.writeRequest(corrID, req); err != nil {
			return err
		}
		raw, err := c.readFrame()
		if err != nil {
			return kerr.Wrap(kerr.KindNetwork, "reading ApiVersions response", err)
		}
		if len(raw) < 4 {
			return kerr.New(kerr.KindProtocol, "short ApiVersions response")
		}
		// raw is corrID(4) + body; ApiVersions' response header is never
		// flexible, so no tag section to skip here.
		body := raw[4:]
		if len(body) < 2 {
			return kerr.New(kerr.KindProtocol, "short ApiVersions response body")
		}
		errCode := int16(body[0])<<8 | int16(body[1])
		if errCode == 35 && version != 0 {
			version = 0
			continue
		}

		resp := &kproto.ApiVersionsResponse{}
		resp.SetVersion(version)
		r := kwire.NewReader(body)
		if err := resp.ReadFrom(r); err != nil {
			return kerr.Wrap(kerr.KindProtocol, "decoding ApiVersions response", err)
		}
		if resp.ErrorCode != 0 {
			if pe := kerr.ErrorForCode(resp.ErrorCode); pe != nil {
				return kerr.Wrap(kerr.KindProtocol, "ApiVersions rejected", pe)
			}
			return fmt.Errorf("ApiVersions rejected with error code %d", resp.ErrorCode)
		}
		for _, k := range resp.ApiKeys {
			if k.APIKey >= 0 && k.APIKey <= kproto.MaxKey {
				c.versions[k.APIKey] = k.MaxVersion
			}
		}
		return nil
	}
}

// versionFor clips want down to whatever this broker advertised for key,
// falling back to want unmodified if ApiVersions never ran (e.g. the
// broker doesn't implement it, vanishingly rare in practice).
func (c *Conn) versionFor(key, want int16) int16 {
	if max := c.MaxVersion(key); max >= 0 && max < want {
		return max
	}
	return want
}

// authenticate drives mech's SASL exchange to completion over this
// connection: a SaslHandshake declaring the mechanism, then however many
// SaslAuthenticate round trips the mechanism's state machine needs. The
// same client-message/server-challenge loop structure serves PLAIN
// (one message, no server reply needed), OAUTHBEARER (one message, one
// reply, possibly an abort round trip on rejection) and SCRAM (three
// round trips) without mechanism-specific branching here.
func (c *Conn) authenticate(ctx context.Context, mech sasl.Mechanism) error {
	if err := c.saslHandshake(mech.Name()); err != nil {
		return err
	}
	session, err := mech.Session(ctx)
	if err != nil {
		return kerr.Wrap(kerr.KindAuthentication, "starting "+mech.Name()+" session", err)
	}

	var challenge []byte
	for {
		clientMsg, done, err := session.Challenge(challenge)
		if err != nil {
			return kerr.Wrap(kerr.KindAuthentication, mech.Name()+" challenge", err)
		}
		if clientMsg == nil {
			if done {
				return nil
			}
			return kerr.New(kerr.KindAuthentication, mech.Name()+" produced no message but is not done")
		}

		resp, err := c.saslAuthenticateOnce(clientMsg)
		if err != nil {
			return err
		}
		if resp.ErrorCode != 0 {
			if pe := kerr.ErrorForCode(resp.ErrorCode); pe != nil {
				return kerr.Wrap(kerr.KindAuthentication, mech.Name()+" rejected", pe)
			}
			msg := mech.Name() + " rejected"
			if resp.ErrorMessage != nil {
				msg += ": " + *resp.ErrorMessage
			}
			return kerr.New(kerr.KindAuthentication, msg)
		}
		if done {
			return nil
		}
		challenge = resp.AuthBytes
	}
}

func (c *Conn) saslHandshake(mechanism string) error {
	req := &kproto.SaslHandshakeRequest{Mechanism: mechanism}
	req.SetVersion(c.versionFor(kproto.KeySaslHandshake, 1))

	corrID := c.nextCorrID()
	if _, err := c.writeRequest(corrID, req); err != nil {
		return err
	}
	raw, err := c.readFrame()
	if err != nil {
		return kerr.Wrap(kerr.KindNetwork, "reading SaslHandshake response", err)
	}
	resp := &kproto.SaslHandshakeResponse{}
	resp.SetVersion(req.Version())
	r := kwire.NewReader(raw[4:])
	if err := resp.ReadFrom(r); err != nil {
		return kerr.Wrap(kerr.KindProtocol, "decoding SaslHandshake response", err)
	}
	if resp.ErrorCode != 0 {
		if pe := kerr.ErrorForCode(resp.ErrorCode); pe != nil {
			return kerr.Wrap(kerr.KindAuthentication, "broker rejected mechanism "+mechanism, pe)
		}
		return fmt.Errorf("SaslHandshake rejected mechanism %s with error code %d", mechanism, resp.ErrorCode)
	}
	return nil
}

func (c *Conn) saslAuthenticateOnce(authBytes []byte) (*kproto.SaslAuthenticateResponse, error) {
	req := &kproto.SaslAuthenticateRequest{AuthBytes: authBytes}
	req.SetVersion(c.versionFor(kproto.KeySaslAuthenticate, 2))

	corrID := c.nextCorrID()
	if _, err := c.writeRequest(corrID, req); err != nil {
		return nil, err
	}
	raw, err := c.readFrame()
	if err != nil {
		return nil, kerr.Wrap(kerr.KindNetwork, "reading SaslAuthenticate response", err)
	}
	body := raw[4:]
	r := kwire.NewReader(body)
	if req.IsFlexible() {
		r.SkipTags()
	}
	resp := &kproto.SaslAuthenticateResponse{}
	resp.SetVersion(req.Version())
	if err := resp.ReadFrom(r); err != nil {
		return nil, kerr.Wrap(kerr.KindProtocol, "decoding SaslAuthenticate response", err)
	}
	return resp, nil
}
