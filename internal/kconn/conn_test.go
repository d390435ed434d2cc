package kconn

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/knactor/kafka/kerr"
	"github.com/knactor/kafka/kproto"
	"github.com/knactor/kafka/kwire"
)

// pairedDialer returns an Options.Dialer that hands back one end of an
// in-memory net.Pipe; the other end is returned for a test's fake broker
// goroutine to drive.
func pairedDialer() (dial func(context.Context, string, string) (net.Conn, error), serverSide net.Conn) {
	client, server := net.Pipe()
	return func(context.Context, string, string) (net.Conn, error) {
		return client, nil
	}, server
}

// readFakeFrame reads one size-prefixed frame off conn and returns its
// correlation ID (which follows the api key and version in the request
// header) and the rest of the frame after it.
func readFakeFrame(t *testing.T, conn net.Conn) (corrID int32, body []byte) {
	t.Helper()
	sizeBuf := make([]byte, 4)
	_, err := io.ReadFull(conn, sizeBuf)
	require.NoError(t, err)
	size := binary.BigEndian.Uint32(sizeBuf)
	buf := make([]byte, size)
	_, err = io.ReadFull(conn, buf)
	require.NoError(t, err)
	corrID = int32(binary.BigEndian.Uint32(buf[4:8]))
	return corrID, buf[8:]
}

func writeFakeFrame(t *testing.T, conn net.Conn, corrID int32, body []byte) {
	t.Helper()
	w := kwire.NewWriter(len(body) + 8)
	sizeOff := w.Int32Slot()
	w.Int32(corrID)
	w.Raw(body)
	w.PatchInt32(sizeOff, int32(w.Len()-4))
	_, err := conn.Write(w.Bytes())
	require.NoError(t, err)
}

// writeLegacyApiVersionsV0 replies to the request at corrID with a legacy
// (non-flexible) v0 ApiVersionsResponse advertising support for Metadata
// up through v9 and SaslHandshake v1, enough for the tests in this file.
func writeLegacyApiVersionsV0(t *testing.T, conn net.Conn, corrID int32) {
	t.Helper()
	body := kwire.NewWriter(32)
	body.Int16(0) // error code
	body.ArrayLen(2, false)
	body.Int16(kproto.KeyMetadata)
	body.Int16(0)
	body.Int16(9)
	body.Int16(kproto.KeySaslHandshake)
	body.Int16(0)
	body.Int16(1)
	writeFakeFrame(t, conn, corrID, body.Bytes())
}

// acceptApiVersionsWithDowngrade plays the server side of the full
// negotiation dance this client speaks: it answers the initial (flexible)
// ApiVersions request with the well-known "unsupported version" v0 reply,
// forcing a retry at v0, then answers that retry for real. None of the
// fakes in this file bother hand-encoding a flexible v3 response; legacy
// v0 exercises the same ReadFrom path with far less boilerplate.
func acceptApiVersionsWithDowngrade(t *testing.T, conn net.Conn) {
	t.Helper()
	corrID, _ := readFakeFrame(t, conn)
	writeFakeFrame(t, conn, corrID, []byte{0x00, 0x23, 0x00, 0x00, 0x00, 0x00})
	corrID, _ = readFakeFrame(t, conn)
	writeLegacyApiVersionsV0(t, conn, corrID)
}

func TestOpenNegotiatesApiVersions(t *testing.T) {
	dial, server := pairedDialer()
	defer server.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		acceptApiVersionsWithDowngrade(t, server)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, err := Open(ctx, "broker:9092", Options{Dialer: dial})
	require.NoError(t, err)
	defer conn.Close()

	<-done
	require.Equal(t, int16(9), conn.MaxVersion(kproto.KeyMetadata))
	require.Equal(t, int16(1), conn.MaxVersion(kproto.KeySaslHandshake))
	require.Equal(t, int16(-1), conn.MaxVersion(kproto.KeyProduce))
}

func TestOpenRetriesApiVersionsAtV0OnUnsupportedVersion(t *testing.T) {
	dial, server := pairedDialer()
	defer server.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		// First request: reply with the well-known "unsupported
		// version" v0 response, forcing the client to retry at v0.
		corrID, _ := readFakeFrame(t, server)
		writeFakeFrame(t, server, corrID, []byte{0x00, 0x23, 0x00, 0x00, 0x00, 0x00})
		corrID, _ = readFakeFrame(t, server)
		writeLegacyApiVersionsV0(t, server, corrID)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, err := Open(ctx, "broker:9092", Options{Dialer: dial})
	require.NoError(t, err)
	defer conn.Close()

	<-done
	require.Equal(t, int16(9), conn.MaxVersion(kproto.KeyMetadata))
}

func TestDoMultiplexesConcurrentRequestsByCorrelationID(t *testing.T) {
	dial, server := pairedDialer()
	defer server.Close()

	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		acceptApiVersionsWithDowngrade(t, server)

		// Two Metadata requests arrive; reply out of order to prove
		// the client matches responses by correlation ID rather than
		// by send order.
		corrA, _ := readFakeFrame(t, server)
		corrB, _ := readFakeFrame(t, server)

		// Version 0 Metadata responses carry none of the throttle,
		// cluster ID, controller ID, or is_internal fields later
		// versions added: just brokers, then topics with a bare
		// error code, name, and an empty partitions array.
		respFor := func(topic string) []byte {
			w := kwire.NewWriter(64)
			w.ArrayLen(0, false) // brokers
			w.ArrayLen(1, false) // topics
			w.Int16(0)           // topic error_code
			t := topic
			w.String(&t)
			w.ArrayLen(0, false) // partitions
			return w.Bytes()
		}

		writeFakeFrame(t, server, corrB, respFor("second"))
		writeFakeFrame(t, server, corrA, respFor("first"))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, err := Open(ctx, "broker:9092", Options{Dialer: dial})
	require.NoError(t, err)
	defer conn.Close()

	reqA := &kproto.MetadataRequest{Topics: []string{"first"}}
	reqA.SetVersion(0)
	reqB := &kproto.MetadataRequest{Topics: []string{"second"}}
	reqB.SetVersion(0)

	type result struct {
		topic string
		err   error
	}
	results := make(chan result, 2)
	for _, req := range []*kproto.MetadataRequest{reqA, reqB} {
		req := req
		go func() {
			resp, err := conn.Do(ctx, req)
			if err != nil {
				results <- result{err: err}
				return
			}
			mr := resp.(*kproto.MetadataResponse)
			results <- result{topic: mr.Topics[0].Name}
		}()
	}

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		r := <-results
		require.NoError(t, r.err)
		seen[r.topic] = true
	}
	require.True(t, seen["first"])
	require.True(t, seen["second"])
	<-serverDone
}

func TestReadLoopFailsConnectionOnUnexpectedCorrelationID(t *testing.T) {
	dial, server := pairedDialer()
	defer server.Close()

	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		acceptApiVersionsWithDowngrade(t, server)

		corrID, _ := readFakeFrame(t, server)
		// Reply with a correlation ID the client never sent; readLoop
		// must tear the connection down rather than keep reading.
		writeFakeFrame(t, server, corrID+1000, []byte{0x00, 0x00})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, err := Open(ctx, "broker:9092", Options{Dialer: dial})
	require.NoError(t, err)
	defer conn.Close()

	req := &kproto.MetadataRequest{Topics: []string{"first"}}
	req.SetVersion(0)
	_, err = conn.Do(ctx, req)
	require.Error(t, err)
	require.True(t, kerr.IsKind(err, kerr.KindUnexpectedCorrelationID))
	<-serverDone
}

func TestWriteFrameClassifiesShortWrite(t *testing.T) {
	dial, server := pairedDialer()
	defer server.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		acceptApiVersionsWithDowngrade(t, server)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, err := Open(ctx, "broker:9092", Options{Dialer: dial})
	require.NoError(t, err)
	defer conn.Close()
	<-done

	// Swap in a conn that only ever writes half of what's asked, to
	// exercise writeFrame's short-write classification directly.
	conn.nc = &shortWriteConn{Conn: conn.nc}
	_, err = conn.writeFrame(0, kproto.KeyMetadata, 0, false, []byte{0x01, 0x02, 0x03, 0x04})
	require.Error(t, err)
	require.True(t, kerr.IsKind(err, kerr.KindUnfinishedWriteBuffer))
}

// shortWriteConn wraps a net.Conn and reports writing only half of every
// buffer passed to Write, without an error, to simulate a truncated
// write that a real kernel socket buffer can produce under backpressure.
type shortWriteConn struct {
	net.Conn
}

func (c *shortWriteConn) Write(b []byte) (int, error) {
	n := len(b) / 2
	if n == 0 && len(b) > 0 {
		n = 1
	}
	return n, nil
}
