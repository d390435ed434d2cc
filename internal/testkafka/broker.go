// Package testkafka is the in-memory fake broker spec.md §9 calls for:
// "formalize [ad-hoc monkey-patching] as a transport abstraction ... an
// in-memory script of canned responses keyed by api-key/version". It
// listens on a real loopback TCP socket and speaks the actual wire
// protocol, so the client under test exercises its full connection
// layer (ApiVersions negotiation, framing, correlation IDs) exactly as
// it would against a real broker — only the response bodies are
// scripted rather than computed by a real log.
//
// This mirrors the role franz-go's kfake.NewCluster plays in
// grafana-tempo's own tests (pkg/ingest/config_test.go,
// pkg/ingest/reader_client_test.go), reimplemented against this module's own
// wire format instead of depending on franz-go.
package testkafka

import (
	"encoding/binary"
	"io"
	"net"
	"sync"

	"github.com/knactor/kafka/kproto"
	"github.com/knactor/kafka/kwire"
)

// ScriptKey identifies one (api key, api version) pair a Broker replies
// to.
type ScriptKey struct {
	APIKey  int16
	Version int16
}

// Response is one canned reply: a fully-encoded response body (every
// field ReadFrom for this (key, version) expects, in order — build it
// with kwire.NewWriter the way this package's encode.go helpers do). It
// carries no separate error code: a broker-side rejection is scripted by
// encoding the error code into Body.
type Response struct {
	Body []byte
}

// flexibleSince reports, per API key, the version at which that API's
// header (and, for most, its body) switches to the compact/tagged-field
// encoding — the same per-key version gates kproto's own IsFlexible()
// methods hardcode, mirrored here because the broker side has no access
// to a client-side Request value to ask.
var flexibleSince = map[int16]int16{
	kproto.KeyProduce:            9,
	kproto.KeyFetch:              12,
	kproto.KeyListOffsets:        6,
	kproto.KeyMetadata:           9,
	kproto.KeyOffsetCommit:       8,
	kproto.KeyOffsetFetch:        6,
	kproto.KeyFindCoordinator:    3,
	kproto.KeyJoinGroup:          6,
	kproto.KeySyncGroup:          4,
	kproto.KeyHeartbeat:          4,
	kproto.KeyLeaveGroup:         4,
	kproto.KeyCreateTopics:       5,
	kproto.KeyDeleteTopics:       4,
	kproto.KeySaslHandshake:      -1, // never flexible
	kproto.KeyApiVersions:        -1, // header never flexible; body is, but negotiation is special-cased
	kproto.KeyInitProducerId:     2,
	kproto.KeyOffsetDelete:       -1,
	kproto.KeySaslAuthenticate:   2,
	kproto.KeyCreatePartitions:   2,
	kproto.KeyAddPartitionsToTxn: 3,
	kproto.KeyAddOffsetsToTxn:    3,
	kproto.KeyEndTxn:             3,
	kproto.KeyTxnOffsetCommit:    3,
	kproto.KeyDescribeAcls:       2,
	kproto.KeyCreateAcls:         2,
	kproto.KeyDeleteAcls:         2,
	kproto.KeyDescribeConfigs:    4,
	kproto.KeyAlterConfigs:       -1,
	kproto.KeyDescribeGroups:     5,
	kproto.KeyListGroups:         3,
	kproto.KeyDeleteGroups:       2,
}

func isFlexible(apiKey, version int16) bool {
	since, ok := flexibleSince[apiKey]
	return ok && since >= 0 && version >= since
}

// Broker is a fake Kafka broker listening on loopback. NewBroker starts
// it immediately; Close shuts it down.
type Broker struct {
	ln net.Listener

	mu          sync.Mutex
	scripts     map[ScriptKey][]Response
	apiVersions []kproto.ApiVersionKey

	wg sync.WaitGroup
}

// NewBroker starts a fake broker on a free loopback port. Its ApiVersions
// response advertises maxVersions, the highest version this fake broker
// claims to support per API key (typically the whole map from
// DefaultMaxVersions).
func NewBroker(maxVersions map[int16]int16) (*Broker, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	b := &Broker{
		ln:      ln,
		scripts: make(map[ScriptKey][]Response),
	}
	for key, max := range maxVersions {
		b.apiVersions = append(b.apiVersions, kproto.ApiVersionKey{APIKey: key, MinVersion: 0, MaxVersion: max})
	}
	b.wg.Add(1)
	go b.acceptLoop()
	return b, nil
}

// DefaultMaxVersions is a reasonable "modern broker" ApiVersions table
// covering every API this client speaks, for tests that don't care about
// version-downgrade behavior specifically.
func DefaultMaxVersions() map[int16]int16 {
	return map[int16]int16{
		kproto.KeyProduce:            9,
		kproto.KeyFetch:              13,
		kproto.KeyListOffsets:        7,
		kproto.KeyMetadata:           9,
		kproto.KeyOffsetCommit:       8,
		kproto.KeyOffsetFetch:        6,
		kproto.KeyFindCoordinator:    3,
		kproto.KeyJoinGroup:          9,
		kproto.KeySyncGroup:          5,
		kproto.KeyHeartbeat:          4,
		kproto.KeyLeaveGroup:         5,
		kproto.KeyCreateTopics:       5,
		kproto.KeyDeleteTopics:       4,
		kproto.KeySaslHandshake:      1,
		kproto.KeyApiVersions:        3,
		kproto.KeyInitProducerId:     4,
		kproto.KeyOffsetDelete:       0,
		kproto.KeySaslAuthenticate:   2,
		kproto.KeyCreatePartitions:   3,
		kproto.KeyAddPartitionsToTxn: 3,
		kproto.KeyAddOffsetsToTxn:    3,
		kproto.KeyEndTxn:             3,
		kproto.KeyTxnOffsetCommit:    3,
		kproto.KeyDescribeAcls:       2,
		kproto.KeyCreateAcls:         3,
		kproto.KeyDeleteAcls:         3,
		kproto.KeyDescribeConfigs:    4,
		kproto.KeyAlterConfigs:       1,
		kproto.KeyDescribeGroups:     5,
		kproto.KeyListGroups:         4,
		kproto.KeyDeleteGroups:       2,
	}
}

// Addr is the "host:port" a kafka.Client should use as its seed broker.
func (b *Broker) Addr() string { return b.ln.Addr().String() }

// Close stops accepting connections. Already-open connections are
// abandoned; tests close their *kafka.Client first.
func (b *Broker) Close() error {
	err := b.ln.Close()
	b.wg.Wait()
	return err
}

// Script queues one or more canned responses for (apiKey, version): the
// Nth request the fake broker receives for that key gets the Nth
// response. Once exhausted, the last response is repeated indefinitely —
// most tests only care about the steady state after priming a handshake
// sequence (e.g. JoinGroup's initial UNKNOWN_MEMBER_ID rejoin dance).
func (b *Broker) Script(key ScriptKey, responses ...Response) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scripts[key] = append(b.scripts[key], responses...)
}

func (b *Broker) acceptLoop() {
	defer b.wg.Done()
	for {
		conn, err := b.ln.Accept()
		if err != nil {
			return
		}
		b.wg.Add(1)
		go b.handleConn(conn)
	}
}

func (b *Broker) handleConn(conn net.Conn) {
	defer b.wg.Done()
	defer conn.Close()
	for {
		size, err := readSize(conn)
		if err != nil {
			return
		}
		frame := make([]byte, size)
		if _, err := io.ReadFull(conn, frame); err != nil {
			return
		}
		resp, corrID, flexHeader, err := b.handleFrame(frame)
		if err != nil {
			return
		}
		if err := writeFrame(conn, corrID, flexHeader, resp); err != nil {
			return
		}
	}
}

func readSize(r io.Reader) (int32, error) {
	buf := make([]byte, 4)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(buf)), nil
}

// handleFrame parses the standard request header and dispatches to
// either the built-in ApiVersions handler or the next scripted response
// for (apiKey, version).
func (b *Broker) handleFrame(frame []byte) (body []byte, corrID int32, flexHeader bool, err error) {
	r := kwire.NewReader(frame)
	apiKey := r.Int16()
	apiVersion := r.Int16()
	corrID = r.Int32()
	r.String() // client id, legacy encoding regardless of body flexibility

	flexHeader = isFlexible(apiKey, apiVersion) && apiKey != kproto.KeyApiVersions
	if flexHeader {
		r.SkipTags()
	}
	if err := r.Err(); err != nil {
		return nil, corrID, false, err
	}

	if apiKey == kproto.KeyApiVersions {
		return b.apiVersionsBody(apiVersion), corrID, false, nil
	}

	key := ScriptKey{APIKey: apiKey, Version: apiVersion}
	b.mu.Lock()
	queue := b.scripts[key]
	var next Response
	if len(queue) > 0 {
		if len(queue) > 1 {
			next, b.scripts[key] = queue[0], queue[1:]
		} else {
			next = queue[0]
		}
	} else {
		next = Response{Body: []byte{}}
	}
	b.mu.Unlock()

	return next.Body, corrID, isFlexible(apiKey, apiVersion), nil
}

func (b *Broker) apiVersionsBody(version int16) []byte {
	w := kwire.NewWriter(64)
	w.Int16(0) // error code
	flex := version >= 3
	if flex {
		w.CompactArrayLen(len(b.apiVersions), false)
	} else {
		w.ArrayLen(len(b.apiVersions), false)
	}
	for _, k := range b.apiVersions {
		w.Int16(k.APIKey)
		w.Int16(k.MinVersion)
		w.Int16(k.MaxVersion)
		if flex {
			w.EmptyTags()
		}
	}
	if version >= 1 {
		w.Int32(0) // throttle millis
	}
	if flex {
		w.EmptyTags()
	}
	return w.Bytes()
}

func writeFrame(conn net.Conn, corrID int32, flexHeader bool, body []byte) error {
	w := kwire.NewWriter(len(body) + 16)
	sizeOff := w.Int32Slot()
	w.Int32(corrID)
	if flexHeader {
		w.EmptyTags()
	}
	w.Raw(body)
	w.PatchInt32(sizeOff, int32(w.Len()-4))
	_, err := conn.Write(w.Bytes())
	return err
}
