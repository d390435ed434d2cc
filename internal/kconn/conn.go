package kconn

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/knactor/kafka/kerr"
	"github.com/knactor/kafka/kproto"
	"github.com/knactor/kafka/kwire"
)

// Conn is a single TCP connection to one broker, fully negotiated
// (ApiVersions discovered, SASL authenticated if configured) by the time
// Open returns it. Writes are serialized; reads are multiplexed across
// concurrent callers by correlation ID, so one Conn can have many
// in-flight requests at once as long as the broker pipelines responses.
type Conn struct {
	addr string
	opts Options
	nc   net.Conn

	writeMu sync.Mutex
	corrID  int32

	versions [kproto.MaxKey + 1]int16

	pendingMu    sync.Mutex
	pending      map[int32]*pendingCall
	inFlightByFP map[string]*pendingCall

	closeOnce sync.Once
	closed    chan struct{}
	closeErr  error

	lastActivity  atomic.Int64 // unix nanos
	inFlight      atomic.Int32
	throttleUntil atomic.Int64 // unix nanos; writes wait until this passes
}

type pendingCall struct {
	fingerprint    string
	flexibleHeader bool
	resp           kproto.Response
	waiters        []chan error
}

func (call *pendingCall) addWaiter() chan error {
	ch := make(chan error, 1)
	call.waiters = append(call.waiters, ch)
	return ch
}

func (call *pendingCall) finish(err error) {
	for _, ch := range call.waiters {
		ch <- err
	}
}

// Open dials addr, negotiates ApiVersions, authenticates over SASL if
// opts.SASL is set, and starts the background read loop. The returned
// Conn is ready for concurrent Do calls.
func Open(ctx context.Context, addr string, opts Options) (*Conn, error) {
	dialStart := time.Now()
	nc, err := opts.dialer()(ctx, "tcp", addr)
	opts.Hooks.each(func(h Hook) {
		if hh, ok := h.(BrokerConnectHook); ok {
			hh.OnConnect(addr, time.Since(dialStart), err)
		}
	})
	if err != nil {
		return nil, kerr.Wrap(kerr.KindNetwork, "dialing "+addr, err)
	}
	if opts.TLS != nil {
		nc = tlsClient(nc, opts.TLS)
	}

	c := &Conn{
		addr:    addr,
		opts:    opts,
		nc:           nc,
		pending:      make(map[int32]*pendingCall),
		inFlightByFP: make(map[string]*pendingCall),
		closed:       make(chan struct{}),
	}
	for i := range c.versions {
		c.versions[i] = -1
	}
	c.touch()

	if err := c.negotiateVersions(ctx); err != nil {
		c.closeWithErr(err)
		return nil, err
	}
	if opts.SASL != nil {
		if err := c.authenticate(ctx, opts.SASL); err != nil {
			c.closeWithErr(err)
			return nil, err
		}
	}

	go c.readLoop()
	return c, nil
}

// Addr is the broker address this connection was opened against.
func (c *Conn) Addr() string { return c.addr }

// IsDead reports whether the connection has been closed, either by the
// caller or because the read loop observed an I/O error.
func (c *Conn) IsDead() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// Idle reports whether no request has completed within d and no request
// is currently in flight, the condition under which a pool may reap this
// connection.
func (c *Conn) Idle(d time.Duration) bool {
	if c.inFlight.Load() > 0 {
		return false
	}
	last := time.Unix(0, c.lastActivity.Load())
	return time.Since(last) > d
}

func (c *Conn) touch() { c.lastActivity.Store(time.Now().UnixNano()) }

func (c *Conn) nextCorrID() int32 { return atomic.AddInt32(&c.corrID, 1) - 1 }

// MaxVersion returns the highest version this broker advertised for
// apiKey, or -1 if ApiVersions negotiation never saw it.
func (c *Conn) MaxVersion(apiKey int16) int16 {
	if apiKey < 0 || int(apiKey) > int(kproto.MaxKey) {
		return -1
	}
	return c.versions[apiKey]
}

// Close shuts down the underlying socket and fails every pending call.
func (c *Conn) Close() error {
	return c.closeWithErr(kerr.New(kerr.KindNetwork, "connection closed"))
}

func (c *Conn) closeWithErr(err error) error {
	c.closeOnce.Do(func() {
		c.closeErr = err
		close(c.closed)
		_ = c.nc.Close()
		c.failAllPending(err)
		c.opts.Hooks.each(func(h Hook) {
			if hh, ok := h.(BrokerDisconnectHook); ok {
				hh.OnDisconnect(c.addr, err)
			}
		})
	})
	return nil
}

func (c *Conn) failAllPending(err error) {
	c.pendingMu.Lock()
	pending := c.pending
	c.pending = make(map[int32]*pendingCall)
	c.inFlightByFP = make(map[string]*pendingCall)
	c.pendingMu.Unlock()
	for _, call := range pending {
		call.finish(err)
	}
}

// Do sends req and blocks for its matching response, or until ctx is
// done, or the connection dies. Callers must pick req's version (via
// MaxVersion) before calling; Conn does not renegotiate per request.
//
// If an identical request (same api key, version, and argument bytes) is
// already in flight on this connection, Do attaches to that call instead
// of writing a duplicate frame; both callers see the same decoded
// response once the one write completes.
func (c *Conn) Do(ctx context.Context, req kproto.Request) (kproto.Response, error) {
	if c.IsDead() {
		return nil, c.closeErr
	}
	body := encodeBody(req)

	if nr, ok := req.(interface{ NoResponse() bool }); ok && nr.NoResponse() {
		return nil, c.doFireAndForget(ctx, req, body)
	}

	fp := fingerprint(req.Key(), req.Version(), body)

	c.pendingMu.Lock()
	if existing, ok := c.inFlightByFP[fp]; ok {
		waitCh := existing.addWaiter()
		c.pendingMu.Unlock()
		return c.awaitCall(ctx, waitCh, existing.resp)
	}

	resp := req.ResponseKind()
	resp.SetVersion(req.Version())
	call := &pendingCall{
		fingerprint:    fp,
		flexibleHeader: req.IsFlexible() && req.Key() != kproto.KeyApiVersions,
		resp:           resp,
	}
	waitCh := call.addWaiter()
	corrID := c.nextCorrID()
	c.pending[corrID] = call
	c.inFlightByFP[fp] = call
	c.pendingMu.Unlock()

	c.inFlight.Add(1)
	defer c.inFlight.Add(-1)

	c.waitOutThrottle(ctx)
	writeStart := time.Now()
	n, err := c.writeFrame(corrID, req.Key(), req.Version(), req.IsFlexible(), body)
	c.opts.Hooks.each(func(h Hook) {
		if hh, ok := h.(BrokerWriteHook); ok {
			hh.OnWrite(c.addr, req.Key(), n, 0, time.Since(writeStart), err)
		}
	})
	if err != nil {
		c.dropPending(corrID, fp)
		call.finish(err)
		return nil, err
	}

	return c.awaitCall(ctx, waitCh, resp)
}

// doFireAndForget writes req without registering a pendingCall: a real
// broker sends no response frame at all for a Produce request with
// acks=0, so there is no correlation id to wait on. The caller only
// learns of a write-time (not a broker-side) failure.
func (c *Conn) doFireAndForget(ctx context.Context, req kproto.Request, body []byte) error {
	corrID := c.nextCorrID()
	c.inFlight.Add(1)
	defer c.inFlight.Add(-1)

	c.waitOutThrottle(ctx)
	writeStart := time.Now()
	n, err := c.writeFrame(corrID, req.Key(), req.Version(), req.IsFlexible(), body)
	c.opts.Hooks.each(func(h Hook) {
		if hh, ok := h.(BrokerWriteHook); ok {
			hh.OnWrite(c.addr, req.Key(), n, 0, time.Since(writeStart), err)
		}
	})
	if err != nil {
		return err
	}
	c.touch()
	return nil
}

func (c *Conn) awaitCall(ctx context.Context, waitCh chan error, resp kproto.Response) (kproto.Response, error) {
	select {
	case err := <-waitCh:
		c.touch()
		if err != nil {
			return nil, err
		}
		return resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.closed:
		return nil, c.closeErr
	}
}

func (c *Conn) dropPending(corrID int32, fp string) {
	c.pendingMu.Lock()
	delete(c.pending, corrID)
	delete(c.inFlightByFP, fp)
	c.pendingMu.Unlock()
}

func (c *Conn) takePending(corrID int32) (*pendingCall, bool) {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	call, ok := c.pending[corrID]
	if ok {
		delete(c.pending, corrID)
		delete(c.inFlightByFP, call.fingerprint)
	}
	return call, ok
}

// writeRequest encodes req's body and writes the full frame; used during
// the pre-readLoop handshake where there's at most one request in flight
// and no fingerprint deduplication applies.
func (c *Conn) writeRequest(corrID int32, req kproto.Request) (int, error) {
	return c.writeFrame(corrID, req.Key(), req.Version(), req.IsFlexible(), encodeBody(req))
}

// waitOutThrottle blocks until any throttle period the broker last
// reported via a response's Throttle() has elapsed, or ctx is done.
// Kafka throttles a client by asking it to slow down rather than
// rejecting requests outright; honoring that here keeps this connection
// from hammering a broker that already told it to back off.
func (c *Conn) waitOutThrottle(ctx context.Context) {
	until := time.Unix(0, c.throttleUntil.Load())
	sleep := time.Until(until)
	if sleep <= 0 {
		return
	}
	t := time.NewTimer(sleep)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	case <-c.closed:
	}
}

// writeFrame frames and writes one request: int32 size, then header,
// then the already-encoded body.
func (c *Conn) writeFrame(corrID int32, apiKey, apiVersion int16, flexible bool, body []byte) (int, error) {
	w := kwire.NewWriter(len(body) + 32)
	sizeOff := w.Int32Slot()
	writeRequestHeader(w, apiKey, apiVersion, corrID, c.opts.ClientID, flexible)
	w.Raw(body)
	w.PatchInt32(sizeOff, int32(w.Len()-4))

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if d := c.opts.requestTimeout(); d > 0 {
		_ = c.nc.SetWriteDeadline(time.Now().Add(d))
		defer c.nc.SetWriteDeadline(time.Time{})
	}
	frame := w.Bytes()
	n, err := c.nc.Write(frame)
	if err != nil {
		return n, kerr.Wrap(kerr.KindNetwork, "writing to "+c.addr, err)
	}
	if n < len(frame) {
		return n, kerr.New(kerr.KindUnfinishedWriteBuffer, "short write to "+c.addr)
	}
	return n, nil
}

// readLoop owns all reads off the socket after negotiation completes,
// dispatching each frame to the pending call with the matching
// correlation ID.
func (c *Conn) readLoop() {
	for {
		readStart := time.Now()
		buf, err := c.readFrame()
		if err != nil {
			c.closeWithErr(kerr.Wrap(kerr.KindNetwork, "reading from "+c.addr, err))
			return
		}
		if len(buf) < 4 {
			c.closeWithErr(kerr.New(kerr.KindProtocol, "short response frame"))
			return
		}
		corrID := int32(binary.BigEndian.Uint32(buf))
		body := buf[4:]

		call, ok := c.takePending(corrID)
		if !ok {
			c.closeWithErr(kerr.New(kerr.KindUnexpectedCorrelationID,
				fmt.Sprintf("unexpected correlation id %d from %s", corrID, c.addr)))
			return
		}

		r := kwire.NewReader(body)
		if call.flexibleHeader {
			r.SkipTags()
		}
		err = call.resp.ReadFrom(r)
		c.opts.Hooks.each(func(h Hook) {
			if hh, ok := h.(BrokerReadHook); ok {
				hh.OnRead(c.addr, call.resp.Key(), len(buf)+4, 0, time.Since(readStart), err)
			}
		})
		if err == nil {
			if millis, afterResp := call.resp.Throttle(); millis > 0 {
				until := time.Now().Add(time.Duration(millis) * time.Millisecond).UnixNano()
				for {
					cur := c.throttleUntil.Load()
					if until <= cur || c.throttleUntil.CompareAndSwap(cur, until) {
						break
					}
				}
				c.opts.Hooks.each(func(h Hook) {
					if hh, ok := h.(BrokerThrottleHook); ok {
						hh.OnThrottle(c.addr, call.resp.Key(), time.Duration(millis)*time.Millisecond, afterResp)
					}
				})
			}
		}
		c.touch()
		call.finish(err)
	}
}

// readFrame reads one int32-size-prefixed frame off the wire.
func (c *Conn) readFrame() ([]byte, error) {
	if d := c.opts.requestTimeout(); d > 0 {
		_ = c.nc.SetReadDeadline(time.Now().Add(d))
		defer c.nc.SetReadDeadline(time.Time{})
	}
	sizeBuf := make([]byte, 4)
	if _, err := io.ReadFull(c.nc, sizeBuf); err != nil {
		return nil, err
	}
	size := int32(binary.BigEndian.Uint32(sizeBuf))
	if size < 0 {
		return nil, fmt.Errorf("negative response size %d", size)
	}
	if size > c.opts.maxResponseBytes() {
		return nil, fmt.Errorf("response size %d exceeds limit %d", size, c.opts.maxResponseBytes())
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(c.nc, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
