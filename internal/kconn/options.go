// Package kconn owns the one-TCP-connection-per-broker-role transport: a
// connection dials, negotiates ApiVersions, runs the SASL handshake if
// configured, then multiplexes concurrent requests over correlation IDs.
// Pool keeps a small set of these connections per broker address.
package kconn

import (
	"context"
	"crypto/tls"
	"net"
	"time"

	"github.com/knactor/kafka/sasl"
)

// Logger is the minimal logging interface the connection layer writes to;
// satisfied by github.com/go-kit/log.Logger.
type Logger interface {
	Log(keyvals ...interface{}) error
}

type nopLogger struct{}

func (nopLogger) Log(...interface{}) error { return nil }

// Hook is implemented by any type wanting to observe connection-layer
// events. A caller registers a Hooks slice mixing whichever of the
// sub-interfaces below it implements; kconn type-switches each hook at
// the point it's called, mirroring how a single struct can observe reads,
// writes, and connects without implementing unrelated methods as no-ops.
type Hook interface{}

// BrokerConnectHook observes a completed (or failed) dial.
type BrokerConnectHook interface {
	OnConnect(addr string, dialDuration time.Duration, err error)
}

// BrokerDisconnectHook observes a connection closing.
type BrokerDisconnectHook interface {
	OnDisconnect(addr string, err error)
}

// BrokerWriteHook observes a single request write.
type BrokerWriteHook interface {
	OnWrite(addr string, apiKey int16, bytesWritten int, writeWait, timeToWrite time.Duration, err error)
}

// BrokerReadHook observes a single response read.
type BrokerReadHook interface {
	OnRead(addr string, apiKey int16, bytesRead int, readWait, timeToRead time.Duration, err error)
}

// BrokerThrottleHook observes a broker-reported throttle.
type BrokerThrottleHook interface {
	OnThrottle(addr string, apiKey int16, throttleDuration time.Duration, afterResponse bool)
}

// Hooks is a set of Hook implementations invoked together.
type Hooks []Hook

func (hs Hooks) each(fn func(Hook)) {
	for _, h := range hs {
		fn(h)
	}
}

// Options configures every Conn a Pool opens.
type Options struct {
	// Dialer opens the raw connection; defaults to the DialContext of a
	// net.Dialer with a 10-second timeout.
	Dialer func(ctx context.Context, network, addr string) (net.Conn, error)
	// TLS, if non-nil, wraps the dialed connection in a TLS client.
	TLS *tls.Config
	// SASL is the mechanism used to authenticate each new connection, or
	// nil for PLAINTEXT/TLS-only clusters.
	SASL sasl.Mechanism
	// ClientID is sent in every request header.
	ClientID string
	// SoftwareName/SoftwareVersion are sent in the ApiVersions request
	// (KIP-511); Kafka uses them only for broker-side telemetry.
	SoftwareName    string
	SoftwareVersion string
	// RequestTimeout bounds each individual write+read round trip.
	RequestTimeout time.Duration
	// MaxResponseBytes rejects any frame claiming to be larger than this,
	// guarding against a misread length prefix or a non-Kafka endpoint.
	MaxResponseBytes int32
	// Logger receives connection-lifecycle and protocol-error log lines.
	Logger Logger
	Hooks  Hooks
}

func (o Options) dialer() func(ctx context.Context, network, addr string) (net.Conn, error) {
	if o.Dialer != nil {
		return o.Dialer
	}
	d := &net.Dialer{Timeout: 10 * time.Second}
	return d.DialContext
}

func (o Options) logger() Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return nopLogger{}
}

func (o Options) maxResponseBytes() int32 {
	if o.MaxResponseBytes > 0 {
		return o.MaxResponseBytes
	}
	return 100 << 20
}

func (o Options) requestTimeout() time.Duration {
	if o.RequestTimeout > 0 {
		return o.RequestTimeout
	}
	return 30 * time.Second
}
