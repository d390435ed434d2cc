package kafka

import (
	"context"
	"crypto/tls"
	"net"
	"time"

	"github.com/knactor/kafka/sasl"
)

// Opt configures a Client. The functional-options shape (an interface
// plus private apply methods) follows the cfg/Opt split the franz-go
// reference client uses (OptClient applying to a private clientCfg):
// every With... constructor here returns an Opt that mutates cfg, and
// NewClient folds the slice of Opt onto a set of defaults before
// validating.
type Opt interface {
	apply(*cfg)
}

type opt struct{ fn func(*cfg) }

func (o opt) apply(c *cfg) { o.fn(c) }

type cfg struct {
	clientID        string
	softwareVersion string
	seedBrokers     []string

	dialer func(ctx context.Context, network, addr string) (net.Conn, error)
	tls    *tls.Config
	sasl   sasl.Mechanism

	connectTimeout time.Duration
	requestTimeout time.Duration
	retries        int
	retryDelay     time.Duration
	metadataMaxAge time.Duration

	logger Logger
	hooks  Hooks
}

func defaultCfg() cfg {
	return cfg{
		clientID:        "knactor-kafka",
		softwareVersion: "0.1.0",
		connectTimeout:  10 * time.Second,
		requestTimeout:  30 * time.Second,
		retries:         5,
		retryDelay:      100 * time.Millisecond,
		metadataMaxAge:  5 * time.Minute,
		logger:          nopLogger{},
	}
}

// WithSeedBrokers sets the initial bootstrap broker addresses
// ("host:port"); Metadata requests against these discover the rest of
// the cluster. Required — NewClient fails validation without at least
// one.
func WithSeedBrokers(addrs ...string) Opt {
	return opt{func(c *cfg) { c.seedBrokers = addrs }}
}

// WithClientID sets the client-id sent in every request header.
func WithClientID(id string) Opt {
	return opt{func(c *cfg) { c.clientID = id }}
}

// WithDialer overrides how the client opens raw TCP connections to
// brokers; the default is a 10s-timeout net.Dialer.
func WithDialer(dial func(ctx context.Context, network, addr string) (net.Conn, error)) Opt {
	return opt{func(c *cfg) { c.dialer = dial }}
}

// WithTLS enables TLS on every broker connection.
func WithTLS(t *tls.Config) Opt {
	return opt{func(c *cfg) { c.tls = t }}
}

// WithSASL authenticates every broker connection with mech.
func WithSASL(mech sasl.Mechanism) Opt {
	return opt{func(c *cfg) { c.sasl = mech }}
}

// WithConnectTimeout bounds how long opening a new broker connection may
// take: the dial and any SASL step that honours the context. Each
// ApiVersions/SASL read during startup is bounded by the request timeout.
func WithConnectTimeout(d time.Duration) Opt {
	return opt{func(c *cfg) { c.connectTimeout = d }}
}

// WithRequestTimeout bounds each individual request's write+read round
// trip.
func WithRequestTimeout(d time.Duration) Opt {
	return opt{func(c *cfg) { c.requestTimeout = d }}
}

// WithRetries sets how many additional attempts performWithRetry makes
// after a retriable failure before giving up.
func WithRetries(n int) Opt {
	return opt{func(c *cfg) { c.retries = n }}
}

// WithRetryDelay sets the linear backoff between retry attempts.
func WithRetryDelay(d time.Duration) Opt {
	return opt{func(c *cfg) { c.retryDelay = d }}
}

// WithMetadataMaxAge sets how long a cached ClusterMetadata snapshot is
// served without a refresh.
func WithMetadataMaxAge(d time.Duration) Opt {
	return opt{func(c *cfg) { c.metadataMaxAge = d }}
}

// WithLogger sets the logger every component of this client writes
// through. Defaults to a no-op logger.
func WithLogger(l Logger) Opt {
	return opt{func(c *cfg) { c.logger = l }}
}

// WithHooks registers diagnostic observers; see the Hook sub-interfaces
// in hooks.go.
func WithHooks(hooks ...Hook) Opt {
	return opt{func(c *cfg) { c.hooks = append(c.hooks, hooks...) }}
}
