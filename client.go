// Package kafka is the public façade of this Kafka client: the Base
// client core (API-version discovery, metadata caching, retry, broker
// and coordinator lookup), the Producer, and the consumer group.
package kafka

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/knactor/kafka/internal/kconn"
	"github.com/knactor/kafka/kerr"
	"github.com/knactor/kafka/kproto"
)

// Client is the Base client described in spec.md §4.6: it owns the
// connection pool, the metadata cache, and the coordinator cache every
// higher-level role (Producer, consumer group, kadmin) is built on.
type Client struct {
	cfg  cfg
	pool *kconn.Pool

	metaMu sync.RWMutex
	meta   *ClusterMetadata
	metaSF singleflight.Group

	coordMu      sync.Mutex
	coordinators map[coordinatorKey]string // -> broker addr

	closeOnce sync.Once
	closed    chan struct{}
}

type coordinatorKey struct {
	kind kproto.CoordinatorKeyType
	id   string
}

// NewClient builds a Client bootstrapped against opts' seed brokers. It
// does not dial anything until the first request; metadata is "created
// lazily on first request" per spec.md §3.
func NewClient(opts ...Opt) (*Client, error) {
	c := defaultCfg()
	for _, o := range opts {
		o.apply(&c)
	}
	if len(c.seedBrokers) == 0 {
		return nil, kerr.New(kerr.KindUser, "at least one seed broker is required")
	}

	pool := kconn.NewPool(kconn.Options{
		Dialer:          c.dialer,
		TLS:             c.tls,
		SASL:            c.sasl,
		ClientID:        c.clientID,
		SoftwareName:    "knactor-kafka",
		SoftwareVersion: c.softwareVersion,
		RequestTimeout:  c.requestTimeout,
		Logger:          c.logger,
		Hooks:           connHooksFrom(c.hooks),
	})

	return &Client{
		cfg:          c,
		pool:         pool,
		coordinators: make(map[coordinatorKey]string),
		closed:       make(chan struct{}),
	}, nil
}

// connHooksFrom passes the Base-client Hooks slice down to the
// connection layer too: a caller's single observer type can implement
// both layers' sub-interfaces (e.g. kconn.BrokerWriteHook here,
// MetadataRefreshHook up here) and receive both.
func connHooksFrom(hooks Hooks) kconn.Hooks {
	out := make(kconn.Hooks, len(hooks))
	for i, h := range hooks {
		out[i] = h
	}
	return out
}

// Close releases every pooled connection. Idempotent.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.pool.CloseAll()
	})
	return nil
}

// seedAddr picks a bootstrap broker to talk to before any metadata has
// been cached.
func (c *Client) seedAddr() string {
	return c.cfg.seedBrokers[0]
}

// anyBrokerAddr returns a broker address to issue a non-partition-scoped
// request against: whatever the cached metadata knows, falling back to
// a seed broker if no metadata has been fetched yet.
func (c *Client) anyBrokerAddr() string {
	c.metaMu.RLock()
	m := c.meta
	c.metaMu.RUnlock()
	if m != nil {
		if addr, ok := m.AnyBrokerAddr(); ok {
			return addr
		}
	}
	return c.seedAddr()
}

// request issues req against addr over role, clipping req's version down
// to whatever that broker advertised for its API key.
func (c *Client) request(ctx context.Context, addr string, role kconn.Role, req kproto.Request) (kproto.Response, error) {
	getCtx := ctx
	if c.cfg.connectTimeout > 0 {
		var cancel context.CancelFunc
		getCtx, cancel = context.WithTimeout(ctx, c.cfg.connectTimeout)
		defer cancel()
	}
	conn, err := c.pool.Get(getCtx, addr, role)
	if err != nil {
		return nil, kerr.Wrap(kerr.KindNetwork, "connecting to "+addr, err)
	}
	req.SetVersion(clipVersion(conn, req.Key(), req.Version()))
	return conn.Do(ctx, req)
}

func clipVersion(conn *kconn.Conn, key, want int16) int16 {
	if max := conn.MaxVersion(key); max >= 0 && max < want {
		return max
	}
	return want
}

// Metadata returns a ClusterMetadata snapshot, refreshing from the
// cluster when the cache is stale, forceUpdate is set, or topics
// includes a topic the cache has never seen. Concurrent refreshes for
// the same topic set (in any order) are coalesced onto a single RPC,
// whatever their forceUpdate.
func (c *Client) Metadata(ctx context.Context, topics []string, forceUpdate bool) (*ClusterMetadata, error) {
	c.metaMu.RLock()
	cur := c.meta
	c.metaMu.RUnlock()

	fresh := cur != nil &&
		time.Since(cur.LastUpdate) < c.cfg.metadataMaxAge &&
		!cur.missingTopics(topics)
	if fresh && !forceUpdate {
		return cur, nil
	}

	key := metadataCacheKey(topics)
	v, err, _ := c.metaSF.Do(key, func() (interface{}, error) {
		return c.refreshMetadata(ctx, topics, forceUpdate)
	})
	if err != nil {
		return nil, err
	}
	return v.(*ClusterMetadata), nil
}

func (c *Client) refreshMetadata(ctx context.Context, topics []string, forced bool) (*ClusterMetadata, error) {
	start := time.Now()
	req := &kproto.MetadataRequest{Topics: topics, AllowAutoTopicCreation: false}
	req.SetVersion(9)

	resp, err := c.request(ctx, c.anyBrokerAddr(), kconn.RoleNormal, req)
	c.cfg.hooks.each(func(h Hook) {
		if hh, ok := h.(MetadataRefreshHook); ok {
			hh.OnMetadataRefresh(topics, forced, time.Since(start), err)
		}
	})
	if err != nil {
		return nil, err
	}
	mr := resp.(*kproto.MetadataResponse)

	next := newClusterMetadata()
	if mr.ClusterID != nil {
		next.ID = *mr.ClusterID
	}
	next.ControllerID = mr.ControllerID
	for _, b := range mr.Brokers {
		next.Brokers[b.NodeID] = BrokerMetadata{NodeID: b.NodeID, Host: b.Host, Port: b.Port, Rack: b.Rack}
	}
	for _, t := range mr.Topics {
		tm := TopicMetadata{Name: t.Name, ErrorCode: t.ErrorCode}
		for _, p := range t.Partitions {
			tm.Partitions = append(tm.Partitions, PartitionMetadata{
				Index:        p.PartitionIndex,
				Leader:       p.LeaderID,
				LeaderEpoch:  p.LeaderEpoch,
				Replicas:     p.ReplicaNodes,
				Isr:          p.IsrNodes,
			})
		}
		next.Topics[t.Name] = tm
	}
	next.LastUpdate = time.Now()

	c.metaMu.Lock()
	if c.meta != nil {
		// Preserve topics the caller isn't asking about again right now;
		// a narrow refresh must not evict broader cached knowledge.
		for name, tm := range c.meta.Topics {
			if _, ok := next.Topics[name]; !ok {
				next.Topics[name] = tm
			}
		}
	}
	c.meta = next
	c.metaMu.Unlock()

	return next, nil
}

// ForceRefreshMetadata invalidates the cache and re-fetches immediately,
// the "forceUpdate" path spec.md §4.6 describes.
func (c *Client) ForceRefreshMetadata(ctx context.Context, topics []string) (*ClusterMetadata, error) {
	return c.Metadata(ctx, topics, true)
}

// LeaderAddr returns the broker address currently leading
// (topic, partition), refreshing metadata first if it's unknown.
func (c *Client) LeaderAddr(ctx context.Context, topic string, partition int32) (string, error) {
	m, err := c.Metadata(ctx, []string{topic}, false)
	if err != nil {
		return "", err
	}
	if addr, ok := m.LeaderAddr(topic, partition); ok {
		return addr, nil
	}
	m, err = c.ForceRefreshMetadata(ctx, []string{topic})
	if err != nil {
		return "", err
	}
	if addr, ok := m.LeaderAddr(topic, partition); ok {
		return addr, nil
	}
	return "", kerr.New(kerr.KindUnsupported, fmt.Sprintf("no leader known for %s[%d]", topic, partition))
}

// Coordinator returns the broker address for the group or transaction
// coordinator identified by id, issuing FindCoordinator and caching the
// result on first lookup.
func (c *Client) Coordinator(ctx context.Context, kind kproto.CoordinatorKeyType, id string) (string, error) {
	key := coordinatorKey{kind: kind, id: id}

	c.coordMu.Lock()
	if addr, ok := c.coordinators[key]; ok {
		c.coordMu.Unlock()
		return addr, nil
	}
	c.coordMu.Unlock()

	req := &kproto.FindCoordinatorRequest{Key: id, KeyType: kind}
	req.SetVersion(3)
	resp, err := c.request(ctx, c.anyBrokerAddr(), kconn.RoleNormal, req)
	if err != nil {
		return "", err
	}
	fr := resp.(*kproto.FindCoordinatorResponse)
	if pe := kerr.ErrorForCode(fr.ErrorCode); pe != nil {
		return "", kerr.Wrap(kerr.KindProtocol, "FindCoordinator", pe)
	}
	addr := fmt.Sprintf("%s:%d", fr.Host, fr.Port)

	c.coordMu.Lock()
	c.coordinators[key] = addr
	c.coordMu.Unlock()
	return addr, nil
}

// Admin issues an admin-category request (topic/ACL/config/group
// management) against any known broker over the normal connection
// role. kadmin is the only intended caller.
func (c *Client) Admin(ctx context.Context, req kproto.Request) (kproto.Response, error) {
	return c.request(ctx, c.anyBrokerAddr(), kconn.RoleNormal, req)
}

// InvalidateCoordinator drops the cached coordinator for (kind, id),
// forcing the next Coordinator call to re-resolve it. Callers do this on
// a NOT_COORDINATOR-class protocol error per spec.md §4.6.
func (c *Client) InvalidateCoordinator(kind kproto.CoordinatorKeyType, id string) {
	c.coordMu.Lock()
	delete(c.coordinators, coordinatorKey{kind: kind, id: id})
	c.coordMu.Unlock()
}
