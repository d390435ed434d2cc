package kconn

import (
	"context"
	"sync"
	"time"
)

// Role distinguishes the three connections a Pool keeps per broker.
// Kafka clients split produce and fetch traffic onto their own sockets
// so that a large, slow fetch response can't head-of-line block a
// latency-sensitive produce ack, and vice versa; everything else
// (metadata, group coordination, admin calls) shares the normal one.
type Role int

const (
	RoleNormal Role = iota
	RoleProduce
	RoleFetch
)

// Pool lazily opens and caches one Conn per (broker address, Role),
// reopening whenever the cached Conn has died.
type Pool struct {
	opts Options

	mu      sync.RWMutex
	brokers map[string]*brokerConns
}

type brokerConns struct {
	mu                     sync.Mutex
	normal, produce, fetch *Conn
}

// NewPool builds a Pool that opens connections with opts.
func NewPool(opts Options) *Pool {
	return &Pool{opts: opts, brokers: make(map[string]*brokerConns)}
}

// Get returns the cached connection for (addr, role), opening a new one
// if none exists yet or the cached one has died.
func (p *Pool) Get(ctx context.Context, addr string, role Role) (*Conn, error) {
	b := p.brokerFor(addr)

	b.mu.Lock()
	defer b.mu.Unlock()

	slot := b.slot(role)
	if *slot != nil && !(*slot).IsDead() {
		return *slot, nil
	}

	conn, err := Open(ctx, addr, p.opts)
	if err != nil {
		return nil, err
	}
	*slot = conn
	return conn, nil
}

func (p *Pool) brokerFor(addr string) *brokerConns {
	p.mu.RLock()
	b, ok := p.brokers[addr]
	p.mu.RUnlock()
	if ok {
		return b
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if b, ok := p.brokers[addr]; ok {
		return b
	}
	b = &brokerConns{}
	p.brokers[addr] = b
	return b
}

func (b *brokerConns) slot(role Role) **Conn {
	switch role {
	case RoleProduce:
		return &b.produce
	case RoleFetch:
		return &b.fetch
	default:
		return &b.normal
	}
}

// ReapIdle closes every cached connection that has had no in-flight or
// completed request within idleTimeout.
func (p *Pool) ReapIdle(idleTimeout time.Duration) {
	p.mu.RLock()
	all := make([]*brokerConns, 0, len(p.brokers))
	for _, b := range p.brokers {
		all = append(all, b)
	}
	p.mu.RUnlock()

	for _, b := range all {
		b.mu.Lock()
		for _, slot := range []**Conn{&b.normal, &b.produce, &b.fetch} {
			if *slot != nil && !(*slot).IsDead() && (*slot).Idle(idleTimeout) {
				(*slot).Close()
			}
		}
		b.mu.Unlock()
	}
}

// CloseAll closes every connection this pool has opened.
func (p *Pool) CloseAll() {
	p.mu.Lock()
	all := make([]*brokerConns, 0, len(p.brokers))
	for addr, b := range p.brokers {
		all = append(all, b)
		delete(p.brokers, addr)
	}
	p.mu.Unlock()

	for _, b := range all {
		b.mu.Lock()
		for _, slot := range []**Conn{&b.normal, &b.produce, &b.fetch} {
			if *slot != nil {
				(*slot).Close()
			}
		}
		b.mu.Unlock()
	}
}
