package kafka

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/knactor/kafka/internal/kconn"
	"github.com/knactor/kafka/kerr"
	"github.com/knactor/kafka/kproto"
	"github.com/knactor/kafka/krecord"
	"github.com/knactor/kafka/kwire"
)

// IsolationLevel selects whether Fetch exposes records from open/aborted
// transactions (ReadUncommitted) or only ones from committed transactions
// (ReadCommitted) — spec.md §4.8's visibility rule for transactional
// producing.
type IsolationLevel int8

const (
	ReadUncommitted IsolationLevel = 0
	ReadCommitted   IsolationLevel = 1
)

// GroupState is the consumer group member's join/sync/heartbeat state
// machine (spec.md §4.9).
type GroupState int

const (
	GroupUnjoined GroupState = iota
	GroupJoining
	GroupSyncing
	GroupStable
	GroupRebalancing
)

func (s GroupState) String() string {
	switch s {
	case GroupUnjoined:
		return "unjoined"
	case GroupJoining:
		return "joining"
	case GroupSyncing:
		return "syncing"
	case GroupStable:
		return "stable"
	case GroupRebalancing:
		return "rebalancing"
	default:
		return "unknown"
	}
}

// Message is one record delivered to a consumer.
type Message struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   []krecord.Header
	Timestamp time.Time
}

// AssignStrategy computes each member's partition assignment given the
// full member list and every partition available across the group's
// subscribed topics.
type AssignStrategy interface {
	Assign(members []string, topicPartitions map[string][]int32) map[string]map[string][]int32
}

// rangeAssignor assigns each topic's partitions to members in contiguous
// ranges, sorted by member ID — the Kafka default "range" strategy.
type rangeAssignor struct{}

func (rangeAssignor) Assign(members []string, topicPartitions map[string][]int32) map[string]map[string][]int32 {
	sortedMembers := append([]string(nil), members...)
	sort.Strings(sortedMembers)

	out := make(map[string]map[string][]int32, len(members))
	for _, m := range sortedMembers {
		out[m] = make(map[string][]int32)
	}

	for topic, parts := range topicPartitions {
		sorted := append([]int32(nil), parts...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		n := len(sortedMembers)
		if n == 0 {
			continue
		}
		per := len(sorted) / n
		extra := len(sorted) % n
		idx := 0
		for i, m := range sortedMembers {
			count := per
			if i < extra {
				count++
			}
			out[m][topic] = append(out[m][topic], sorted[idx:idx+count]...)
			idx += count
		}
	}
	return out
}

// roundRobinAssignor deals every subscribed topic's partitions to members
// one at a time, in round-robin order.
type roundRobinAssignor struct{}

func (roundRobinAssignor) Assign(members []string, topicPartitions map[string][]int32) map[string]map[string][]int32 {
	sortedMembers := append([]string(nil), members...)
	sort.Strings(sortedMembers)

	out := make(map[string]map[string][]int32, len(members))
	for _, m := range sortedMembers {
		out[m] = make(map[string][]int32)
	}
	if len(sortedMembers) == 0 {
		return out
	}

	topics := make([]string, 0, len(topicPartitions))
	for t := range topicPartitions {
		topics = append(topics, t)
	}
	sort.Strings(topics)

	i := 0
	for _, topic := range topics {
		parts := append([]int32(nil), topicPartitions[topic]...)
		sort.Slice(parts, func(a, b int) bool { return parts[a] < parts[b] })
		for _, p := range parts {
			m := sortedMembers[i%len(sortedMembers)]
			out[m][topic] = append(out[m][topic], p)
			i++
		}
	}
	return out
}

// NewRangeAssignor is the Kafka default partition-assignment strategy.
func NewRangeAssignor() AssignStrategy { return rangeAssignor{} }

// NewRoundRobinAssignor spreads partitions evenly across members
// regardless of per-topic boundaries.
func NewRoundRobinAssignor() AssignStrategy { return roundRobinAssignor{} }

const consumerProtocolType = "consumer"
const consumerProtocolName = "range"

// ConsumerOpt configures a ConsumerGroup.
type ConsumerOpt interface{ apply(*consumerCfg) }

type consumerOpt struct{ fn func(*consumerCfg) }

func (o consumerOpt) apply(c *consumerCfg) { o.fn(c) }

type consumerCfg struct {
	sessionTimeout    time.Duration
	rebalanceTimeout  time.Duration
	heartbeatInterval time.Duration
	isolationLevel    IsolationLevel
	fetchMinBytes     int32
	fetchMaxBytes     int32
	fetchMaxWait      time.Duration
	autoCommit        bool
	autoCommitEvery   time.Duration
	assignor          AssignStrategy
	bufferSize        int
}

func defaultConsumerCfg() consumerCfg {
	return consumerCfg{
		sessionTimeout:    30 * time.Second,
		rebalanceTimeout:  60 * time.Second,
		heartbeatInterval: 3 * time.Second,
		isolationLevel:    ReadUncommitted,
		fetchMinBytes:     1,
		fetchMaxBytes:     10 << 20,
		fetchMaxWait:      500 * time.Millisecond,
		autoCommit:        true,
		autoCommitEvery:   5 * time.Second,
		assignor:          NewRangeAssignor(),
		bufferSize:        1000,
	}
}

func WithSessionTimeout(d time.Duration) ConsumerOpt {
	return consumerOpt{func(c *consumerCfg) { c.sessionTimeout = d }}
}

func WithHeartbeatInterval(d time.Duration) ConsumerOpt {
	return consumerOpt{func(c *consumerCfg) { c.heartbeatInterval = d }}
}

func WithIsolationLevel(l IsolationLevel) ConsumerOpt {
	return consumerOpt{func(c *consumerCfg) { c.isolationLevel = l }}
}

func WithFetchMaxWait(d time.Duration) ConsumerOpt {
	return consumerOpt{func(c *consumerCfg) { c.fetchMaxWait = d }}
}

// WithAutoCommit enables or disables committing consumed offsets on a
// timer. Default true. Disable to call Commit explicitly.
func WithAutoCommit(on bool, every time.Duration) ConsumerOpt {
	return consumerOpt{func(c *consumerCfg) { c.autoCommit = on; c.autoCommitEvery = every }}
}

// WithAssignStrategy overrides the default range assignor.
func WithAssignStrategy(a AssignStrategy) ConsumerOpt {
	return consumerOpt{func(c *consumerCfg) { c.assignor = a }}
}

// ConsumerGroup is one member of a Kafka consumer group: it owns the
// group membership state machine (spec.md §4.9), the assigned-partition
// fetch pump, and offset commits.
type ConsumerGroup struct {
	client  *Client
	groupID string
	topics  []string
	cfg     consumerCfg

	mu           sync.Mutex
	state        GroupState
	memberID     string
	generationID int32
	isLeader     bool
	assignment   map[string][]int32 // topic -> partitions

	positions   map[topicPartition]int64 // next offset to fetch
	consumedMax map[topicPartition]int64 // highest offset+1 seen, for autocommit

	out chan Message

	stopOnce sync.Once
	stop     chan struct{}
	wg       sync.WaitGroup
}

// NewConsumerGroup builds a member of groupID subscribing to topics.
func NewConsumerGroup(client *Client, groupID string, topics []string, opts ...ConsumerOpt) *ConsumerGroup {
	cfg := defaultConsumerCfg()
	for _, o := range opts {
		o.apply(&cfg)
	}
	return &ConsumerGroup{
		client:      client,
		groupID:     groupID,
		topics:      topics,
		cfg:         cfg,
		positions:   make(map[topicPartition]int64),
		consumedMax: make(map[topicPartition]int64),
		stop:        make(chan struct{}),
	}
}

// Join performs the JoinGroup/SyncGroup handshake, obtaining this
// member's partition assignment, then starts the background heartbeat
// and fetch pump. Messages() becomes readable only after Join
// returns successfully.
func (g *ConsumerGroup) Join(ctx context.Context) error {
	g.mu.Lock()
	g.state = GroupJoining
	g.mu.Unlock()

	if err := g.joinAndSync(ctx); err != nil {
		return err
	}

	g.out = make(chan Message, g.cfg.bufferSize)
	g.wg.Add(2)
	go g.heartbeatLoop()
	go g.fetchLoop()
	if g.cfg.autoCommit {
		g.wg.Add(1)
		go g.autoCommitLoop()
	}
	return nil
}

func (g *ConsumerGroup) coordinatorAddr(ctx context.Context) (string, error) {
	return g.client.Coordinator(ctx, kproto.CoordinatorGroup, g.groupID)
}

func (g *ConsumerGroup) joinAndSync(ctx context.Context) error {
	coord, err := g.coordinatorAddr(ctx)
	if err != nil {
		return err
	}

	g.mu.Lock()
	memberID := g.memberID
	g.mu.Unlock()

	joinReq := &kproto.JoinGroupRequest{
		GroupID:            g.groupID,
		SessionTimeoutMs:   int32(g.cfg.sessionTimeout / time.Millisecond),
		RebalanceTimeoutMs: int32(g.cfg.rebalanceTimeout / time.Millisecond),
		MemberID:           memberID,
		ProtocolType:       consumerProtocolType,
		Protocols: []kproto.JoinGroupProtocol{
			{Name: consumerProtocolName, Metadata: encodeSubscription(g.topics)},
		},
	}
	joinReq.SetVersion(9)

	resp, err := g.client.request(ctx, coord, kconn.RoleNormal, joinReq)
	if err != nil {
		return err
	}
	joinResp := resp.(*kproto.JoinGroupResponse)
	if pe := kerr.ErrorForCode(joinResp.ErrorCode); pe != nil {
		if pe.NeedsRejoin {
			g.mu.Lock()
			g.memberID = ""
			g.mu.Unlock()
			g.client.InvalidateCoordinator(kproto.CoordinatorGroup, g.groupID)
		}
		return kerr.Wrap(kerr.KindProtocol, "JoinGroup", pe)
	}

	g.mu.Lock()
	g.memberID = joinResp.MemberID
	g.generationID = joinResp.GenerationID
	g.isLeader = joinResp.Leader == joinResp.MemberID
	isLeader := g.isLeader
	g.mu.Unlock()

	var assignments []kproto.SyncGroupAssignment
	if isLeader {
		topicPartitions, err := g.subscribedPartitions(ctx)
		if err != nil {
			return err
		}
		members := make([]string, 0, len(joinResp.Members))
		for _, m := range joinResp.Members {
			members = append(members, m.MemberID)
		}
		perMember := g.cfg.assignor.Assign(members, topicPartitions)
		for member, topics := range perMember {
			assignments = append(assignments, kproto.SyncGroupAssignment{
				MemberID:   member,
				Assignment: encodeAssignment(topics),
			})
		}
	}

	syncReq := &kproto.SyncGroupRequest{
		GroupID:      g.groupID,
		GenerationID: joinResp.GenerationID,
		MemberID:     joinResp.MemberID,
		Assignments:  assignments,
	}
	syncReq.SetVersion(5)

	resp, err = g.client.request(ctx, coord, kconn.RoleNormal, syncReq)
	if err != nil {
		return err
	}
	syncResp := resp.(*kproto.SyncGroupResponse)
	if pe := kerr.ErrorForCode(syncResp.ErrorCode); pe != nil {
		return kerr.Wrap(kerr.KindProtocol, "SyncGroup", pe)
	}

	assignment := decodeAssignment(syncResp.Assignment)

	g.mu.Lock()
	from := g.state
	g.assignment = assignment
	g.state = GroupStable
	for topic, parts := range assignment {
		for _, p := range parts {
			tp := topicPartition{topic: topic, partition: p}
			if _, ok := g.positions[tp]; !ok {
				g.positions[tp] = 0
			}
		}
	}
	g.mu.Unlock()

	g.client.cfg.hooks.each(func(h Hook) {
		if hh, ok := h.(RebalanceHook); ok {
			hh.OnRebalance(g.groupID, from, GroupStable, nil)
		}
	})
	return nil
}

func (g *ConsumerGroup) subscribedPartitions(ctx context.Context) (map[string][]int32, error) {
	meta, err := g.client.Metadata(ctx, g.topics, false)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]int32, len(g.topics))
	for _, topic := range g.topics {
		t := meta.Topics[topic]
		for _, p := range t.Partitions {
			out[topic] = append(out[topic], p.Index)
		}
	}
	return out, nil
}

// Assignment returns this member's current topic -> partitions mapping.
func (g *ConsumerGroup) Assignment() map[string][]int32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[string][]int32, len(g.assignment))
	for t, p := range g.assignment {
		out[t] = append([]int32(nil), p...)
	}
	return out
}

// State returns the member's current group state.
func (g *ConsumerGroup) State() GroupState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Messages returns the channel fetched records are delivered on.
func (g *ConsumerGroup) Messages() <-chan Message { return g.out }

func (g *ConsumerGroup) heartbeatLoop() {
	defer g.wg.Done()
	ticker := time.NewTicker(g.cfg.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-g.stop:
			return
		case <-ticker.C:
			g.heartbeatOnce()
		}
	}
}

func (g *ConsumerGroup) heartbeatOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), g.cfg.sessionTimeout)
	defer cancel()

	coord, err := g.coordinatorAddr(ctx)
	if err != nil {
		return
	}
	g.mu.Lock()
	memberID, genID := g.memberID, g.generationID
	g.mu.Unlock()

	req := &kproto.HeartbeatRequest{GroupID: g.groupID, GenerationID: genID, MemberID: memberID}
	req.SetVersion(4)
	start := time.Now()
	resp, err := g.client.request(ctx, coord, kconn.RoleNormal, req)
	dur := time.Since(start)

	var hbErr error
	if err != nil {
		hbErr = err
	} else {
		hr := resp.(*kproto.HeartbeatResponse)
		if pe := kerr.ErrorForCode(hr.ErrorCode); pe != nil {
			hbErr = kerr.Wrap(kerr.KindProtocol, "Heartbeat", pe)
			if pe.RebalanceInProgress || pe.NeedsRejoin {
				g.mu.Lock()
				g.state = GroupRebalancing
				g.mu.Unlock()
				_ = g.joinAndSync(ctx)
			}
		}
	}

	g.client.cfg.hooks.each(func(h Hook) {
		if hh, ok := h.(HeartbeatHook); ok {
			hh.OnHeartbeat(g.groupID, dur, hbErr)
		}
	})
}

func (g *ConsumerGroup) fetchLoop() {
	defer g.wg.Done()
	for {
		select {
		case <-g.stop:
			close(g.out)
			return
		default:
		}
		g.fetchOnce()
	}
}

func (g *ConsumerGroup) fetchOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), g.cfg.fetchMaxWait+5*time.Second)
	defer cancel()

	assignment := g.Assignment()
	if len(assignment) == 0 {
		select {
		case <-time.After(g.cfg.heartbeatInterval):
		case <-g.stop:
		}
		return
	}

	byBroker := make(map[string][]topicPartition)
	for topic, parts := range assignment {
		for _, part := range parts {
			addr, err := g.client.LeaderAddr(ctx, topic, part)
			if err != nil {
				continue
			}
			byBroker[addr] = append(byBroker[addr], topicPartition{topic: topic, partition: part})
		}
	}

	for addr, tps := range byBroker {
		select {
		case <-g.stop:
			return
		default:
		}
		g.fetchFromBroker(ctx, addr, tps)
	}
}

func (g *ConsumerGroup) fetchFromBroker(ctx context.Context, addr string, tps []topicPartition) {
	byTopic := make(map[string][]kproto.FetchPartition)
	var topicOrder []string
	g.mu.Lock()
	for _, tp := range tps {
		offset := g.positions[tp]
		if _, ok := byTopic[tp.topic]; !ok {
			topicOrder = append(topicOrder, tp.topic)
		}
		byTopic[tp.topic] = append(byTopic[tp.topic], kproto.FetchPartition{
			Index:             tp.partition,
			FetchOffset:       offset,
			PartitionMaxBytes: g.cfg.fetchMaxBytes,
		})
	}
	g.mu.Unlock()

	req := &kproto.FetchRequest{
		ReplicaID:      -1,
		MaxWaitMillis:  int32(g.cfg.fetchMaxWait / time.Millisecond),
		MinBytes:       g.cfg.fetchMinBytes,
		MaxBytes:       g.cfg.fetchMaxBytes,
		IsolationLevel: int8(g.cfg.isolationLevel),
	}
	for _, name := range topicOrder {
		req.Topics = append(req.Topics, kproto.FetchTopic{Name: name, Partitions: byTopic[name]})
	}
	// v13 replaces the topic name with a topic UUID in both request and
	// response (KIP-516); this client doesn't carry topic IDs through
	// metadata yet, so it pins Fetch at v12, the last name-based flexible
	// version.
	req.SetVersion(12)

	resp, err := g.client.request(ctx, addr, kconn.RoleFetch, req)
	if err != nil {
		return
	}
	fr := resp.(*kproto.FetchResponse)

	for _, t := range fr.Topics {
		for _, part := range t.Partitions {
			if pe := kerr.ErrorForCode(part.ErrorCode); pe != nil {
				if pe.StaleMetadata {
					_, _ = g.client.ForceRefreshMetadata(ctx, []string{t.Name})
				}
				continue
			}
			g.deliverPartition(t.Name, part)
		}
	}
}

func (g *ConsumerGroup) deliverPartition(topic string, part kproto.FetchedPartition) {
	tp := topicPartition{topic: topic, partition: part.Index}
	batches, err := krecord.DecodeAll(part.RecordsBytes)
	if err != nil {
		return
	}

	aborted := make(map[int64]int64, len(part.AbortedTransactions))
	for _, at := range part.AbortedTransactions {
		aborted[at.ProducerID] = at.FirstOffset
	}

	var lastOffset int64 = -1
	for _, b := range batches {
		if b.IsControlBatch {
			lastOffset = b.FirstOffset + int64(len(b.Records)) - 1
			continue
		}
		skip := false
		if g.cfg.isolationLevel == ReadCommitted && b.IsTransactional {
			if first, ok := aborted[b.ProducerID]; ok && b.FirstOffset >= first {
				skip = true
			}
		}
		for _, rec := range b.Records {
			if !skip {
				select {
				case g.out <- Message{
					Topic:     topic,
					Partition: part.Index,
					Offset:    rec.Offset,
					Key:       rec.Key,
					Value:     rec.Value,
					Headers:   rec.Headers,
					Timestamp: time.UnixMilli(rec.Timestamp),
				}:
				case <-g.stop:
					return
				}
			}
			lastOffset = rec.Offset
		}
	}

	if lastOffset >= 0 {
		g.mu.Lock()
		g.positions[tp] = lastOffset + 1
		g.consumedMax[tp] = lastOffset + 1
		g.mu.Unlock()
	}
}

// Commit commits the highest offset delivered on every assigned
// partition, using the library's offset+1 convention.
func (g *ConsumerGroup) Commit(ctx context.Context) error {
	g.mu.Lock()
	memberID, genID := g.memberID, g.generationID
	byTopic := make(map[string][]kproto.OffsetCommitPartition)
	for tp, offset := range g.consumedMax {
		byTopic[tp.topic] = append(byTopic[tp.topic], kproto.OffsetCommitPartition{Index: tp.partition, Offset: offset})
	}
	g.mu.Unlock()

	if len(byTopic) == 0 {
		return nil
	}

	coord, err := g.coordinatorAddr(ctx)
	if err != nil {
		return err
	}

	req := &kproto.OffsetCommitRequest{GroupID: g.groupID, GenerationID: genID, MemberID: memberID}
	for topic, parts := range byTopic {
		req.Topics = append(req.Topics, kproto.OffsetCommitTopic{Name: topic, Partitions: parts})
	}
	req.SetVersion(8)

	resp, err := g.client.request(ctx, coord, kconn.RoleNormal, req)
	if err != nil {
		return err
	}
	cr := resp.(*kproto.OffsetCommitResponse)
	for _, t := range cr.Topics {
		for _, part := range t.Partitions {
			if pe := kerr.ErrorForCode(part.ErrorCode); pe != nil {
				return kerr.Wrap(kerr.KindProtocol, "OffsetCommit", pe)
			}
		}
	}
	return nil
}

func (g *ConsumerGroup) autoCommitLoop() {
	defer g.wg.Done()
	ticker := time.NewTicker(g.cfg.autoCommitEvery)
	defer ticker.Stop()
	for {
		select {
		case <-g.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), g.cfg.sessionTimeout)
			_ = g.Commit(ctx)
			cancel()
		}
	}
}

// Close leaves the group and stops the background heartbeat and fetch
// pump. Idempotent.
func (g *ConsumerGroup) Close(ctx context.Context) error {
	var leaveErr error
	g.stopOnce.Do(func() {
		close(g.stop)
		g.wg.Wait()

		g.mu.Lock()
		memberID := g.memberID
		g.mu.Unlock()
		if memberID == "" {
			return
		}
		coord, err := g.coordinatorAddr(ctx)
		if err != nil {
			leaveErr = err
			return
		}
		req := &kproto.LeaveGroupRequest{
			GroupID:  g.groupID,
			MemberID: memberID,
			Members:  []kproto.LeaveGroupMember{{MemberID: memberID}},
		}
		req.SetVersion(5)
		_, leaveErr = g.client.request(ctx, coord, kconn.RoleNormal, req)
	})
	return leaveErr
}

// encodeSubscription/encodeAssignment/decodeAssignment implement the
// "consumer" embedded protocol's ConsumerProtocolSubscription and
// ConsumerProtocolAssignment payloads (a handful of ad hoc length-prefixed
// fields, not a standalone Kafka API so kwire's helpers are used directly
// rather than a dedicated kproto type).
func encodeSubscription(topics []string) []byte {
	w := kwire.NewWriter(64)
	w.Int16(0) // version
	w.Int32(int32(len(topics)))
	for _, t := range topics {
		w.Int16(int16(len(t)))
		w.Raw([]byte(t))
	}
	w.Int32(0) // empty user data
	return w.Bytes()
}

func encodeAssignment(topics map[string][]int32) []byte {
	w := kwire.NewWriter(64)
	w.Int16(0) // version
	w.Int32(int32(len(topics)))
	names := make([]string, 0, len(topics))
	for t := range topics {
		names = append(names, t)
	}
	sort.Strings(names)
	for _, t := range names {
		w.Int16(int16(len(t)))
		w.Raw([]byte(t))
		parts := topics[t]
		w.Int32(int32(len(parts)))
		for _, p := range parts {
			w.Int32(p)
		}
	}
	w.Int32(0) // empty user data
	return w.Bytes()
}

func decodeAssignment(b []byte) map[string][]int32 {
	r := kwire.NewReader(b)
	r.Int16() // version
	n := r.Int32()
	out := make(map[string][]int32, n)
	for i := int32(0); i < n; i++ {
		nameLen := r.Int16()
		name := string(r.Span(int(nameLen)))
		nParts := r.Int32()
		parts := make([]int32, nParts)
		for j := int32(0); j < nParts; j++ {
			parts[j] = r.Int32()
		}
		out[name] = parts
	}
	return out
}
