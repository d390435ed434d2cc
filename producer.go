package kafka

import (
	"context"
	"sync"
	"time"

	"github.com/knactor/kafka/internal/kconn"
	"github.com/knactor/kafka/kerr"
	"github.com/knactor/kafka/kproto"
	"github.com/knactor/kafka/krecord"
	"github.com/knactor/kafka/kwire"
)

// Acks selects how many replicas must persist a batch before the broker
// acknowledges a Produce request.
type Acks int16

const (
	AcksNone   Acks = 0  // fire-and-forget; no response ever sent
	AcksLeader Acks = 1  // leader only
	AcksAll    Acks = -1 // every in-sync replica
)

// Record is one message a caller asks the Producer to send. Partition,
// when non-nil, bypasses the partitioner entirely (spec.md §4.8 "if the
// user supplies a partition, use it").
type Record struct {
	Topic     string
	Partition *int32
	Key       []byte
	Value     []byte
	Headers   []krecord.Header
	Timestamp time.Time
}

// RecordResult is what a successfully produced Record resolves to.
type RecordResult struct {
	Topic     string
	Partition int32
	Offset    int64
}

// ProducerOpt configures a Producer.
type ProducerOpt interface{ apply(*producerCfg) }

type producerOpt struct{ fn func(*producerCfg) }

func (o producerOpt) apply(c *producerCfg) { o.fn(c) }

type producerCfg struct {
	acks            Acks
	compression     krecord.Codec
	timeout         time.Duration
	idempotent      bool
	transactionalID string
	partitioner     Partitioner
}

func defaultProducerCfg() producerCfg {
	return producerCfg{
		acks:        AcksLeader,
		compression: krecord.CodecNone,
		timeout:     30 * time.Second,
		partitioner: NewDefaultPartitioner(),
	}
}

// WithAcks sets the producer's acks level. Default AcksLeader.
func WithAcks(a Acks) ProducerOpt { return producerOpt{func(c *producerCfg) { c.acks = a }} }

// WithCompression sets the batch compression codec. Default CodecNone.
func WithCompression(codec krecord.Codec) ProducerOpt {
	return producerOpt{func(c *producerCfg) { c.compression = codec }}
}

// WithProduceTimeout sets the broker-side timeout a Produce request
// carries (how long the broker waits for the requested acks).
func WithProduceTimeout(d time.Duration) ProducerOpt {
	return producerOpt{func(c *producerCfg) { c.timeout = d }}
}

// WithIdempotent enables idempotent producing: a producer ID/epoch pair
// and per-partition sequence numbers are attached to every batch so the
// broker can reject duplicates.
func WithIdempotent(on bool) ProducerOpt {
	return producerOpt{func(c *producerCfg) { c.idempotent = on }}
}

// WithTransactionalID makes the Producer transactional; implies
// idempotent producing.
func WithTransactionalID(id string) ProducerOpt {
	return producerOpt{func(c *producerCfg) { c.transactionalID = id; c.idempotent = true }}
}

// WithPartitioner overrides the default murmur2/round-robin partitioner.
func WithPartitioner(p Partitioner) ProducerOpt {
	return producerOpt{func(c *producerCfg) { c.partitioner = p }}
}

type topicPartition struct {
	topic     string
	partition int32
}

// batchKey groups records destined for the same broker connection and
// the same (topic, partition) into one record batch.
type batchKey struct {
	broker string
	tp     topicPartition
}

// txnState is the producer's transaction state machine (spec.md §4.8):
// none -> open -> committing|aborting -> completed -> open ...
type txnState int

const (
	txnNone txnState = iota
	txnOpen
	txnCommitting
	txnAborting
	txnCompleted
)

// Producer is the send-side engine: partitioning, batching by
// (leader, topic, partition), optional idempotent sequencing, and the
// two-phase transactional state machine.
type Producer struct {
	client *Client
	cfg    producerCfg

	idMu          sync.Mutex
	haveID        bool
	producerID    int64
	producerEpoch int16
	sequences     map[topicPartition]int32

	txnMu          sync.Mutex
	state          txnState
	knownTxnParts  map[topicPartition]bool
	knownTxnGroups map[string]bool
}

// NewProducer builds a Producer sending through client.
func NewProducer(client *Client, opts ...ProducerOpt) *Producer {
	cfg := defaultProducerCfg()
	for _, o := range opts {
		o.apply(&cfg)
	}
	return &Producer{
		client:         client,
		cfg:            cfg,
		sequences:      make(map[topicPartition]int32),
		knownTxnParts:  make(map[topicPartition]bool),
		knownTxnGroups: make(map[string]bool),
	}
}

// Send assigns a partition to every record lacking one, batches records
// per (leader broker, topic, partition), and issues one Produce RPC per
// broker. Results are returned in the same order as records; a
// partial-batch failure on one broker does not prevent results being
// returned for the others (spec.md §4.8, §7's ResponseError aggregation).
func (p *Producer) Send(ctx context.Context, records []Record) ([]RecordResult, error) {
	if len(records) == 0 {
		return nil, nil
	}
	if p.cfg.idempotent {
		if err := p.ensureProducerID(ctx); err != nil {
			return nil, err
		}
	}

	assigned, brokerOf, err := p.assignPartitions(ctx, records)
	if err != nil {
		return nil, err
	}

	batches := make(map[batchKey][]krecord.Record)
	order := make([]batchKey, 0)
	resultIndex := make(map[batchKey][]int)

	for i, rec := range records {
		tp := assigned[i]
		bk := batchKey{broker: brokerOf[i], tp: tp}
		if _, ok := batches[bk]; !ok {
			order = append(order, bk)
		}
		ts := rec.Timestamp
		if ts.IsZero() {
			ts = time.Now()
		}
		batches[bk] = append(batches[bk], krecord.Record{
			Timestamp: ts.UnixMilli(),
			Key:       rec.Key,
			Value:     rec.Value,
			Headers:   rec.Headers,
		})
		resultIndex[bk] = append(resultIndex[bk], i)
	}

	if p.cfg.transactionalID != "" {
		if err := p.addPartitionsIfNew(ctx, order); err != nil {
			return nil, err
		}
	}

	byBroker := make(map[string][]batchKey)
	for _, bk := range order {
		byBroker[bk.broker] = append(byBroker[bk.broker], bk)
	}

	results := make([]RecordResult, len(records))
	var firstErr error
	for broker, keys := range byBroker {
		req := &kproto.ProduceRequest{
			Acks:          int16(p.cfg.acks),
			TimeoutMillis: int32(p.cfg.timeout / time.Millisecond),
		}
		if p.cfg.transactionalID != "" {
			id := p.cfg.transactionalID
			req.TransactionalID = &id
		}
		req.SetVersion(9)

		byTopic := make(map[string][]kproto.ProducePartitionData)
		var topicOrder []string
		for _, bk := range keys {
			p.idMu.Lock()
			firstSeq := int32(0)
			if p.cfg.idempotent {
				firstSeq = p.sequences[bk.tp]
				p.sequences[bk.tp] += int32(len(batches[bk]))
			}
			producerID, producerEpoch := p.producerID, p.producerEpoch
			p.idMu.Unlock()

			batch := krecord.Batch{
				Records:         batches[bk],
				IsTransactional: p.cfg.transactionalID != "",
				BaseSequence:    firstSeq,
			}
			if p.cfg.idempotent {
				batch.ProducerID = producerID
				batch.ProducerEpoch = producerEpoch
			} else {
				batch.ProducerID = -1
				batch.BaseSequence = -1
			}

			w := kwire.NewWriter(256)
			if err := krecord.Encode(w, batch, p.cfg.compression); err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}

			if _, ok := byTopic[bk.tp.topic]; !ok {
				topicOrder = append(topicOrder, bk.tp.topic)
			}
			byTopic[bk.tp.topic] = append(byTopic[bk.tp.topic], kproto.ProducePartitionData{
				Index:        bk.tp.partition,
				RecordsBytes: w.Bytes(),
			})
		}
		for _, name := range topicOrder {
			req.Topics = append(req.Topics, kproto.ProduceTopicData{Name: name, Partitions: byTopic[name]})
		}

		var resp kproto.Response
		var err error
		if p.cfg.acks == AcksNone {
			resp, err = p.client.request(ctx, broker, kconn.RoleProduce, req)
		} else {
			err = p.client.performWithRetry(ctx, "Produce",
				func(ctx context.Context) error {
					_, rerr := p.client.ForceRefreshMetadata(ctx, topicOrder)
					return rerr
				},
				func(ctx context.Context) error {
					var rerr error
					resp, rerr = p.client.request(ctx, broker, kconn.RoleProduce, req)
					return rerr
				},
			)
		}
		if p.cfg.acks == AcksNone {
			if err != nil && firstErr == nil {
				firstErr = err
			}
			for _, bk := range keys {
				for _, idx := range resultIndex[bk] {
					results[idx] = RecordResult{Topic: bk.tp.topic, Partition: bk.tp.partition, Offset: -1}
				}
			}
			continue
		}
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		pr := resp.(*kproto.ProduceResponse)
		for _, t := range pr.Topics {
			for _, part := range t.Partitions {
				bk := batchKey{broker: broker, tp: topicPartition{topic: t.Name, partition: part.Index}}
				if pe := kerr.ErrorForCode(part.ErrorCode); pe != nil {
					if firstErr == nil {
						firstErr = kerr.Wrap(kerr.KindProtocol, "Produce "+t.Name, pe)
					}
					continue
				}
				offset := part.BaseOffset
				for i, idx := range resultIndex[bk] {
					results[idx] = RecordResult{Topic: t.Name, Partition: part.Index, Offset: offset + int64(i)}
				}
			}
		}
	}

	return results, firstErr
}

// assignPartitions runs the partitioner over every record lacking an
// explicit partition and resolves each record's leader broker address.
func (p *Producer) assignPartitions(ctx context.Context, records []Record) ([]topicPartition, []string, error) {
	topics := uniqueTopics(records)
	meta, err := p.client.Metadata(ctx, topics, false)
	if err != nil {
		return nil, nil, err
	}

	assigned := make([]topicPartition, len(records))
	brokers := make([]string, len(records))
	for i, rec := range records {
		count := meta.PartitionCount(rec.Topic)
		if count == 0 {
			return nil, nil, kerr.New(kerr.KindUnsupported, "unknown topic "+rec.Topic)
		}
		var part int32
		if rec.Partition != nil {
			part = *rec.Partition
		} else {
			part = p.cfg.partitioner.Partition(rec.Topic, rec.Key, count, availableLeaders(meta, rec.Topic))
		}
		addr, ok := meta.LeaderAddr(rec.Topic, part)
		if !ok {
			return nil, nil, kerr.New(kerr.KindUnsupported, "no leader known for "+rec.Topic)
		}
		assigned[i] = topicPartition{topic: rec.Topic, partition: part}
		brokers[i] = addr
	}
	return assigned, brokers, nil
}

func availableLeaders(meta *ClusterMetadata, topic string) []int32 {
	t := meta.Topics[topic]
	out := make([]int32, 0, len(t.Partitions))
	for _, part := range t.Partitions {
		if _, ok := meta.Brokers[part.Leader]; ok {
			out = append(out, part.Index)
		}
	}
	return out
}

func uniqueTopics(records []Record) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range records {
		if !seen[r.Topic] {
			seen[r.Topic] = true
			out = append(out, r.Topic)
		}
	}
	return out
}

// ensureProducerID obtains producerId/producerEpoch via InitProducerId on
// first use, per spec.md §4.8's idempotency rule.
func (p *Producer) ensureProducerID(ctx context.Context) error {
	p.idMu.Lock()
	if p.haveID {
		p.idMu.Unlock()
		return nil
	}
	p.idMu.Unlock()

	req := &kproto.InitProducerIDRequest{TransactionTimeoutMs: 60000, ProducerID: -1, ProducerEpoch: -1}
	if p.cfg.transactionalID != "" {
		id := p.cfg.transactionalID
		req.TransactionalID = &id
	}
	req.SetVersion(4)

	resp, err := p.client.request(ctx, p.client.anyBrokerAddr(), kconn.RoleNormal, req)
	if err != nil {
		return err
	}
	ir := resp.(*kproto.InitProducerIDResponse)
	if pe := kerr.ErrorForCode(ir.ErrorCode); pe != nil {
		return kerr.Wrap(kerr.KindProtocol, "InitProducerId", pe)
	}

	p.idMu.Lock()
	p.producerID = ir.ProducerID
	p.producerEpoch = ir.ProducerEpoch
	p.haveID = true
	p.idMu.Unlock()
	return nil
}

// BeginTransaction opens a new transaction. Requires a transactional id
// (via WithTransactionalID) and fails with KindUser if one is already
// open — spec.md §5 "attempting a second beginTransaction while one is
// active fails with user".
func (p *Producer) BeginTransaction(ctx context.Context) error {
	if p.cfg.transactionalID == "" {
		return kerr.New(kerr.KindUser, "BeginTransaction requires WithTransactionalID")
	}
	p.txnMu.Lock()
	defer p.txnMu.Unlock()
	if p.state == txnOpen {
		return kerr.New(kerr.KindUser, "a transaction is already open")
	}
	if err := p.ensureProducerID(ctx); err != nil {
		return err
	}
	p.knownTxnParts = make(map[topicPartition]bool)
	p.knownTxnGroups = make(map[string]bool)
	p.state = txnOpen
	return nil
}

func (p *Producer) addPartitionsIfNew(ctx context.Context, keys []batchKey) error {
	p.txnMu.Lock()
	byTopic := make(map[string][]int32)
	var anyNew bool
	for _, k := range keys {
		if !p.knownTxnParts[k.tp] {
			byTopic[k.tp.topic] = append(byTopic[k.tp.topic], k.tp.partition)
			anyNew = true
		}
	}
	p.txnMu.Unlock()
	if !anyNew {
		return nil
	}

	p.idMu.Lock()
	producerID, producerEpoch := p.producerID, p.producerEpoch
	p.idMu.Unlock()

	req := &kproto.AddPartitionsToTxnRequest{
		TransactionalID: p.cfg.transactionalID,
		ProducerID:      producerID,
		ProducerEpoch:   producerEpoch,
	}
	for topic, parts := range byTopic {
		req.Topics = append(req.Topics, kproto.AddPartitionsToTxnTopic{Name: topic, Partitions: parts})
	}
	req.SetVersion(3)

	resp, err := p.client.request(ctx, p.client.anyBrokerAddr(), kconn.RoleNormal, req)
	if err != nil {
		return err
	}
	ar := resp.(*kproto.AddPartitionsToTxnResponse)
	for _, t := range ar.Topics {
		for _, part := range t.Partitions {
			if pe := kerr.ErrorForCode(part.ErrorCode); pe != nil {
				return kerr.Wrap(kerr.KindProtocol, "AddPartitionsToTxn", pe)
			}
		}
	}

	p.txnMu.Lock()
	for _, k := range keys {
		p.knownTxnParts[k.tp] = true
	}
	p.txnMu.Unlock()
	return nil
}

// Commit ends the open transaction, making its records visible to
// read-committed consumers.
func (p *Producer) Commit(ctx context.Context) error { return p.endTxn(ctx, true) }

// Abort ends the open transaction, discarding its records for
// read-committed consumers.
func (p *Producer) Abort(ctx context.Context) error { return p.endTxn(ctx, false) }

func (p *Producer) endTxn(ctx context.Context, committed bool) error {
	p.txnMu.Lock()
	if p.state != txnOpen {
		p.txnMu.Unlock()
		return kerr.New(kerr.KindUser, "no transaction is open")
	}
	if committed {
		p.state = txnCommitting
	} else {
		p.state = txnAborting
	}
	p.txnMu.Unlock()

	p.idMu.Lock()
	producerID, producerEpoch := p.producerID, p.producerEpoch
	p.idMu.Unlock()

	req := &kproto.EndTxnRequest{
		TransactionalID: p.cfg.transactionalID,
		ProducerID:      producerID,
		ProducerEpoch:   producerEpoch,
		Committed:       committed,
	}
	req.SetVersion(3)
	resp, err := p.client.request(ctx, p.client.anyBrokerAddr(), kconn.RoleNormal, req)

	p.txnMu.Lock()
	p.state = txnCompleted
	p.txnMu.Unlock()

	if err != nil {
		return err
	}
	er := resp.(*kproto.EndTxnResponse)
	if pe := kerr.ErrorForCode(er.ErrorCode); pe != nil {
		return kerr.Wrap(kerr.KindProtocol, "EndTxn", pe)
	}

	p.txnMu.Lock()
	p.state = txnNone
	p.txnMu.Unlock()
	return nil
}

// SendOffsetsToTransaction includes a consumer group's offset commit
// atomically in the current transaction: AddOffsetsToTxn, then
// TxnOffsetCommit. offsets maps topic to {partition: next-offset-to-read}
// using the library's offset+1 convention.
func (p *Producer) SendOffsetsToTransaction(ctx context.Context, groupID string, offsets map[string]map[int32]int64) error {
	p.txnMu.Lock()
	if p.state != txnOpen {
		p.txnMu.Unlock()
		return kerr.New(kerr.KindUser, "no transaction is open")
	}
	needsAddOffsets := !p.knownTxnGroups[groupID]
	p.txnMu.Unlock()

	p.idMu.Lock()
	producerID, producerEpoch := p.producerID, p.producerEpoch
	p.idMu.Unlock()

	if needsAddOffsets {
		req := &kproto.AddOffsetsToTxnRequest{
			TransactionalID: p.cfg.transactionalID,
			ProducerID:      producerID,
			ProducerEpoch:   producerEpoch,
			GroupID:         groupID,
		}
		req.SetVersion(3)
		resp, err := p.client.request(ctx, p.client.anyBrokerAddr(), kconn.RoleNormal, req)
		if err != nil {
			return err
		}
		ar := resp.(*kproto.AddOffsetsToTxnResponse)
		if pe := kerr.ErrorForCode(ar.ErrorCode); pe != nil {
			return kerr.Wrap(kerr.KindProtocol, "AddOffsetsToTxn", pe)
		}
		p.txnMu.Lock()
		p.knownTxnGroups[groupID] = true
		p.txnMu.Unlock()
	}

	coordAddr, err := p.client.Coordinator(ctx, kproto.CoordinatorTxn, p.cfg.transactionalID)
	if err != nil {
		return err
	}

	req := &kproto.TxnOffsetCommitRequest{
		TransactionalID: p.cfg.transactionalID,
		GroupID:         groupID,
		ProducerID:      producerID,
		ProducerEpoch:   producerEpoch,
	}
	for topic, parts := range offsets {
		t := kproto.TxnOffsetCommitTopic{Name: topic}
		for part, offset := range parts {
			t.Partitions = append(t.Partitions, kproto.TxnOffsetCommitPartition{Index: part, Offset: offset})
		}
		req.Topics = append(req.Topics, t)
	}
	req.SetVersion(3)

	resp, err := p.client.request(ctx, coordAddr, kconn.RoleNormal, req)
	if err != nil {
		return err
	}
	tr := resp.(*kproto.TxnOffsetCommitResponse)
	for _, t := range tr.Topics {
		for _, part := range t.Partitions {
			if pe := kerr.ErrorForCode(part.ErrorCode); pe != nil {
				return kerr.Wrap(kerr.KindProtocol, "TxnOffsetCommit", pe)
			}
		}
	}
	return nil
}
