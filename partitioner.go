package kafka

import "sync"

// murmur2 is the 32-bit MurmurHash2 variant the Java Kafka client hashes
// record keys with (org.apache.kafka.common.utils.Utils.murmur2). The
// default partitioner's reference vectors (spec.md §8) only match this
// exact constant set — not any other MurmurHash2 seed/constants found in
// general-purpose libraries — so it's reimplemented here rather than
// pulled from a hashing package.
func murmur2(data []byte) int32 {
	const (
		seed = int32(-1756908916) // 0x9747b28c
		m    = int32(1540483477) // 0x5bd1e995
		r    = 24
	)

	length := len(data)
	h := seed ^ int32(length)
	length4 := length / 4

	for i := 0; i < length4; i++ {
		i4 := i * 4
		k := int32(data[i4]) | int32(data[i4+1])<<8 | int32(data[i4+2])<<16 | int32(data[i4+3])<<24
		k *= m
		k ^= int32(uint32(k) >> r)
		k *= m
		h *= m
		h ^= k
	}

	switch length % 4 {
	case 3:
		h ^= int32(data[(length&^3)+2]) << 16
		fallthrough
	case 2:
		h ^= int32(data[(length&^3)+1]) << 8
		fallthrough
	case 1:
		h ^= int32(data[length&^3])
		h *= m
	}

	h ^= int32(uint32(h) >> 13)
	h *= m
	h ^= int32(uint32(h) >> 15)

	return h
}

// murmur2Partition implements the default partitioner's key-based
// assignment: hash & 0x7fffffff mod partitionCount.
func murmur2Partition(key []byte, partitionCount int) int32 {
	if partitionCount <= 0 {
		return 0
	}
	positive := murmur2(key) & 0x7fffffff
	return positive % int32(partitionCount)
}

// Partitioner chooses which partition a record with no explicit
// partition lands on. The default implementation hashes the key with
// murmur2 when present, and otherwise round-robins over the partitions
// that currently have a known leader (spec.md §4.8).
type Partitioner interface {
	Partition(topic string, key []byte, partitionCount int, availablePartitions []int32) int32
}

type defaultPartitioner struct {
	mu       sync.Mutex
	counters map[string]uint64
}

// NewDefaultPartitioner builds the murmur2-keyed, round-robin-fallback
// Partitioner every Producer uses unless overridden.
func NewDefaultPartitioner() Partitioner {
	return &defaultPartitioner{counters: make(map[string]uint64)}
}

func (p *defaultPartitioner) Partition(topic string, key []byte, partitionCount int, availablePartitions []int32) int32 {
	if key != nil {
		return murmur2Partition(key, partitionCount)
	}

	avail := availablePartitions
	if len(avail) == 0 {
		avail = make([]int32, partitionCount)
		for i := range avail {
			avail[i] = int32(i)
		}
	}
	if len(avail) == 0 {
		return 0
	}

	p.mu.Lock()
	n := p.counters[topic]
	p.counters[topic]++
	p.mu.Unlock()
	return avail[n%uint64(len(avail))]
}
