package kafka

import "testing"

// Reference vectors from spec.md §8, matching the standard Kafka
// murmur2 test suite.
func TestMurmur2ReferenceVectors(t *testing.T) {
	cases := []struct {
		in   string
		want int32
	}{
		{"0", 971027396},
		{"1", -1993445489},
		{"100:48069", 1009543857},
	}
	for _, tc := range cases {
		if got := murmur2([]byte(tc.in)); got != tc.want {
			t.Errorf("murmur2(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestDefaultPartitionerKeyedMatchesFormula(t *testing.T) {
	key := []byte("100:48069")
	const partitions = 12
	got := murmur2Partition(key, partitions)
	want := (murmur2(key) & 0x7fffffff) % int32(partitions)
	if got != want {
		t.Errorf("murmur2Partition = %d, want %d", got, want)
	}
}

func TestDefaultPartitionerRoundRobinsWithoutKey(t *testing.T) {
	p := NewDefaultPartitioner()
	avail := []int32{0, 1, 2}
	seen := map[int32]int{}
	for i := 0; i < 6; i++ {
		part := p.Partition("t", nil, 3, avail)
		seen[part]++
	}
	for _, n := range avail {
		if seen[n] != 2 {
			t.Errorf("partition %d got %d sends, want 2", n, seen[n])
		}
	}
}
