package pt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsPowerOfTwo(t *testing.T) {
	cases := map[int]bool{
		-1: false, 0: false, 1: true, 2: true, 3: false,
		4: true, 16: true, 17: false, 4096: true,
	}
	for n, want := range cases {
		assert.Equalf(t, want, isPowerOfTwo(n), "n=%d", n)
	}
}

func TestBucketIndex_WithinRange(t *testing.T) {
	const buckets = 16
	for i := 0; i < 100000; i++ {
		idx := bucketIndex(Channel(i*37+11), buckets)
		assert.GreaterOrEqual(t, idx, 0)
		assert.Less(t, idx, buckets)
	}
}

func TestNewChannel_Unique(t *testing.T) {
	seen := make(map[Channel]bool)
	for i := 0; i < 1000; i++ {
		ch := newChannel()
		assert.False(t, seen[ch], "newChannel produced a duplicate")
		seen[ch] = true
	}
}
