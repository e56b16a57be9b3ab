package pt

import "sync/atomic"

// Channel is an opaque, pointer-width rendezvous token. The scheduler
// never dereferences it: two Channel values name the same channel iff
// they compare equal. Callers commonly derive a Channel from the
// address of a piece of shared state, e.g. Channel(unsafe.Pointer(&x)),
// or from any other bit pattern unique to the event being awaited.
type Channel uintptr

// defaultBucketCount is the wait-channel hash table size used when
// WithBuckets is not supplied. The original protothread.c uses 4096
// (PT_NWAIT); this module defaults lower because a typical in-process
// Go scheduler waits on far fewer distinct channels concurrently than
// the C library's original workload, and WithBuckets lets callers raise
// it back to 4096 (or any other power of two) when needed.
const defaultBucketCount = 16

// bucketIndex hashes a channel to a bucket index. It mirrors
// protothread.c's pt_get_wait_list: (bits >> 4) & (W-1).
func bucketIndex(ch Channel, buckets uint) int {
	return int((uint(ch) >> 4) & (buckets - 1))
}

// isPowerOfTwo reports whether n is a positive power of two.
func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

var channelCounter atomic.Uint64

// newChannel mints a Channel guaranteed distinct from every other
// value newChannel has returned in this process. Semaphore and RWMutex
// use it instead of deriving a Channel from their own address, which
// would work (the scheduler never dereferences a Channel) but would
// tie correctness to a pointer identity trick this package would
// rather not depend on.
func newChannel() Channel {
	return Channel(channelCounter.Add(1))
}
