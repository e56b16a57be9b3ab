package pt

// config holds the resolved configuration for a Scheduler, assembled
// from Option values. Shape mirrors eventloop's loopOptions /
// resolveLoopOptions pattern (an unexported config struct plus a
// small applier interface), adapted for this module's needs.
type config struct {
	maxWorkers int
	buckets    int
	readyHook  func()
	logger     Logger
	metrics    bool
}

// Option configures a Scheduler created by New.
type Option interface {
	apply(*config) error
}

type optionFunc func(*config) error

func (f optionFunc) apply(c *config) error { return f(c) }

// WithMaxWorkers bounds the worker pool size (spec §4.3's max_workers).
// A value of 1 (the default) selects the single-worker variant, in
// which Scheduler.RunOnce must be pumped by the caller; any larger
// value starts the multi-worker variant, which grows its own goroutine
// pool lazily up to n. Returns ErrMaxWorkers for n < 1.
func WithMaxWorkers(n int) Option {
	return optionFunc(func(c *config) error {
		if n < 1 {
			return ErrMaxWorkers
		}
		c.maxWorkers = n
		return nil
	})
}

// WithBuckets sets the wait-channel hash table size (spec §3). Must be
// a power of two; defaults to 16. Pass 4096 to match the original
// protothread.c's PT_NWAIT if a workload waits on many distinct
// channels concurrently.
func WithBuckets(n int) Option {
	return optionFunc(func(c *config) error {
		if !isPowerOfTwo(n) {
			return ErrBucketCount
		}
		c.buckets = n
		return nil
	})
}

// WithReadyHook registers the callback fired after every Spawn, Yield
// and Reset, and after every Signal/Broadcast that moves at least one
// waiter to ready (once per call). It fires whether or not the ready
// list was empty beforehand. Embedders typically use this to wake an
// external event loop.
func WithReadyHook(fn func()) Option {
	return optionFunc(func(c *config) error {
		c.readyHook = fn
		return nil
	})
}

// WithLogger installs a structured Logger for internal diagnostics.
// The only event logged is a successful Close. Defaults to a no-op
// logger.
func WithLogger(l Logger) Option {
	return optionFunc(func(c *config) error {
		c.logger = l
		return nil
	})
}

// WithMetrics enables the runtime counters returned by Scheduler.Stats.
// Disabled by default; enabling it adds a handful of atomic increments
// per scheduler operation.
func WithMetrics(enabled bool) Option {
	return optionFunc(func(c *config) error {
		c.metrics = enabled
		return nil
	})
}

func resolveOptions(opts []Option) (*config, error) {
	c := &config{
		maxWorkers: 1,
		buckets:    defaultBucketCount,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.apply(c); err != nil {
			return nil, err
		}
	}
	if c.logger == nil {
		c.logger = NewNoOpLogger()
	}
	return c, nil
}
