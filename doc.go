// Package pt implements a stackless cooperative task runtime: a
// single-scheduler engine that multiplexes long-lived, suspendable
// computations ("tasks") onto one or more worker goroutines using a
// channel-based wait/wake primitive.
//
// # Architecture
//
// A [Scheduler] owns a ready list and a fixed table of wait buckets
// (see [Channel]). [Task] values are created with [Scheduler.Spawn] and
// run to completion by repeatedly invoking their resume function, which
// reports [Wait] or [Done]. A resuming task suspends itself by calling
// [Scheduler.Yield] (re-enters the ready list) or [Scheduler.Wait]
// (parks on a channel until [Scheduler.Signal] or [Scheduler.Broadcast]
// wakes it).
//
// The single-worker variant is driven by repeatedly calling
// [Scheduler.RunOnce] from one goroutine. The multi-worker variant is
// started with [WithMaxWorkers] greater than one: the scheduler grows a
// bounded pool of worker goroutines on demand (see pool.go) and
// [Scheduler.Quiesce] blocks until the pool has drained.
//
// On top of the core, [Semaphore] and [RWMutex] are synchronization
// primitives built entirely from [Scheduler.Wait] and
// [Scheduler.Broadcast]; they exist to exercise (and therefore
// co-define) the core's channel semantics.
//
// # Channels are opaque
//
// A channel is any pointer-width value used purely as a rendezvous
// token for [Scheduler.Wait]/[Scheduler.Signal]/[Scheduler.Broadcast].
// The scheduler never dereferences it — two channel values are
// considered the same channel iff they compare equal.
//
// # Thread safety
//
// [Scheduler.Spawn], [Scheduler.Signal], [Scheduler.Broadcast], and
// [Scheduler.Kill] are safe to call from any goroutine. A task's resume
// function runs with no scheduler lock held; it must not touch its own
// [Task] after returning [Done].
package pt
