package pt

import (
	"sync"

	"golang.org/x/exp/constraints"
)

// AcquireOutcome reports whether a Semaphore.Acquire call obtained a
// permit immediately or suspended the calling task.
type AcquireOutcome int

const (
	// Acquired means a permit was obtained; the caller holds it and
	// must eventually call Release.
	Acquired AcquireOutcome = iota
	// Blocked means no permit was available; the task has been parked
	// by Scheduler.Wait and Acquire must be called again the next time
	// the task's resume function runs.
	Blocked
)

// Semaphore is a counting semaphore built entirely on Scheduler.Wait
// and Scheduler.Broadcast, the same layering protothread_sem.c uses
// over the base protothread primitives rather than a separate
// kernel-level construct. Because Release wakes every waiter and lets
// them race to decrement the count, a Semaphore does not guarantee
// FIFO acquisition order even though the underlying wait channel wakes
// waiters in FIFO order: whichever woken task's resume function
// happens to be scheduled first wins the permit. Callers that need
// strict ordering should use RWMutex or build ordering into their own
// task logic.
//
// The count is generic over any signed integer type, the way
// catrate's ringBuffer is generic over constraints.Ordered, so callers
// counting a domain-specific resource (e.g. int32 buffer slots) are
// not forced to convert through int.
type Semaphore[N constraints.Signed] struct {
	sched *Scheduler
	ch    Channel

	mu    sync.Mutex
	value N
}

// NewSemaphore creates a Semaphore with the given initial permit
// count. A negative initial count is valid: Acquire succeeds only once
// the count is above zero, so 1-initial Release calls must happen
// before any Acquire can succeed (three for an initial count of -2).
func NewSemaphore[N constraints.Signed](sched *Scheduler, initial N) *Semaphore[N] {
	return &Semaphore[N]{sched: sched, ch: newChannel(), value: initial}
}

// Acquire attempts to take one permit. Call it from within t's resume
// function; if it returns Blocked, the resume function must return
// Wait immediately (Acquire has already parked t), and call Acquire
// again on t's next activation.
func (sem *Semaphore[N]) Acquire(t *Task) AcquireOutcome {
	sem.mu.Lock()
	if sem.value > 0 {
		sem.value--
		sem.mu.Unlock()
		return Acquired
	}
	sem.sched.Wait(t, sem.ch, &sem.mu)
	return Blocked
}

// TryAcquire takes one permit if one is immediately available, without
// suspending anything. It is safe to call from outside any task.
func (sem *Semaphore[N]) TryAcquire() bool {
	sem.mu.Lock()
	defer sem.mu.Unlock()
	if sem.value > 0 {
		sem.value--
		return true
	}
	return false
}

// Release returns one permit and wakes every task waiting on the
// semaphore, letting them race to claim it (or any other permits
// released concurrently).
func (sem *Semaphore[N]) Release() {
	sem.mu.Lock()
	sem.value++
	sem.mu.Unlock()
	sem.sched.Broadcast(sem.ch)
}

// Value returns the current permit count. Intended for tests and
// diagnostics; the value can change immediately after this call
// returns.
func (sem *Semaphore[N]) Value() N {
	sem.mu.Lock()
	defer sem.mu.Unlock()
	return sem.value
}
