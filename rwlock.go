package pt

import "sync"

// lockMode is the state of one outstanding lock request, matching the
// four-state record protothread_lock.c keeps per waiter (pending vs.
// granted, crossed with read vs. write) instead of a single mutex bit.
type lockMode int

const (
	modeReadPending lockMode = iota
	modeWritePending
	modeReading
	modeWriting
)

// lockRequest is one entry in RWMutex's FIFO admission queue. Each
// request gets its own Channel so Scheduler.Signal can wake exactly
// the one task that request belongs to.
type lockRequest struct {
	ch   Channel
	mode lockMode
}

// LockTicket is the handle a task carries across a suspension while
// waiting on an RWMutex. Pass nil on a task's first call to RLock or
// Lock; pass back whatever was returned on every subsequent
// activation, until the outcome is Acquired.
type LockTicket struct {
	req *lockRequest
}

// RWMutex is a reader/writer lock for use inside task resume
// functions, built the way protothread_lock.c is: a FIFO queue of
// per-waiter lock-request records, admitted from the oldest request
// forward on every release. Admission stops at the first ungrantable
// write-pending request, so a writer can never be starved by a steady
// stream of later readers (spec §6's writer-starvation-freedom
// property); the price is that a reader arriving behind a queued
// writer waits even if the lock is otherwise free for reading.
//
// Unlike Semaphore, RWMutex does not reuse the Acquired/Blocked
// protocol directly on a raw bool: because admission is queue-ordered,
// a task must keep the same LockTicket across its suspend/resume
// cycle instead of blindly retrying, so the two lock methods accept
// and return a ticket rather than reporting success by itself.
type RWMutex struct {
	sched *Scheduler

	mu      sync.Mutex
	waiters []*lockRequest
	readers int
	writer  bool
}

// NewRWMutex creates an unlocked RWMutex.
func NewRWMutex(sched *Scheduler) *RWMutex {
	return &RWMutex{sched: sched}
}

// RLock attempts to take a read lock. Call with ticket == nil the
// first time; if the returned outcome is Blocked, the resume function
// must return Wait immediately and call RLock again on the task's next
// activation, passing back the returned ticket unchanged.
func (rw *RWMutex) RLock(t *Task, ticket *LockTicket) (*LockTicket, AcquireOutcome) {
	if ticket != nil {
		return ticket, Acquired
	}
	rw.mu.Lock()
	req := &lockRequest{ch: newChannel(), mode: modeReadPending}
	rw.waiters = append(rw.waiters, req)
	woken := rw.admitLocked()
	if req.mode == modeReading {
		rw.mu.Unlock()
		rw.signal(woken)
		return &LockTicket{req: req}, Acquired
	}
	rw.signal(woken)
	rw.sched.Wait(t, req.ch, &rw.mu)
	return &LockTicket{req: req}, Blocked
}

// Lock attempts to take a write lock. Usage mirrors RLock.
func (rw *RWMutex) Lock(t *Task, ticket *LockTicket) (*LockTicket, AcquireOutcome) {
	if ticket != nil {
		return ticket, Acquired
	}
	rw.mu.Lock()
	req := &lockRequest{ch: newChannel(), mode: modeWritePending}
	rw.waiters = append(rw.waiters, req)
	woken := rw.admitLocked()
	if req.mode == modeWriting {
		rw.mu.Unlock()
		rw.signal(woken)
		return &LockTicket{req: req}, Acquired
	}
	rw.signal(woken)
	rw.sched.Wait(t, req.ch, &rw.mu)
	return &LockTicket{req: req}, Blocked
}

// RUnlock releases a read lock previously obtained through ticket. It
// panics with an InvariantReleaseNotHeld InvariantError if ticket is
// nil or its request was never granted in read mode. A ticket keeps
// its granted mode after release, so releasing the same ticket twice
// is not detected.
func (rw *RWMutex) RUnlock(ticket *LockTicket) {
	rw.mu.Lock()
	if ticket == nil || ticket.req.mode != modeReading {
		rw.mu.Unlock()
		invariant(InvariantReleaseNotHeld)
	}
	rw.readers--
	woken := rw.admitLocked()
	rw.mu.Unlock()
	rw.signal(woken)
}

// Unlock releases a write lock previously obtained through ticket. It
// panics with an InvariantReleaseNotHeld InvariantError if ticket is
// nil or its request was never granted in write mode. A ticket keeps
// its granted mode after release, so releasing the same ticket twice
// is not detected.
func (rw *RWMutex) Unlock(ticket *LockTicket) {
	rw.mu.Lock()
	if ticket == nil || ticket.req.mode != modeWriting {
		rw.mu.Unlock()
		invariant(InvariantReleaseNotHeld)
	}
	rw.writer = false
	woken := rw.admitLocked()
	rw.mu.Unlock()
	rw.signal(woken)
}

// admitLocked scans waiters oldest-first, granting every read-pending
// request it can and at most one write-pending request, stopping at
// the first ungrantable write-pending request it meets (so nothing
// behind that writer is ever admitted ahead of it). Caller holds
// rw.mu. Returns the channels of every request admitted, to be
// signaled once rw.mu is released.
func (rw *RWMutex) admitLocked() []Channel {
	var woken []Channel
	i := 0
	for i < len(rw.waiters) {
		w := rw.waiters[i]
		if w.mode == modeWritePending {
			if rw.readers == 0 && !rw.writer {
				rw.writer = true
				w.mode = modeWriting
				rw.waiters = append(rw.waiters[:i], rw.waiters[i+1:]...)
				woken = append(woken, w.ch)
			}
			break
		}
		if rw.writer {
			break
		}
		rw.readers++
		w.mode = modeReading
		rw.waiters = append(rw.waiters[:i], rw.waiters[i+1:]...)
		woken = append(woken, w.ch)
	}
	return woken
}

func (rw *RWMutex) signal(woken []Channel) {
	for _, ch := range woken {
		rw.sched.Signal(ch)
	}
}
