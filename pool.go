package pt

// This file implements the multi-worker variant's goroutine pool:
// lazy growth up to maxWorkers, an idle/wake condition variable, and
// clean shutdown on Close. It generalizes protothread.c's branches/
// multicore pt_pthread worker loop (one OS thread per pt_pthread,
// woken via a condition variable when the ready list gains a node) to
// a lazily-grown Go goroutine pool: workers are only ever created in
// response to demonstrated demand, never all at once.
//
// maybeGrowPool is called from every scheduler operation that appends
// a task to the ready list (spawn, Yield, Signal, Broadcast, Reset),
// not only task creation, so a long-running workload that never spawns
// again but keeps cycling through Wait/Signal can still grow the pool
// up to maxWorkers.
//
// A Scheduler built with the default WithMaxWorkers(1) never starts a
// worker goroutine at all; the caller is expected to drive it via
// RunOnce.

// wakeOneWorker signals a single idle worker, if one exists, to pick
// up newly-ready work. It is always safe to call, including on a
// single-worker scheduler, where it is a no-op.
func (s *Scheduler) wakeOneWorker() {
	if s.maxWorkers <= 1 {
		return
	}
	s.mu.Lock()
	if s.idle > 0 {
		s.workCond.Signal()
	}
	s.mu.Unlock()
}

// maybeGrowPool starts one additional worker goroutine if the pool has
// room to grow and no idle worker is available to pick up the ready
// task that was just added. Growth is lazy: a scheduler that never
// exceeds one concurrently-ready task with a single worker never
// starts a second goroutine.
func (s *Scheduler) maybeGrowPool() {
	if s.maxWorkers <= 1 {
		return
	}
	s.mu.Lock()
	if s.state.load() != stateOpen || s.idle > 0 || s.workers >= s.maxWorkers || s.ready.empty() {
		s.mu.Unlock()
		return
	}
	s.workers++
	s.mu.Unlock()

	go s.workerLoop()
}

// workerLoop is the body of one pool goroutine: pop a ready task,
// resume it outside the lock, repeat. A worker with nothing to do
// parks on workCond; it exits once teardown has begun and the ready
// list has drained.
func (s *Scheduler) workerLoop() {
	s.mu.Lock()
	for {
		if s.ready.empty() {
			if s.state.load() != stateOpen {
				s.workers--
				s.workCond.Broadcast()
				s.mu.Unlock()
				return
			}
			s.idle++
			s.workCond.Wait()
			s.idle--
			continue
		}
		t := s.ready.removeOldest()
		s.mu.Unlock()

		s.resumeTask(t)

		s.mu.Lock()
	}
}

// waitWorkersExited blocks until every pool goroutine has returned. On
// a single-worker scheduler (no pool ever started) it returns
// immediately.
func (s *Scheduler) waitWorkersExited() {
	s.mu.Lock()
	for s.workers > 0 {
		s.workCond.Wait()
	}
	s.mu.Unlock()
}
