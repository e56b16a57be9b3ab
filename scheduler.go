package pt

import "sync"

// Scheduler is a stackless cooperative task runtime: spec §2's
// "protothread" scheduler translated into Go. It owns a ready list, a
// bucket table of wait lists keyed by Channel, and (when configured
// with WithMaxWorkers(n>1)) a pool of goroutines that pull tasks off
// the ready list and resume them.
//
// All exported methods are safe to call from any goroutine. Resume
// functions themselves run without holding the scheduler's internal
// mutex, so they may call back into the scheduler (Wait, Yield, Signal,
// Broadcast, Spawn, Kill) without risk of self-deadlock.
type Scheduler struct {
	mu sync.Mutex

	ready   taskRing
	buckets []taskRing

	nthread  int
	nrunning int

	maxWorkers int
	workers    int
	idle       int
	workCond   *sync.Cond
	quiesceC   *sync.Cond

	readyHook func()
	logger    Logger
	metrics   metrics

	state atomicSchedulerState
}

// New constructs a Scheduler. With no options it is a single-worker
// scheduler: the caller drives execution by calling RunOnce in a loop.
// WithMaxWorkers(n) for n > 1 additionally starts a pool of up to n
// goroutines that resume ready tasks on their own.
func New(opts ...Option) (*Scheduler, error) {
	c, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}
	s := &Scheduler{
		buckets:    make([]taskRing, c.buckets),
		maxWorkers: c.maxWorkers,
		readyHook:  c.readyHook,
		logger:     c.logger,
	}
	s.metrics.enabled = c.metrics
	s.workCond = sync.NewCond(&s.mu)
	s.quiesceC = sync.NewCond(&s.mu)
	return s, nil
}

func (s *Scheduler) bucket(ch Channel) *taskRing {
	return &s.buckets[bucketIndex(ch, uint(len(s.buckets)))]
}

func (s *Scheduler) fireReadyHook() {
	if s.readyHook != nil {
		s.readyHook()
	}
}

// Spawn creates a new task running resume and places it on the ready
// list. It returns ErrSchedulerClosing or ErrSchedulerClosed if
// teardown has begun or completed.
func (s *Scheduler) Spawn(resume ResumeFunc) (*Task, error) {
	return s.spawn(resume, nil)
}

// SpawnWithExitHook is Spawn, additionally registering onExit to run
// exactly once when the task terminates (by returning Done or by
// Kill). Close never runs exit hooks: it panics instead if any task is
// still live.
func (s *Scheduler) SpawnWithExitHook(resume ResumeFunc, onExit ExitHook) (*Task, error) {
	return s.spawn(resume, onExit)
}

func (s *Scheduler) spawn(resume ResumeFunc, onExit ExitHook) (*Task, error) {
	if s.state.load() != stateOpen {
		if s.state.load() == stateClosed {
			return nil, ErrSchedulerClosed
		}
		return nil, ErrSchedulerClosing
	}
	t := &Task{resume: resume, sched: s, onExit: onExit, state: taskReady}

	s.mu.Lock()
	s.nthread++
	s.ready.appendNewest(t)
	s.metrics.incSpawned()
	s.mu.Unlock()

	s.fireReadyHook()
	s.wakeOneWorker()
	s.maybeGrowPool()
	return t, nil
}

// RunOnce pops one ready task (if any) and resumes it. It reports
// whether a task was found. Intended for the single-worker variant,
// where the caller pumps the scheduler in its own loop; it is also
// safe to call alongside a worker pool, though ordinary use does not
// need to.
func (s *Scheduler) RunOnce() bool {
	s.mu.Lock()
	if s.ready.empty() {
		s.mu.Unlock()
		return false
	}
	t := s.ready.removeOldest()
	s.mu.Unlock()

	s.resumeTask(t)
	return true
}

// resumeTask runs one activation of t's resume function and applies
// the resulting state transition. Called with no lock held; acquires
// s.mu only for the bookkeeping around the call.
func (s *Scheduler) resumeTask(t *Task) {
	s.mu.Lock()
	if t.state == taskResuming {
		s.mu.Unlock()
		invariant(InvariantResumeReentrant)
	}
	t.state = taskResuming
	s.nrunning++
	s.metrics.incResumed()
	s.mu.Unlock()

	result := t.resume()

	s.mu.Lock()
	s.nrunning--

	switch {
	case result == Done && t.state == taskWaiting:
		s.mu.Unlock()
		invariant(InvariantDoneAfterWait)
	case result == Done:
		t.state = taskDone
		s.nthread--
		s.metrics.incCompleted()
		hook := t.onExit
		s.notifyQuiesceLocked()
		s.mu.Unlock()
		if hook != nil {
			hook()
		}
		return
	case t.state == taskWaiting:
		// Wait already enqueued t into its bucket.
	case t.state == taskResuming:
		// Neither Yield nor Wait ran during this activation.
		t.state = taskReady
		s.ready.appendNewest(t)
	default:
		// Yield already enqueued t onto the ready list.
	}
	s.notifyQuiesceLocked()
	s.mu.Unlock()
}

// Yield suspends t, placing it at the newest end of the ready list, and
// returns Wait. Must be called synchronously from within t's own
// resume function.
func (s *Scheduler) Yield(t *Task) Result {
	s.mu.Lock()
	if t.state != taskResuming {
		s.mu.Unlock()
		invariant(InvariantSuspendOutsideResume)
	}
	t.state = taskReady
	s.ready.appendNewest(t)
	s.mu.Unlock()

	s.fireReadyHook()
	s.wakeOneWorker()
	s.maybeGrowPool()
	return Wait
}

// Wait suspends t on ch and returns Wait. If appMutex is non-nil, Wait
// unlocks it only after acquiring the scheduler's internal lock and
// before the task is linked into ch's wait bucket, and never re-locks
// it: the caller's resume function is responsible for re-acquiring
// appMutex, if needed, the next time it runs. This ordering is what
// makes a Signal or Broadcast racing with a concurrent Wait
// lost-wakeup free (spec §6): any signaler must also take appMutex (or
// otherwise serialize with the waiter) before observing the condition
// that makes it call Signal/Broadcast, so it cannot complete its
// corresponding scheduler call until this Wait has finished linking t
// into the bucket.
func (s *Scheduler) Wait(t *Task, ch Channel, appMutex sync.Locker) Result {
	s.mu.Lock()
	if t.state != taskResuming {
		s.mu.Unlock()
		invariant(InvariantSuspendOutsideResume)
	}
	if appMutex != nil {
		appMutex.Unlock()
	}
	t.channel = ch
	t.state = taskWaiting
	s.bucket(ch).appendNewest(t)
	s.metrics.incWaits()
	s.mu.Unlock()
	return Wait
}

// Signal wakes the single oldest task waiting on ch, moving it to the
// ready list (spec §5: FIFO within a channel). It is a no-op if no
// task waits on ch.
func (s *Scheduler) Signal(ch Channel) {
	s.mu.Lock()
	b := s.bucket(ch)
	// The oldest waiter on ch is not necessarily the oldest node in the
	// bucket ring (the bucket is shared across channels that hash
	// together), so scan for the first match.
	woke := b.removeFirstMatching(func(t *Task) bool { return t.channel == ch })
	if woke != nil {
		woke.state = taskReady
		s.ready.appendNewest(woke)
		s.metrics.incSignaled()
	}
	s.mu.Unlock()

	if woke != nil {
		s.fireReadyHook()
		s.wakeOneWorker()
		s.maybeGrowPool()
	}
}

// Broadcast wakes every task waiting on ch, moving each to the ready
// list in FIFO order.
func (s *Scheduler) Broadcast(ch Channel) {
	s.mu.Lock()
	b := s.bucket(ch)
	woken := b.removeAllMatching(func(t *Task) bool { return t.channel == ch })
	for _, t := range woken {
		t.state = taskReady
		s.ready.appendNewest(t)
	}
	if len(woken) > 0 {
		s.metrics.incBroadcast()
	}
	s.mu.Unlock()

	if len(woken) > 0 {
		s.fireReadyHook()
		for range woken {
			s.wakeOneWorker()
			s.maybeGrowPool()
		}
	}
}

// Kill synchronously removes t from the scheduler, wherever it
// currently is (ready, a wait bucket, or already done), and runs its
// exit hook if one was registered and has not already run. It reports
// whether t was found and removed (false if t had already terminated,
// or if a worker had just taken it off the ready list to resume it;
// in that case t is left untouched).
// Killing the currently-resuming task from within its own resume
// function is an invariant violation: a task cannot remove itself
// mid-activation.
func (s *Scheduler) Kill(t *Task) bool {
	s.mu.Lock()
	switch t.state {
	case taskDone:
		s.mu.Unlock()
		return false
	case taskResuming:
		s.mu.Unlock()
		invariant(InvariantKillResuming)
	}

	found := s.ready.findAndRemove(t)
	if !found {
		found = s.bucket(t.channel).findAndRemove(t)
	}
	if !found {
		s.mu.Unlock()
		return false
	}
	t.state = taskDone
	s.nthread--
	s.metrics.incKilled()
	hook := t.onExit
	s.notifyQuiesceLocked()
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
	return true
}

// Reset rearms a Task that has already returned Done or been Killed,
// giving it a new resume function and placing it back on the ready
// list as if freshly spawned. It is the Go counterpart of reusing a
// pt_thread_t's storage instead of allocating a new one.
func (s *Scheduler) Reset(t *Task, resume ResumeFunc) {
	s.mu.Lock()
	t.resume = resume
	t.state = taskReady
	t.channel = 0
	s.nthread++
	s.ready.appendNewest(t)
	s.mu.Unlock()

	s.fireReadyHook()
	s.wakeOneWorker()
	s.maybeGrowPool()
}

// Quiesce blocks until the ready list is empty and no task is
// currently resuming. It is meaningful only alongside a worker pool
// (WithMaxWorkers(n>1)); with a single caller-driven RunOnce loop the
// condition is already observable by the caller directly.
func (s *Scheduler) Quiesce() {
	s.mu.Lock()
	for !s.ready.empty() || s.nrunning > 0 {
		s.quiesceC.Wait()
	}
	s.mu.Unlock()
}

func (s *Scheduler) notifyQuiesceLocked() {
	if s.ready.empty() && s.nrunning == 0 {
		s.quiesceC.Broadcast()
	}
}

// Stats returns a snapshot of the scheduler's current counters. Values
// beyond NThreads/NRunning/Ready are zero unless WithMetrics(true) was
// passed to New.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		NThreads:  s.nthread,
		NRunning:  s.nrunning,
		Ready:     s.ready.len(),
		Spawned:   s.metrics.spawned.Load(),
		Resumed:   s.metrics.resumed.Load(),
		Completed: s.metrics.completed.Load(),
		Killed:    s.metrics.killed.Load(),
		Signaled:  s.metrics.signaled.Load(),
		Broadcast: s.metrics.broadcast.Load(),
		Waits:     s.metrics.waits.Load(),
	}
}

// Close tears down the scheduler: it stops accepting new Spawn calls
// (Reset does not check the scheduler's state), waits for any pooled
// workers to exit, and panics with
// InvariantTeardownWithLiveTasks if any task remains live (nthread > 0)
// or any wait bucket is non-empty. Close is idempotent; calling it on
// an already-closed scheduler is a no-op.
func (s *Scheduler) Close() {
	if !s.state.compareAndSwap(stateOpen, stateClosing) {
		return
	}

	s.mu.Lock()
	s.workCond.Broadcast()
	s.mu.Unlock()

	s.waitWorkersExited()

	s.mu.Lock()
	defer s.mu.Unlock()
	live := s.nthread > 0 || !s.ready.empty()
	if !live {
		for i := range s.buckets {
			if !s.buckets[i].empty() {
				live = true
				break
			}
		}
	}
	if live {
		s.state.store(stateOpen)
		invariant(InvariantTeardownWithLiveTasks)
	}
	s.state.store(stateClosed)
	s.logger.Log(LevelInfo, "scheduler closed")
}
