package pt

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_SpawnRunOnce_Done(t *testing.T) {
	sched, err := New()
	require.NoError(t, err)

	ran := false
	_, err = sched.Spawn(func() Result {
		ran = true
		return Done
	})
	require.NoError(t, err)

	require.True(t, sched.RunOnce())
	assert.True(t, ran)
	assert.False(t, sched.RunOnce(), "ready list must be empty after the only task finished")
	assert.Equal(t, 0, sched.Stats().NThreads)
}

func TestScheduler_Yield_RunsAgainOnNextPass(t *testing.T) {
	sched, err := New()
	require.NoError(t, err)

	var task *Task
	rounds := 0
	task, err = sched.Spawn(func() Result {
		rounds++
		if rounds < 3 {
			return sched.Yield(task)
		}
		return Done
	})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.True(t, sched.RunOnce())
	}
	assert.Equal(t, 3, rounds)
	assert.False(t, sched.RunOnce())
}

func TestScheduler_Wait_Signal_FIFOWithinChannel(t *testing.T) {
	sched, err := New()
	require.NoError(t, err)

	const ch Channel = 42
	var order []int
	var mu sync.Mutex

	var tasks []*Task
	for i := 0; i < 5; i++ {
		i := i
		var self *Task
		var waited bool
		self, err = sched.Spawn(func() Result {
			if !waited {
				waited = true
				mu.Lock()
				return sched.Wait(self, ch, &mu)
			}
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return Done
		})
		require.NoError(t, err)
		tasks = append(tasks, self)
	}

	// First activation parks every task on ch.
	for range tasks {
		require.True(t, sched.RunOnce())
	}
	assert.Equal(t, 0, sched.ready.len())

	// Waking one at a time must preserve spawn order (spec's FIFO
	// within a channel).
	for i := 0; i < 5; i++ {
		sched.Signal(ch)
		require.True(t, sched.RunOnce())
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestScheduler_Broadcast_WakesEveryWaiter(t *testing.T) {
	sched, err := New()
	require.NoError(t, err)

	const ch Channel = 7
	const n = 2000
	var completed int
	var mu sync.Mutex

	for i := 0; i < n; i++ {
		var self *Task
		var waited bool
		self, err = sched.Spawn(func() Result {
			if !waited {
				waited = true
				mu.Lock()
				return sched.Wait(self, ch, &mu)
			}
			mu.Lock()
			completed++
			mu.Unlock()
			return Done
		})
		require.NoError(t, err)
	}
	for i := 0; i < n; i++ {
		require.True(t, sched.RunOnce())
	}
	sched.Broadcast(ch)
	for i := 0; i < n; i++ {
		require.True(t, sched.RunOnce())
	}
	assert.Equal(t, n, completed)
	assert.Equal(t, 0, sched.Stats().NThreads)
}

func TestScheduler_Kill_Ready(t *testing.T) {
	sched, err := New()
	require.NoError(t, err)

	task, err := sched.Spawn(func() Result { return Done })
	require.NoError(t, err)

	assert.True(t, sched.Kill(task))
	assert.Equal(t, 0, sched.Stats().NThreads)
	assert.False(t, sched.RunOnce())
}

func TestScheduler_Kill_Waiting(t *testing.T) {
	sched, err := New()
	require.NoError(t, err)

	const ch Channel = 99
	var mu sync.Mutex
	var self *Task
	self, err = sched.Spawn(func() Result {
		mu.Lock()
		return sched.Wait(self, ch, &mu)
	})
	require.NoError(t, err)
	require.True(t, sched.RunOnce())

	assert.True(t, sched.Kill(self))
	assert.Equal(t, 0, sched.Stats().NThreads)

	// A signal on the channel afterward must find nobody waiting.
	sched.Signal(ch)
	assert.False(t, sched.RunOnce())
}

func TestScheduler_Kill_AlreadyDone(t *testing.T) {
	sched, err := New()
	require.NoError(t, err)

	task, err := sched.Spawn(func() Result { return Done })
	require.NoError(t, err)
	require.True(t, sched.RunOnce())

	assert.False(t, sched.Kill(task), "killing an already-finished task must report false")
}

func TestScheduler_Kill_ResumingIsInvariantViolation(t *testing.T) {
	sched, err := New()
	require.NoError(t, err)

	var self *Task
	self, err = sched.Spawn(func() Result {
		assert.Panics(t, func() { sched.Kill(self) })
		return Done
	})
	require.NoError(t, err)
	require.True(t, sched.RunOnce())
}

func TestScheduler_Kill_SiblingOrderIndependence(t *testing.T) {
	sched, err := New()
	require.NoError(t, err)

	a, err := sched.Spawn(func() Result { return Done })
	require.NoError(t, err)
	b, err := sched.Spawn(func() Result { return Done })
	require.NoError(t, err)

	assert.True(t, sched.Kill(a))
	assert.True(t, sched.Kill(b))
	assert.Equal(t, 0, sched.Stats().NThreads)

	sched, err = New()
	require.NoError(t, err)

	a, err = sched.Spawn(func() Result { return Done })
	require.NoError(t, err)
	b, err = sched.Spawn(func() Result { return Done })
	require.NoError(t, err)

	assert.True(t, sched.Kill(b))
	assert.True(t, sched.Kill(a))
	assert.Equal(t, 0, sched.Stats().NThreads)
}

func TestScheduler_Kill_SecondKillOfSameTaskReturnsFalse(t *testing.T) {
	sched, err := New()
	require.NoError(t, err)

	task, err := sched.Spawn(func() Result { return Done })
	require.NoError(t, err)

	assert.True(t, sched.Kill(task))
	nthreadAfterFirst := sched.Stats().NThreads

	assert.False(t, sched.Kill(task), "second Kill of an already-killed task must report false")
	assert.Equal(t, nthreadAfterFirst, sched.Stats().NThreads, "a no-op second Kill must not decrement nthread again")
}

func TestScheduler_Kill_RunsExitHookOnce(t *testing.T) {
	sched, err := New()
	require.NoError(t, err)

	var hookCalls int
	task, err := sched.SpawnWithExitHook(func() Result { return Done }, func() { hookCalls++ })
	require.NoError(t, err)

	assert.True(t, sched.Kill(task))
	assert.Equal(t, 1, hookCalls)
}

func TestScheduler_ExitHook_RunsOnNormalCompletion(t *testing.T) {
	sched, err := New()
	require.NoError(t, err)

	var hookCalls int
	_, err = sched.SpawnWithExitHook(func() Result { return Done }, func() { hookCalls++ })
	require.NoError(t, err)

	require.True(t, sched.RunOnce())
	assert.Equal(t, 1, hookCalls)
}

func TestScheduler_NThreadAccounting(t *testing.T) {
	sched, err := New()
	require.NoError(t, err)

	var tasks []*Task
	for i := 0; i < 10; i++ {
		task, err := sched.Spawn(func() Result { return Done })
		require.NoError(t, err)
		tasks = append(tasks, task)
	}
	assert.Equal(t, 10, sched.Stats().NThreads)

	for i := 0; i < 5; i++ {
		require.True(t, sched.RunOnce())
	}
	assert.Equal(t, 5, sched.Stats().NThreads)

	for i := 5; i < 10; i++ {
		sched.Kill(tasks[i])
	}
	assert.Equal(t, 0, sched.Stats().NThreads)
}

func TestScheduler_Reset_RearmsTask(t *testing.T) {
	sched, err := New()
	require.NoError(t, err)

	task, err := sched.Spawn(func() Result { return Done })
	require.NoError(t, err)
	require.True(t, sched.RunOnce())
	require.Equal(t, 0, sched.Stats().NThreads)

	ran := false
	sched.Reset(task, func() Result {
		ran = true
		return Done
	})
	assert.Equal(t, 1, sched.Stats().NThreads)
	require.True(t, sched.RunOnce())
	assert.True(t, ran)
}

func TestScheduler_Close_RejectsSpawnAfterClose(t *testing.T) {
	sched, err := New()
	require.NoError(t, err)
	sched.Close()

	_, err = sched.Spawn(func() Result { return Done })
	assert.ErrorIs(t, err, ErrSchedulerClosed)
}

func TestScheduler_Close_PanicsWithLiveTasks(t *testing.T) {
	sched, err := New()
	require.NoError(t, err)
	_, err = sched.Spawn(func() Result { return Done })
	require.NoError(t, err)

	assert.Panics(t, func() { sched.Close() })
}

func TestScheduler_Close_IsIdempotent(t *testing.T) {
	sched, err := New()
	require.NoError(t, err)
	sched.Close()
	assert.NotPanics(t, func() { sched.Close() })
}

// TestScheduler_MultiWorker_Quiesce exercises the pooled-worker variant:
// many tasks that yield a few times before finishing, driven entirely
// by the pool's own goroutines, with Quiesce used to observe
// completion instead of polling RunOnce.
func TestScheduler_MultiWorker_Quiesce(t *testing.T) {
	sched, err := New(WithMaxWorkers(8))
	require.NoError(t, err)
	defer sched.Close()

	const n = 500
	var completed int
	var mu sync.Mutex

	for i := 0; i < n; i++ {
		var self *Task
		rounds := 0
		self, err = sched.Spawn(func() Result {
			rounds++
			if rounds < 3 {
				return sched.Yield(self)
			}
			mu.Lock()
			completed++
			mu.Unlock()
			return Done
		})
		require.NoError(t, err)
	}

	sched.Quiesce()
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, n, completed)
	assert.Equal(t, 0, sched.Stats().NThreads)
}

// TestScheduler_LostWakeupFreedom drives a real producer/consumer
// mailbox across the multi-worker pool and a background goroutine that
// is not itself a task, confirming that a Signal racing a Wait never
// gets lost: the ordering guarantee is that Wait releases appMutex
// only while holding the scheduler lock, which it keeps until the task
// is linked into the wait bucket, so any signaler serialized through
// the same mutex cannot complete its Signal before the waiter is
// actually waiting.
func TestScheduler_LostWakeupFreedom(t *testing.T) {
	sched, err := New(WithMaxWorkers(4))
	require.NoError(t, err)
	defer sched.Close()

	const ch Channel = 123
	var mu sync.Mutex
	ready := false

	var self *Task
	woke := make(chan struct{})
	self, err = sched.Spawn(func() Result {
		mu.Lock()
		for !ready {
			if r := sched.Wait(self, ch, &mu); r == Wait {
				return Wait
			}
		}
		mu.Unlock()
		close(woke)
		return Done
	})
	require.NoError(t, err)

	// Give the task a chance to reach the Wait call before signaling.
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	ready = true
	mu.Unlock()
	sched.Signal(ch)

	select {
	case <-woke:
	case <-time.After(2 * time.Second):
		t.Fatal("signal was lost: task never woke")
	}
}
