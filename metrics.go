package pt

import "sync/atomic"

// metrics holds atomic counters updated on the scheduler's hot paths.
// Shape and naming follow eventloop's Metrics struct (plain atomics,
// no external metrics library), snapshotted into a Stats value on
// demand rather than pushed anywhere.
type metrics struct {
	enabled bool

	spawned   atomic.Int64
	resumed   atomic.Int64
	completed atomic.Int64
	killed    atomic.Int64
	signaled  atomic.Int64
	broadcast atomic.Int64
	waits     atomic.Int64
}

func (m *metrics) incSpawned() {
	if m.enabled {
		m.spawned.Add(1)
	}
}

func (m *metrics) incResumed() {
	if m.enabled {
		m.resumed.Add(1)
	}
}

func (m *metrics) incCompleted() {
	if m.enabled {
		m.completed.Add(1)
	}
}

func (m *metrics) incKilled() {
	if m.enabled {
		m.killed.Add(1)
	}
}

func (m *metrics) incSignaled() {
	if m.enabled {
		m.signaled.Add(1)
	}
}

func (m *metrics) incBroadcast() {
	if m.enabled {
		m.broadcast.Add(1)
	}
}

func (m *metrics) incWaits() {
	if m.enabled {
		m.waits.Add(1)
	}
}

// Stats is a point-in-time snapshot of scheduler activity, returned by
// Scheduler.Stats. NThreads, NRunning and Ready are always filled in;
// the cumulative counters from Spawned onward are zero unless the
// scheduler was created with WithMetrics(true).
type Stats struct {
	// NThreads is the current count of live tasks (spec §5's nthread).
	NThreads int
	// NRunning is the current count of tasks executing a resume
	// function right now (spec §5's nrunning).
	NRunning int
	// Ready is the current length of the ready list.
	Ready int
	// Spawned is the cumulative count of Scheduler.Spawn calls.
	Spawned int64
	// Resumed is the cumulative count of resume function invocations.
	Resumed int64
	// Completed is the cumulative count of tasks that returned Done.
	Completed int64
	// Killed is the cumulative count of tasks removed by Scheduler.Kill.
	Killed int64
	// Signaled is the cumulative count of Scheduler.Signal calls that
	// woke a waiter; calls that found no waiter are not counted.
	Signaled int64
	// Broadcast is the cumulative count of Scheduler.Broadcast calls
	// that woke at least one waiter; calls that found none are not
	// counted.
	Broadcast int64
	// Waits is the cumulative count of tasks parked by Scheduler.Wait.
	Waits int64
}
