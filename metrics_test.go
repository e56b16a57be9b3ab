package pt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_DisabledByDefault(t *testing.T) {
	sched, err := New()
	require.NoError(t, err)

	_, err = sched.Spawn(func() Result { return Done })
	require.NoError(t, err)
	require.True(t, sched.RunOnce())

	stats := sched.Stats()
	assert.Zero(t, stats.Spawned)
	assert.Zero(t, stats.Completed)
}

func TestMetrics_EnabledCountsActivity(t *testing.T) {
	sched, err := New(WithMetrics(true))
	require.NoError(t, err)

	const ch Channel = 5
	var mu chanMutex
	var self *Task
	waited := false
	self, err = sched.Spawn(func() Result {
		if !waited {
			waited = true
			return sched.Wait(self, ch, &mu)
		}
		return Done
	})
	require.NoError(t, err)

	require.True(t, sched.RunOnce())
	sched.Signal(ch)
	require.True(t, sched.RunOnce())

	stats := sched.Stats()
	assert.Equal(t, int64(1), stats.Spawned)
	assert.Equal(t, int64(1), stats.Waits)
	assert.Equal(t, int64(1), stats.Signaled)
	assert.Equal(t, int64(1), stats.Completed)
	assert.Equal(t, int64(2), stats.Resumed)
}

// chanMutex is a no-op sync.Locker used where a test needs an
// appMutex argument but has no real shared state to guard.
type chanMutex struct{}

func (chanMutex) Lock()   {}
func (chanMutex) Unlock() {}
