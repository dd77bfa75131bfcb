package deferred

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPauseResolvesOnWakeup(t *testing.T) {
	pausedQueue = nil
	d := Pause()
	assert.Equal(t, Pending, d.State())
	assert.Equal(t, 1, PausedCount())
	WakeupPaused()
	_, _, pending := d.Poll()
	require.False(t, pending)
	assert.Equal(t, 0, PausedCount())
}

func TestWakeupPausedDoesNotDrainPausesScheduledDuringItself(t *testing.T) {
	pausedQueue = nil
	var second Deferred[Unit]
	first := Pause()
	first.OnTermination(func() {
		second = Pause()
	})
	WakeupPaused()
	assert.Equal(t, Pending, second.State(), "a Pause made from inside the drain must wait for the next WakeupPaused")
	assert.Equal(t, 1, PausedCount())
	WakeupPaused()
	_, _, pending := second.Poll()
	assert.False(t, pending)
}

func TestWakeupPausedNoopWhenEmpty(t *testing.T) {
	pausedQueue = nil
	assert.NotPanics(t, WakeupPaused)
}

func TestRegisterPauseNotifierReceivesDepth(t *testing.T) {
	pausedQueue = nil
	saved := pauseNotifiers
	pauseNotifiers = nil
	defer func() { pauseNotifiers = saved }()

	var depths []int
	RegisterPauseNotifier(func(depth int) { depths = append(depths, depth) })
	Pause()
	Pause()
	assert.Equal(t, []int{1, 2}, depths)
	WakeupPaused()
}
