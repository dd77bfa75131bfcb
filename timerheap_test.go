package deferred

import (
	"container/heap"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimerHeapOrdersByExpiry(t *testing.T) {
	h := &timerHeap{}
	heap.Init(h)
	base := time.Now()
	var order []int
	mk := func(n int, offset time.Duration) *timer {
		return &timer{expiry: base.Add(offset), cb: func() { order = append(order, n) }}
	}
	heap.Push(h, mk(3, 3*time.Second))
	heap.Push(h, mk(1, 1*time.Second))
	heap.Push(h, mk(2, 2*time.Second))

	fireDue(h, base.Add(5*time.Second), func(tm *timer) { tm.cb() })
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestFireDueSkipsFutureTimers(t *testing.T) {
	h := &timerHeap{}
	heap.Init(h)
	base := time.Now()
	var fired []int
	heap.Push(h, &timer{expiry: base.Add(1 * time.Second), cb: func() { fired = append(fired, 1) }})
	heap.Push(h, &timer{expiry: base.Add(10 * time.Second), cb: func() { fired = append(fired, 2) }})

	fireDue(h, base.Add(5*time.Second), func(tm *timer) { tm.cb() })
	assert.Equal(t, []int{1}, fired)
	expiry, ok := peekExpiry(h)
	require.True(t, ok)
	assert.Equal(t, base.Add(10*time.Second), expiry)
}

func TestFireDueReschedulesRepeatingTimers(t *testing.T) {
	h := &timerHeap{}
	heap.Init(h)
	base := time.Now()
	count := 0
	tm := &timer{expiry: base, delay: time.Second, repeat: true, cb: func() { count++ }}
	heap.Push(h, tm)

	fireDue(h, base, func(tm *timer) { tm.cb() })
	assert.Equal(t, 1, count)
	expiry, ok := peekExpiry(h)
	require.True(t, ok)
	assert.Equal(t, base.Add(time.Second), expiry)
}

func TestPeekExpirySkipsStoppedTimers(t *testing.T) {
	h := &timerHeap{}
	heap.Init(h)
	base := time.Now()
	stopped := &timer{expiry: base}
	stopped.Stop()
	heap.Push(h, stopped)
	live := &timer{expiry: base.Add(time.Second)}
	heap.Push(h, live)

	expiry, ok := peekExpiry(h)
	require.True(t, ok)
	assert.Equal(t, live.expiry, expiry)
}

func TestPeekExpiryEmptyHeap(t *testing.T) {
	h := &timerHeap{}
	_, ok := peekExpiry(h)
	assert.False(t, ok)
}

func TestTimerStopIsIdempotent(t *testing.T) {
	tm := &timer{}
	assert.NotPanics(t, func() {
		tm.Stop()
		tm.Stop()
	})
	assert.True(t, tm.stopped)
}
