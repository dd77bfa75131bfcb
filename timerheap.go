package deferred

import (
	"container/heap"
	"time"
)

// timer is one entry in a reactor's timer heap. stopped is checked lazily
// at pop time rather than removed eagerly ("mark and skip"), since a
// binary heap has no O(1) arbitrary removal.
type timer struct {
	expiry  time.Time
	delay   time.Duration
	repeat  bool
	cb      TimerCallback
	stopped bool
	index   int
}

// Stop marks t as cancelled; Stop is idempotent.
func (t *timer) Stop() {
	t.stopped = true
}

// timerHeap is a min-heap of *timer ordered by expiry, giving the fallback
// reactor O(log n) insertion and O(log n) "pop the next deadline."
type timerHeap []*timer

func (h timerHeap) Len() int            { return len(h) }
func (h timerHeap) Less(i, j int) bool  { return h[i].expiry.Before(h[j].expiry) }
func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*timer)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}

// peekExpiry reports the earliest live deadline in h, skipping (and
// discarding) any stopped timers found at the head. ok is false if h has no
// live timers.
func peekExpiry(h *timerHeap) (expiry time.Time, ok bool) {
	for h.Len() > 0 {
		next := (*h)[0]
		if next.stopped {
			heap.Pop(h)
			continue
		}
		return next.expiry, true
	}
	return time.Time{}, false
}

// fireDue pops and runs every timer in h whose expiry is <= now, in expiry
// order (timers with equal expiry run in no guaranteed order), rescheduling repeating
// timers. fn is invoked for each live timer that fires.
func fireDue(h *timerHeap, now time.Time, fn func(*timer)) {
	for h.Len() > 0 {
		next := (*h)[0]
		if next.stopped {
			heap.Pop(h)
			continue
		}
		if next.expiry.After(now) {
			return
		}
		heap.Pop(h)
		fn(next)
		if next.repeat && !next.stopped {
			next.expiry = now.Add(next.delay)
			heap.Push(h, next)
		}
	}
}
