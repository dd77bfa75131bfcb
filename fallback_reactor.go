package deferred

import (
	"container/heap"
	"sync"
	"time"
)

// readyFD reports one fd's readiness after a platformPoller wait.
type readyFD struct {
	fd                 int
	readable, writable bool
	bad                bool
}

// platformPoller is the minimal readiness-multiplexing syscall surface each
// platform file (fallback_poller_linux.go/_darwin.go/_windows.go) provides.
// ReactorFallback builds its ordering, timer-heap and callback-list
// semantics on top of it, so only the raw epoll/kqueue/WSAPoll mechanics
// are platform-specific.
type platformPoller interface {
	init() error
	close() error
	add(fd int, readable, writable bool) error
	modify(fd int, readable, writable bool) error
	remove(fd int) error
	// wait blocks for up to timeout (negative means forever) and returns
	// the fds that became ready, reusing buf's backing array if possible.
	wait(timeout time.Duration, buf []readyFD) ([]readyFD, error)
	// wake interrupts a concurrent blocking wait call from another
	// goroutine (registrations may race a blocking Iter(true)).
	wake() error
}

// fdState holds the ordered callback lists for both directions of one fd.
type fdState struct {
	readable []*fdEvent
	writable []*fdEvent
}

type fdEvent struct {
	fd       int
	writable bool
	cb       IOCallback
	stopped  bool
}

func (e *fdEvent) Stop() { e.stopped = true }

// ReactorFallback is the readiness-call fallback reactor: two {fd ->
// ordered callback list} mappings (readable, writable), a min-heap of
// timers, and a platform poller providing the
// actual readiness syscall. It is the reactor used when no native event
// loop library is wired in (see ReactorNative for the alternative), and is
// always available since it only needs golang.org/x/sys.
type ReactorFallback struct {
	mu      sync.Mutex
	poller  platformPoller
	fds     map[int]*fdState
	timers  timerHeap
	closed  bool
	waitBuf []readyFD
	logger  Logger
	metrics *Metrics
}

// NewReactorFallback constructs a ReactorFallback with the platform poller
// appropriate for GOOS, applying opts (see ReactorOption in options.go).
func NewReactorFallback(opts ...ReactorOption) (*ReactorFallback, error) {
	cfg := resolveReactorOptions(opts)
	r := &ReactorFallback{
		poller:  newPlatformPoller(),
		fds:     make(map[int]*fdState),
		waitBuf: make([]readyFD, 0, cfg.waitBufSize),
		logger:  cfg.logger,
		metrics: cfg.metrics,
	}
	if err := r.poller.init(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *ReactorFallback) register(fd int, writable bool, cb IOCallback) (Event, error) {
	if fd < 0 {
		return nil, ErrFDOutOfRange
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrReactorClosed
	}
	st, existed := r.fds[fd]
	if !existed {
		st = &fdState{}
		r.fds[fd] = st
	}
	ev := &fdEvent{fd: fd, writable: writable, cb: cb}
	hadReadable := len(st.readable) > 0
	hadWritable := len(st.writable) > 0
	if writable {
		st.writable = append(st.writable, ev)
	} else {
		st.readable = append(st.readable, ev)
	}

	var err error
	switch {
	case !existed:
		err = r.poller.add(fd, !writable, writable)
	case writable && !hadWritable, !writable && !hadReadable:
		err = r.poller.modify(fd, len(st.readable) > 0, len(st.writable) > 0)
	}
	if err != nil {
		if writable {
			st.writable = st.writable[:len(st.writable)-1]
		} else {
			st.readable = st.readable[:len(st.readable)-1]
		}
		return nil, err
	}
	if r.metrics != nil {
		r.metrics.registeredFDs.Set(float64(len(r.fds)))
	}
	r.wakeForRegistration()
	return ev, nil
}

// OnReadable implements Reactor.
func (r *ReactorFallback) OnReadable(fd int, cb IOCallback) (Event, error) {
	return r.register(fd, false, cb)
}

// OnWritable implements Reactor.
func (r *ReactorFallback) OnWritable(fd int, cb IOCallback) (Event, error) {
	return r.register(fd, true, cb)
}

// OnTimer implements Reactor.
func (r *ReactorFallback) OnTimer(delay time.Duration, repeat bool, cb TimerCallback) Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := &timer{expiry: time.Now().Add(delay), delay: delay, repeat: repeat, cb: cb}
	heap.Push(&r.timers, t)
	if r.metrics != nil {
		r.metrics.registeredTimers.Set(float64(r.timers.Len()))
	}
	r.wakeForRegistration()
	return t
}

// Iter implements Reactor.
func (r *ReactorFallback) Iter(block bool) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrReactorClosed
	}
	timeout := time.Duration(0)
	if block {
		if expiry, ok := peekExpiry(&r.timers); ok {
			timeout = time.Until(expiry)
			if timeout < 0 {
				timeout = 0
			}
		} else {
			timeout = -1
		}
	}
	r.mu.Unlock()

	ready, err := r.poller.wait(timeout, r.waitBuf[:0])
	if err != nil {
		return err
	}
	r.waitBuf = ready

	r.mu.Lock()
	now := time.Now()
	var due []*timer
	fireDue(&r.timers, now, func(t *timer) { due = append(due, t) })
	var badFDs []int
	type dispatch struct {
		cbs []*fdEvent
	}
	var readables, writables []dispatch
	for _, rd := range ready {
		if rd.bad {
			badFDs = append(badFDs, rd.fd)
			continue
		}
		if st := r.fds[rd.fd]; st != nil {
			if rd.readable && len(st.readable) > 0 {
				readables = append(readables, dispatch{append([]*fdEvent(nil), st.readable...)})
			}
			if rd.writable && len(st.writable) > 0 {
				writables = append(writables, dispatch{append([]*fdEvent(nil), st.writable...)})
			}
		}
	}
	for _, fd := range badFDs {
		if st := r.fds[fd]; st != nil {
			if len(st.readable) > 0 {
				readables = append(readables, dispatch{append([]*fdEvent(nil), st.readable...)})
			}
			if len(st.writable) > 0 {
				writables = append(writables, dispatch{append([]*fdEvent(nil), st.writable...)})
			}
		}
	}
	r.mu.Unlock()

	// Ordering: timers first, then readable before writable, then
	// registration order within a direction.
	for _, t := range due {
		r.runCallback(func() { t.cb() })
	}
	for _, d := range readables {
		r.fireDispatch(d.cbs)
	}
	for _, d := range writables {
		r.fireDispatch(d.cbs)
	}
	return nil
}

func (r *ReactorFallback) fireDispatch(cbs []*fdEvent) {
	for _, ev := range cbs {
		if ev.stopped {
			continue
		}
		r.runCallback(ev.cb)
	}
}

// runCallback isolates a single reactor callback's panic so one faulty
// registration cannot abort the whole iteration.
func (r *ReactorFallback) runCallback(cb func()) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("reactor", "recovered panic from reactor callback", "panic", rec)
		}
	}()
	cb()
}

// FakeIO implements Reactor.
func (r *ReactorFallback) FakeIO(fd int) {
	r.mu.Lock()
	var cbs []*fdEvent
	if st := r.fds[fd]; st != nil {
		cbs = append(cbs, st.readable...)
		cbs = append(cbs, st.writable...)
	}
	r.mu.Unlock()
	r.fireDispatch(cbs)
}

// Transfer implements Reactor: it moves every registration (fd callbacks
// and live timers) onto other, which must itself be a *ReactorFallback or
// a *ReactorNative.
func (r *ReactorFallback) Transfer(other Reactor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for fd, st := range r.fds {
		for _, ev := range st.readable {
			if ev.stopped {
				continue
			}
			if _, err := other.OnReadable(fd, ev.cb); err != nil {
				return err
			}
		}
		for _, ev := range st.writable {
			if ev.stopped {
				continue
			}
			if _, err := other.OnWritable(fd, ev.cb); err != nil {
				return err
			}
		}
	}
	for _, t := range r.timers {
		if t.stopped {
			continue
		}
		remaining := time.Until(t.expiry)
		if remaining < 0 {
			remaining = 0
		}
		other.OnTimer(remaining, t.repeat, t.cb)
	}
	r.fds = make(map[int]*fdState)
	r.timers = nil
	return nil
}

// Destroy implements Reactor.
func (r *ReactorFallback) Destroy() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	r.fds = nil
	r.timers = nil
	return r.poller.close()
}

// wakeForRegistration interrupts a concurrent blocking Iter so a
// registration made from another goroutine while Iter(true) is already
// blocked — a new fd watch or a timer that expires sooner than whatever
// timeout Iter last computed — is observed promptly instead of waiting out
// that stale timeout. Called from register and OnTimer.
func (r *ReactorFallback) wakeForRegistration() {
	_ = r.poller.wake()
}
