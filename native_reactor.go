package deferred

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ygrebnov/workers"
)

// nativeEvent is the Event handle returned by ReactorNative registrations:
// closing stop tells the owning watcher goroutine to exit, idempotently.
type nativeEvent struct {
	stop    chan struct{}
	stopped atomic.Bool
}

func (e *nativeEvent) Stop() {
	if e.stopped.CompareAndSwap(false, true) {
		close(e.stop)
	}
}

// ReactorNative is the "native event loop" Reactor: rather than
// multiplexing every registration through one shared epoll/kqueue set on
// the calling goroutine (ReactorFallback's approach),
// each registration gets its own dedicated watcher, pinned to a goroutine
// drawn from a bounded pool (github.com/ygrebnov/workers) instead of an
// unmanaged one-goroutine-per-fd spawn. Watchers report readiness back to
// Iter over a shared channel, which is the one point where this reactor's
// dispatch touches the driver goroutine.
//
// Trade-off versus ReactorFallback: because each fd's readiness wait runs
// on its own pool worker, callbacks run in the order they arrive on the
// ready channel; the "timers, then readable, then writable, then
// registration order" ordering of ReactorFallback does not hold, not even
// within a single Iter call — acceptable for the workload this
// implementation targets (a handful of long-lived blocking watchers, not a
// latency-sensitive ordering-dependent protocol).
type ReactorNative struct {
	mu      sync.Mutex
	pool    workers.Workers[struct{}]
	ctx     context.Context
	cancel  context.CancelFunc
	ready   chan func()
	fds     map[int]*fdState
	logger  Logger
	metrics *Metrics
	closed  bool
}

// NewReactorNative constructs a ReactorNative backed by a workers.Workers
// pool sized by WithWorkerPool (0, the default, lets the pool grow
// dynamically — see github.com/ygrebnov/workers/pool.NewDynamic).
func NewReactorNative(opts ...ReactorOption) (*ReactorNative, error) {
	cfg := resolveReactorOptions(opts)
	ctx, cancel := context.WithCancel(context.Background())
	pool := workers.New[struct{}](ctx, &workers.Config{
		MaxWorkers:        uint(cfg.workers),
		StartImmediately:  true,
		ResultsBufferSize: 1,
		ErrorsBufferSize:  16,
	})
	bufSize := cfg.waitBufSize
	if bufSize <= 0 {
		bufSize = 64
	}
	return &ReactorNative{
		pool:    pool,
		ctx:     ctx,
		cancel:  cancel,
		ready:   make(chan func(), bufSize),
		fds:     make(map[int]*fdState),
		logger:  cfg.logger,
		metrics: cfg.metrics,
	}, nil
}

func (r *ReactorNative) register(fd int, writable bool, cb IOCallback) (Event, error) {
	if fd < 0 {
		return nil, ErrFDOutOfRange
	}
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrReactorClosed
	}
	st, ok := r.fds[fd]
	if !ok {
		st = &fdState{}
		r.fds[fd] = st
	}
	ev := &fdEvent{fd: fd, writable: writable, cb: cb}
	if writable {
		st.writable = append(st.writable, ev)
	} else {
		st.readable = append(st.readable, ev)
	}
	r.mu.Unlock()

	watcher := &nativeEvent{stop: make(chan struct{})}
	err := r.pool.AddTask(func(ctx context.Context) error {
		r.watchFD(ctx, fd, writable, cb, watcher)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if r.metrics != nil {
		r.mu.Lock()
		r.metrics.registeredFDs.Set(float64(len(r.fds)))
		r.mu.Unlock()
	}
	return watcher, nil
}

// watchFD runs on a pool worker, blocking on a single-fd poller until fd
// becomes ready (or the watcher is stopped), then hands cb off to Iter via
// r.ready.
func (r *ReactorNative) watchFD(ctx context.Context, fd int, writable bool, cb IOCallback, ev *nativeEvent) {
	p := newPlatformPoller()
	if err := p.init(); err != nil {
		r.logger.Error("reactor", "native watcher init failed", "fd", fd, "err", err)
		return
	}
	defer p.close()
	if err := p.add(fd, !writable, writable); err != nil {
		r.logger.Error("reactor", "native watcher register failed", "fd", fd, "err", err)
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ev.stop:
			return
		default:
		}
		ready, err := p.wait(200*time.Millisecond, nil)
		if err != nil {
			r.logger.Error("reactor", "native watcher poll failed", "fd", fd, "err", err)
			return
		}
		if len(ready) == 0 {
			continue
		}
		select {
		case r.ready <- cb:
		case <-ctx.Done():
			return
		case <-ev.stop:
			return
		}
	}
}

// OnReadable implements Reactor.
func (r *ReactorNative) OnReadable(fd int, cb IOCallback) (Event, error) {
	return r.register(fd, false, cb)
}

// OnWritable implements Reactor.
func (r *ReactorNative) OnWritable(fd int, cb IOCallback) (Event, error) {
	return r.register(fd, true, cb)
}

// OnTimer implements Reactor, using time.AfterFunc chains rather than the
// shared timerHeap ReactorFallback uses, since there is no single poll
// loop here to fold timer expiry checks into.
func (r *ReactorNative) OnTimer(delay time.Duration, repeat bool, cb TimerCallback) Event {
	ev := &nativeEvent{stop: make(chan struct{})}
	var fire func()
	fire = func() {
		select {
		case <-ev.stop:
			return
		default:
		}
		select {
		case r.ready <- func() { cb() }:
		case <-r.ctx.Done():
			return
		case <-ev.stop:
			return
		}
		if repeat {
			time.AfterFunc(delay, fire)
		}
	}
	time.AfterFunc(delay, fire)
	if r.metrics != nil {
		r.metrics.registeredTimers.Add(1)
	}
	return ev
}

// Iter implements Reactor: it waits for (block==true) or polls for
// (block==false) at least one ready callback, runs it, then drains
// whatever else has already accumulated without blocking further.
func (r *ReactorNative) Iter(block bool) error {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return ErrReactorClosed
	}

	if block {
		select {
		case cb := <-r.ready:
			r.runCallback(cb)
		case <-r.ctx.Done():
			return ErrReactorClosed
		}
	} else {
		select {
		case cb := <-r.ready:
			r.runCallback(cb)
		default:
			return nil
		}
	}
	for {
		select {
		case cb := <-r.ready:
			r.runCallback(cb)
		default:
			return nil
		}
	}
}

func (r *ReactorNative) runCallback(cb func()) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("reactor", "recovered panic from reactor callback", "panic", rec)
		}
	}()
	cb()
}

// FakeIO implements Reactor: invokes every still-registered callback for
// fd directly, bypassing the watcher goroutines entirely.
func (r *ReactorNative) FakeIO(fd int) {
	r.mu.Lock()
	var cbs []IOCallback
	if st := r.fds[fd]; st != nil {
		for _, ev := range st.readable {
			if !ev.stopped {
				cbs = append(cbs, ev.cb)
			}
		}
		for _, ev := range st.writable {
			if !ev.stopped {
				cbs = append(cbs, ev.cb)
			}
		}
	}
	r.mu.Unlock()
	for _, cb := range cbs {
		r.runCallback(cb)
	}
}

// Transfer implements Reactor: moves every registered fd callback onto
// other (watcher goroutines for this reactor are left to exit on their own
// the next time they observe r's context cancelled, which Destroy
// triggers). Timers registered with OnTimer are not moved; they keep
// delivering to this reactor until Destroy.
func (r *ReactorNative) Transfer(other Reactor) error {
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
	r.fds = make(map[int]*fdState)
	return nil
}

// Destroy implements Reactor: cancels every outstanding watcher and timer
// chain and releases the worker pool.
func (r *ReactorNative) Destroy() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.fds = nil
	r.mu.Unlock()
	r.cancel()
	return nil
}
