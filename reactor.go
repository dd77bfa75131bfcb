package deferred

import (
	"errors"
	"time"
)

// Event is an opaque stop-token for an active reactor registration (an
// fd watch or a timer). Stop is idempotent and O(1): calling it more than
// once, or after the registration already fired its last invocation (a
// non-repeating timer), is a silent no-op.
type Event interface {
	Stop()
}

// IOCallback is invoked by a Reactor every time a registered fd becomes
// readable/writable. It receives no arguments; callers that need to know
// why they were woken re-probe the fd themselves (read/write and inspect
// the error), matching the "level-triggered" readiness model fd channels
// are built on.
type IOCallback func()

// TimerCallback is invoked by a Reactor when a registered timer fires.
type TimerCallback func()

// Reactor is the pluggable source of I/O readiness and timer events the
// main driver (Run) polls between scheduler steps. The
// core depends only on this interface; ReactorFallback (a readiness-
// multiplexing syscall plus a timer heap) and ReactorNative (a worker-pool
// backed wrapper pinning one goroutine per registration) are both
// conforming implementations, built with NewReactorFallback or
// NewReactorNative and handed to Run via WithReactor.
type Reactor interface {
	// Iter performs one pass. If block is true and nothing is presently
	// ready, Iter suspends until at least one fd becomes ready, a timer
	// expires, or the reactor is woken (e.g. by a registration made from
	// another goroutine). If block is false, Iter polls without waiting.
	Iter(block bool) error

	// OnReadable registers cb to run every time fd becomes readable.
	OnReadable(fd int, cb IOCallback) (Event, error)
	// OnWritable registers cb to run every time fd becomes writable.
	OnWritable(fd int, cb IOCallback) (Event, error)
	// OnTimer registers cb to fire once after delay, or every delay if
	// repeat is true.
	OnTimer(delay time.Duration, repeat bool, cb TimerCallback) Event

	// FakeIO invokes every readable and writable callback registered
	// against fd without consulting the kernel, letting tests and
	// higher-level channel buffering simulate readiness synchronously.
	FakeIO(fd int)

	// Transfer moves every live registration onto other, so a caller can
	// swap reactor implementations without losing in-flight watches.
	Transfer(other Reactor) error
	// Destroy stops every registration and releases the reactor's
	// resources. The reactor must not be used afterward.
	Destroy() error
}

var (
	// ErrFDOutOfRange is returned when a registration names a negative
	// file descriptor.
	ErrFDOutOfRange = errors.New("deferred: reactor: fd out of range")
	// ErrReactorClosed is returned by OnReadable, OnWritable and Iter on a
	// Reactor after Destroy has run.
	ErrReactorClosed = errors.New("deferred: reactor: closed")
)
