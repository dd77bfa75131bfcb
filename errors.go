package deferred

import (
	"errors"
	"fmt"
)

// Canceled is the sentinel rejection error installed by the default
// task-pair cancel thunk and returned by Cancel's propagation through bind
// chains. Use errors.Is(err, Canceled) to test for it; it is never
// wrapped, so a straight equality check also works.
var Canceled = errors.New("deferred: canceled")

// PanicError wraps a value recovered from a panicking user callback inside a
// combinator (Bind/Map/Catch/TryBind/Finalize). The core always recovers
// these and turns them into a rejection rather than letting them escape
// across a suspension point.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("deferred: recovered panic: %v", e.Value)
}

// Unwrap allows errors.Is/errors.As to see through to the panic value when
// it is itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// ErrAlreadySettled is the programmer-error panic raised by Resolve/Reject
// when called against a deferred that has already reached a terminal state
// other than Rejected(Canceled) (which is always a silent no-op). It is a
// panic value, not a returned error: resolving a
// settled deferred twice is a bug in the caller, not a runtime condition a
// Deferred's consumer should have to guard against.
type ErrAlreadySettled struct {
	Current State
}

func (e *ErrAlreadySettled) Error() string {
	return fmt.Sprintf("deferred: already settled (%s)", e.Current)
}

// ErrConnectNonPending is the programmer-error panic raised when connect is
// asked to forward a core that is not in the pending state, i.e. attempting
// to bind a second outcome onto a deferred produced internally by Bind/Map/
// TryBind, which must always still be pending at the point a user callback
// returns.
type ErrConnectNonPending struct {
	Current State
}

func (e *ErrConnectNonPending) Error() string {
	return fmt.Sprintf("deferred: connect target not pending (%s)", e.Current)
}

// ErrReentrantRun is returned by Run when called while another Run is
// already driving the same (or any) scheduler on the current process:
// nested driving is refused rather than interleaved.
var ErrReentrantRun = errors.New("deferred: reentrant Run")

// ErrRunStopped is the rejection error Run installs on every deferred still
// pending in the registry when it returns, so a root settling doesn't leave
// unrelated in-flight work (a losing Choose input, a fire-and-forget Task)
// waiting on a scheduler that has stopped driving it.
var ErrRunStopped = errors.New("deferred: run stopped")
