package deferred

import (
	"math/rand"
)

// Unit is the empty-value type returned by operations whose only useful
// outcome is "it settled" (Finalize's cleanup step, Join, Pause).
type Unit struct{}

// randSource drives the tie-break in Choose/Pick when more than one input
// is already terminal at call time. It defaults to a fixed seed so that
// non-I/O-driven programs get reproducible scheduling; swap it
// with SetRandSource (or the driver's WithRandSource option) for an
// I/O-seeded or test-controlled source.
var randSource = rand.New(rand.NewSource(0xd37e44ed))

// SetRandSource replaces the source used for Choose/Pick tie-breaking.
func SetRandSource(r *rand.Rand) {
	if r == nil {
		return
	}
	randSource = r
}

func safeCall[T any](f func() Deferred[T]) (out Deferred[T]) {
	defer func() {
		if r := recover(); r != nil {
			out = Fail[T](&PanicError{Value: r})
		}
	}()
	return f()
}

// onTerminalRemovable is the removable-waiter counterpart to onTerminal: it
// registers fire against c's representative and returns a stop function that
// disables it, or (if c is already terminal) invokes fire immediately and
// returns a no-op stop. Multi-way combinators use this to register one
// waiter per input and disable the rest the instant one fires.
func onTerminalRemovable(c *core, fire waiterFunc) (stop func()) {
	rep := representative(c)
	if rep.state != Pending {
		withContext(rep.ctx, func() {
			fire(rep.state, rep.value, rep.err)
		})
		return func() {}
	}
	return rep.waiters.addRemovable(fire)
}

// settleFrom copies src's terminal outcome into dst, which must be pending.
func settleFrom(dst *core, src *core) {
	rep := representative(src)
	switch rep.state {
	case Resolved:
		dst.settle(Resolved, rep.value, nil, false)
	case Rejected:
		dst.settle(Rejected, nil, rep.err, false)
	default:
		panic("deferred: settleFrom: source is not terminal")
	}
}

// Bind sequences f after d: if d resolves with v, the result forwards
// whatever f(v) produces; if d rejects, the result rejects with the same
// error without calling f. Cancelling the result cancels d (and, once f has
// been called, whatever f returned, since connect retargets the cancel
// handle onto the produced deferred).
func Bind[T, U any](d Deferred[T], f func(T) Deferred[U]) Deferred[U] {
	result, _ := Wait[U]()
	result.c.cancel = func() { Cancel(d) }
	onTerminal(d.c, func(state State, value any, err error) {
		if state == Rejected {
			result.c.settle(Rejected, nil, err, false)
			return
		}
		next := safeCall(func() Deferred[U] { return f(value.(T)) })
		connect(result.c, next.c)
	})
	return result
}

// Map transforms d's resolved value with g; g's panics are recovered and
// turned into rejection, the same as any Bind callback.
func Map[T, U any](g func(T) U, d Deferred[T]) Deferred[U] {
	return Bind(d, func(v T) Deferred[U] {
		return Return(g(v))
	})
}

// Catch runs f(); if it rejects, forwards to g(err); resolved values pass
// through untouched.
func Catch[T any](f func() Deferred[T], g func(error) Deferred[T]) Deferred[T] {
	result, _ := Wait[T]()
	d := safeCall(f)
	result.c.cancel = func() { Cancel(d) }
	onTerminal(d.c, func(state State, value any, err error) {
		if state == Resolved {
			result.c.settle(Resolved, value, nil, false)
			return
		}
		next := safeCall(func() Deferred[T] { return g(err) })
		connect(result.c, next.c)
	})
	return result
}

// TryBind runs f(); dispatches its outcome to g (resolved) or h (rejected).
func TryBind[T, U any](f func() Deferred[T], g func(T) Deferred[U], h func(error) Deferred[U]) Deferred[U] {
	result, _ := Wait[U]()
	d := safeCall(f)
	result.c.cancel = func() { Cancel(d) }
	onTerminal(d.c, func(state State, value any, err error) {
		var next Deferred[U]
		if state == Resolved {
			next = safeCall(func() Deferred[U] { return g(value.(T)) })
		} else {
			next = safeCall(func() Deferred[U] { return h(err) })
		}
		connect(result.c, next.c)
	})
	return result
}

// Finalize runs f(), then always runs g() before the result settles. If g
// rejects, that rejection replaces f's outcome; otherwise f's outcome
// (resolved or rejected) passes through.
func Finalize[T any](f func() Deferred[T], g func() Deferred[Unit]) Deferred[T] {
	result, _ := Wait[T]()
	d := safeCall(f)
	result.c.cancel = func() { Cancel(d) }
	onTerminal(d.c, func(state State, value any, err error) {
		cleanup := safeCall(g)
		onTerminal(cleanup.c, func(cstate State, _ any, cerr error) {
			if cstate == Rejected {
				result.c.settle(Rejected, nil, cerr, false)
				return
			}
			result.c.settle(state, value, err, false)
		})
	})
	return result
}

// Choose resolves as the first of ds to reach a terminal state. If more
// than one is already terminal at call time, one is picked uniformly at
// random (via randSource) for reproducibility. Unchosen inputs are left
// running untouched.
func Choose[T any](ds []Deferred[T]) Deferred[T] {
	return raceImpl(ds, false)
}

// Pick behaves like Choose but cancels every other input once the winner is
// known.
func Pick[T any](ds []Deferred[T]) Deferred[T] {
	return raceImpl(ds, true)
}

func raceImpl[T any](ds []Deferred[T], cancelLosers bool) Deferred[T] {
	if len(ds) == 0 {
		panic("deferred: choose/pick requires at least one input")
	}
	result, _ := Task[T]()

	var terminalIdx []int
	for i, d := range ds {
		if d.State() != Pending {
			terminalIdx = append(terminalIdx, i)
		}
	}
	if len(terminalIdx) > 0 {
		winner := terminalIdx[0]
		if len(terminalIdx) > 1 {
			winner = terminalIdx[randSource.Intn(len(terminalIdx))]
		}
		settleFrom(result.c, ds[winner].c)
		if cancelLosers {
			for i, d := range ds {
				if i != winner {
					Cancel(d)
				}
			}
		}
		return result
	}

	settled := false
	stops := make([]func(), len(ds))
	for i := range ds {
		i := i
		stops[i] = onTerminalRemovable(ds[i].c, func(State, any, error) {
			if settled {
				return
			}
			settled = true
			for j, stop := range stops {
				if j != i {
					stop()
				}
			}
			settleFrom(result.c, ds[i].c)
			if cancelLosers {
				for j, d := range ds {
					if j != i {
						Cancel(d)
					}
				}
			}
		})
	}
	result.OnCancel(func() {
		for _, d := range ds {
			Cancel(d)
		}
	})
	return result
}

// Join waits for every input to settle. It resolves with Unit{} if all
// resolved, or rejects with whichever rejection arrived first in time once
// every input has settled.
func Join(ds ...Deferred[Unit]) Deferred[Unit] {
	result, _ := Task[Unit]()
	if len(ds) == 0 {
		result.c.settle(Resolved, Unit{}, nil, false)
		return result
	}
	remaining := len(ds)
	var firstErr error
	for _, d := range ds {
		d := d
		onTerminal(d.c, func(state State, _ any, err error) {
			if state == Rejected && firstErr == nil {
				firstErr = err
			}
			remaining--
			if remaining == 0 {
				if firstErr != nil {
					result.c.settle(Rejected, nil, firstErr, false)
				} else {
					result.c.settle(Resolved, Unit{}, nil, false)
				}
			}
		})
	}
	result.OnCancel(func() {
		for _, d := range ds {
			Cancel(d)
		}
	})
	return result
}

// Terminate discards d's resolved value (but not its error), producing a
// Deferred[Unit] suitable for Join, which is otherwise homogeneous.
func Terminate[T any](d Deferred[T]) Deferred[Unit] {
	return Bind(d, func(T) Deferred[Unit] { return Return(Unit{}) })
}

// NChoose waits until at least one input resolves, then resolves with the
// values (in input order) of whichever inputs are terminal-and-resolved at
// that instant. Any rejection observed before or during that wait rejects
// the whole thing.
func NChoose[T any](ds []Deferred[T]) Deferred[[]T] {
	result, _ := Task[[]T]()
	settled := false
	stops := make([]func(), len(ds))

	finishReject := func(err error) {
		if settled {
			return
		}
		settled = true
		for _, stop := range stops {
			if stop != nil {
				stop()
			}
		}
		result.c.settle(Rejected, nil, err, false)
	}
	collect := func() {
		if settled {
			return
		}
		var vals []T
		for _, d := range ds {
			switch d.State() {
			case Resolved:
				v, _, _ := d.Poll()
				vals = append(vals, v)
			case Rejected:
				_, err, _ := d.Poll()
				finishReject(err)
				return
			}
		}
		settled = true
		for _, stop := range stops {
			if stop != nil {
				stop()
			}
		}
		result.c.settle(Resolved, vals, nil, false)
	}

	for i := range ds {
		stops[i] = onTerminalRemovable(ds[i].c, func(state State, _ any, err error) {
			if state == Rejected {
				finishReject(err)
				return
			}
			collect()
		})
	}
	result.OnCancel(func() {
		for _, d := range ds {
			Cancel(d)
		}
	})
	return result
}

// NPick behaves like NChoose, additionally cancelling every input still
// pending once the result is computed.
func NPick[T any](ds []Deferred[T]) Deferred[[]T] {
	result := NChoose(ds)
	result.OnSuccess(func([]T) {
		for _, d := range ds {
			if d.State() == Pending {
				Cancel(d)
			}
		}
	})
	return result
}

// ChooseSplit is NChooseSplit's result: the resolved values collected so
// far, plus whichever inputs were still pending at that instant.
type ChooseSplit[T any] struct {
	Values  []T
	Pending []Deferred[T]
}

// NChooseSplit behaves like NChoose but additionally reports which inputs
// are still pending.
func NChooseSplit[T any](ds []Deferred[T]) Deferred[ChooseSplit[T]] {
	inner := NChoose(ds)
	return Bind(inner, func(vals []T) Deferred[ChooseSplit[T]] {
		var pending []Deferred[T]
		for _, d := range ds {
			if d.State() == Pending {
				pending = append(pending, d)
			}
		}
		return Return(ChooseSplit[T]{Values: vals, Pending: pending})
	})
}

// Protected returns a new task-pair that mirrors d's outcome but whose own
// cancellation does not propagate to d: cancelling the result only affects
// callers downstream of it.
func Protected[T any](d Deferred[T]) Deferred[T] {
	result, _ := Task[T]()
	onTerminal(d.c, func(State, any, error) {
		settleFrom(result.c, d.c)
	})
	return result
}
