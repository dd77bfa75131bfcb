package deferred

import "context"

// FromContext derives a Deferred[struct{}] that rejects with ctx.Err() the
// moment ctx is cancelled or its deadline passes, letting ordinary
// cancellation-aware Go code (an http.Request, a database call's context)
// drive cancellation through Choose/Pick the same way a task-pair deferred
// does. The returned Deferred never resolves on its own; it only ever
// settles by rejection, or is left pending for the caller to race against
// other branches via Choose/Pick.
//
// FromContext spawns one goroutine that blocks on ctx.Done() and bridges
// the result back onto the driver via the returned Deferred's Resolver;
// the bridging Reject call is safe because Resolver.Reject is just a
// settle() call, and settle()'s only requirement is that it not run
// concurrently with another settle on the same core — ctx.Done() fires
// at most once.
func FromContext(ctx context.Context) Deferred[struct{}] {
	d, r := Task[struct{}]()
	if err := ctx.Err(); err != nil {
		r.Reject(err)
		return d
	}
	go func() {
		<-ctx.Done()
		r.Reject(ctx.Err())
	}()
	return d
}

// ContextBridge exports a Deferred's eventual outcome as a context.Context:
// the returned context is cancelled (ctx.Err() becomes non-nil) the instant
// d rejects, and is cancelled with context.Canceled if d resolves (a
// resolution carries no error to report through Err, but the context's job
// is done either way). Cancelling parent cancels the derived context only;
// d is not cancelled and keeps running.
type ContextBridge struct {
	ctx    context.Context
	cancel context.CancelCauseFunc
}

// NewContextBridge constructs a ContextBridge derived from parent, wired to
// d's outcome.
func NewContextBridge[T any](parent context.Context, d Deferred[T]) *ContextBridge {
	ctx, cancel := context.WithCancelCause(parent)
	cb := &ContextBridge{ctx: ctx, cancel: cancel}
	d.OnTermination(func() {
		_, err, _ := d.Poll()
		if err != nil {
			cancel(err)
		} else {
			cancel(context.Canceled)
		}
	})
	return cb
}

// Context returns the derived context.Context.
func (cb *ContextBridge) Context() context.Context {
	return cb.ctx
}

// Cancel cancels the derived context directly, independent of d's outcome;
// useful for releasing the bridge's resources when the caller is done
// observing d but d itself is still pending.
func (cb *ContextBridge) Cancel() {
	cb.cancel(context.Canceled)
}
