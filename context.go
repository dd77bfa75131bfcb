package deferred

import "sync/atomic"

// Key identifies a slot in the dynamic context carried through combinator
// chains (see package doc). A Key is created with NewKey and is safe to
// share across goroutines that are themselves respecting the
// single-threaded scheduling model: concurrent Get/Set from the driver
// goroutine and from code that has not yet handed control back to the
// driver would race, same as any other core state.
type Key struct {
	id uint64
}

var keyCounter atomic.Uint64

// NewKey allocates a fresh dynamic-context key. Keys are never reused or
// freed; the intended lifetime is the process, same as a package-level
// variable holding a context.Context key.
func NewKey() Key {
	return Key{id: keyCounter.Add(1)}
}

// dynCtx is an immutable association list from Key to value, shared
// structurally the way a context.Context's parent chain is shared: WithValue
// never mutates an existing dynCtx, it conses a new frame on top. Deferreds
// that share a lexical scope can therefore share a *dynCtx frame instead of
// copying a map, and the whole chain is garbage once nothing points at its
// tail anymore.
type dynCtx struct {
	key    Key
	value  any
	parent *dynCtx
}

func (c *dynCtx) get(k Key) (any, bool) {
	for cur := c; cur != nil; cur = cur.parent {
		if cur.key == k {
			return cur.value, true
		}
	}
	return nil, false
}

// current holds the dynamic context active for the synchronous block of code
// presently executing on the driver goroutine. It is saved and restored at
// every suspension point (waiter firing, reactor callback dispatch) so that
// the ambient context after any core operation always equals the context
// before it.
var current *dynCtx

// Get returns the value associated with k in the currently active dynamic
// context, or (nil, false) if k has never been set in any enclosing scope.
func Get(k Key) (any, bool) {
	return current.get(k)
}

// WithValue runs fn with k bound to v in the dynamic context, restoring the
// previous context (whatever it was, including any prior binding of k)
// before returning, regardless of whether fn panics.
func WithValue(k Key, v any, fn func()) {
	saved := current
	current = &dynCtx{key: k, value: v, parent: saved}
	defer func() { current = saved }()
	fn()
}

// snapshotContext captures the dynamic context active right now, for later
// reinstallation when a deferred created in this scope settles, or when a
// waiter registered in this scope fires.
func snapshotContext() *dynCtx {
	return current
}

// withContext temporarily installs snap as the active dynamic context for
// the duration of fn, then restores whatever was active before the call.
// Every waiter invocation and reactor-driven callback dispatch goes through
// this so that user code observes the dynamic context that was live when the
// corresponding deferred (or combinator) was constructed, not whatever
// happens to be live on the call stack that triggered resolution.
func withContext(snap *dynCtx, fn func()) {
	saved := current
	current = snap
	defer func() { current = saved }()
	fn()
}
