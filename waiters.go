package deferred

import "sync/atomic"

// waiterCompactionThreshold is the number of cleared removable waiter cells
// a waiterSet tolerates before it performs a compacting traversal. It
// follows the same package-level global-configuration idiom as the default
// logger in logging.go rather than threading a value through every
// constructor: the threshold is ambient tuning, not part of any single
// deferred's identity.
var waiterCompactionThreshold atomic.Int64

func init() {
	waiterCompactionThreshold.Store(42)
}

// SetWaiterCompactionThreshold overrides the default cleared-waiter
// compaction threshold. It is exposed to driver construction as
// WithWaiterCompactionThreshold (see options.go); calling it directly is
// useful for tests.
func SetWaiterCompactionThreshold(n int) {
	if n < 1 {
		n = 1
	}
	waiterCompactionThreshold.Store(int64(n))
}

// waiterFunc is invoked at most once, when the owning core settles.
type waiterFunc func(state State, value any, err error)

// waiterCell is the payload attached to a seqNode in a waiterSet's list.
// cleared is non-nil only for removable waiters; a permanent waiter (used by
// simple observers like OnSuccess/OnFailure) never needs one.
type waiterCell struct {
	fire    waiterFunc
	cleared *bool
}

// waiterSet is the lazily flattened collection of continuations registered
// against a pending core. It supports O(1) append, O(1) disable-without-
// traversal for removable waiters (via a shared cleared cell), and periodic
// compaction once enough removable waiters have been disabled.
type waiterSet struct {
	list         *seq
	clearedCount int
}

func newWaiterSet() *waiterSet {
	return &waiterSet{list: newSeq()}
}

// addPermanent registers fire to run exactly once, unconditionally, when the
// owning core settles.
func (ws *waiterSet) addPermanent(fire waiterFunc) {
	node := &seqNode{Value: &waiterCell{fire: fire}}
	ws.list.PushBack(node)
}

// addRemovable registers fire to run when the owning core settles, unless
// the returned stop function is called first. Multi-way combinators
// (choose, join, ...) use this to register one waiter per input and disable
// the rest the instant one of them fires, without needing to walk any
// sibling's waiter set.
func (ws *waiterSet) addRemovable(fire waiterFunc) (stop func()) {
	cleared := new(bool)
	node := &seqNode{Value: &waiterCell{fire: fire, cleared: cleared}}
	ws.list.PushBack(node)
	return func() {
		if *cleared {
			return
		}
		*cleared = true
		ws.clearedCount++
		ws.maybeCompact()
	}
}

// fireAll invokes every still-live waiter, in registration order, then
// empties the set (a core settles exactly once, so its waiters never need to
// be inspected again afterward).
func (ws *waiterSet) fireAll(state State, value any, err error) {
	ws.list.Each(func(n *seqNode) {
		cell := n.Value.(*waiterCell)
		if cell.cleared != nil && *cell.cleared {
			return
		}
		cell.fire(state, value, err)
	})
	ws.list = newSeq()
	ws.clearedCount = 0
}

// merge moves every waiter from other into ws, preserving relative order
// (other's waiters are appended after ws's existing ones). Used when a
// pending deferred is forwarded onto another: both sides' waiters must
// end up firing when the merged representative eventually settles.
func (ws *waiterSet) merge(other *waiterSet) {
	other.list.TransferTo(ws.list)
	ws.clearedCount += other.clearedCount
	other.clearedCount = 0
	ws.maybeCompact()
}

func (ws *waiterSet) maybeCompact() {
	threshold := int(waiterCompactionThreshold.Load())
	if ws.clearedCount < threshold {
		return
	}
	defaultMetrics.waiterCompactions.Inc()
	fresh := newSeq()
	ws.list.Each(func(n *seqNode) {
		cell := n.Value.(*waiterCell)
		if cell.cleared != nil && *cell.cleared {
			return
		}
		fresh.PushBack(&seqNode{Value: cell})
	})
	ws.list = fresh
	ws.clearedCount = 0
}

// len reports the number of currently live (non-cleared) waiters; used only
// by metrics and tests.
func (ws *waiterSet) len() int {
	return ws.list.Len() - ws.clearedCount
}
