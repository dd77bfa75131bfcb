package deferred

// seqNode is an intrusive doubly-linked list node embedded by waiter cells
// and other structures that need O(1) removal given only a handle to
// themselves, without a separate allocation per list membership.
type seqNode struct {
	prev, next *seqNode
	list       *seq
	// Value carries whatever payload the owner wants addressed by node
	// identity (a waiter cell, a registered reactor callback, ...). The
	// list itself never interprets it.
	Value any
}

// linked reports whether the node is currently a member of a list.
func (n *seqNode) linked() bool {
	return n.list != nil
}

// seq is an intrusive doubly-linked list with a sentinel root node, following
// the same sentinel-ring shape as container/list.List: root.next is the head,
// root.prev is the tail, and an empty list has root pointing to itself.
type seq struct {
	root seqNode
	n    int
}

func newSeq() *seq {
	s := &seq{}
	s.root.next = &s.root
	s.root.prev = &s.root
	return s
}

// Len returns the number of nodes currently linked into the list.
func (s *seq) Len() int { return s.n }

// PushBack appends node to the tail of the list. node must not already be
// linked into any list.
func (s *seq) PushBack(node *seqNode) {
	if node.linked() {
		panic("deferred: seq: node already linked")
	}
	last := s.root.prev
	node.prev = last
	node.next = &s.root
	last.next = node
	s.root.prev = node
	node.list = s
	s.n++
}

// Remove detaches node from the list it is linked into. It is a no-op if
// node is not currently linked. The removed node keeps its neighbour
// pointers, so an Each that already captured it as the next node can still
// step past it.
func (s *seq) Remove(node *seqNode) {
	if node.list != s {
		return
	}
	node.prev.next = node.next
	node.next.prev = node.prev
	node.list = nil
	s.n--
}

// Each iterates the list in insertion (FIFO) order, invoking fn with each
// node. Each captures the next pointer before calling fn, so fn may remove
// its own node (or any other node already visited) without corrupting the
// iteration; a node removed while it is the captured next node is still
// visited. Nodes appended by fn are visited in the same pass, except those
// appended while fn runs on what was then the last node.
func (s *seq) Each(fn func(*seqNode)) {
	end := &s.root
	for cur := s.root.next; cur != end; {
		next := cur.next
		fn(cur)
		cur = next
	}
}

// TransferTo moves every node currently in s onto the tail of dst, preserving
// order, leaving s empty. The waiter set uses it in merge, when a pending
// deferred is forwarded onto another and its waiters move to the
// representative.
func (s *seq) TransferTo(dst *seq) {
	if s.n == 0 {
		return
	}
	for cur := s.root.next; cur != &s.root; {
		next := cur.next
		cur.prev = nil
		cur.next = nil
		cur.list = nil
		dst.PushBack(cur)
		cur = next
	}
	s.root.next = &s.root
	s.root.prev = &s.root
	s.n = 0
}
