package deferred

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeq_PushBackAndEach(t *testing.T) {
	s := newSeq()
	var order []int
	nodes := make([]*seqNode, 5)
	for i := range nodes {
		nodes[i] = &seqNode{}
		s.PushBack(nodes[i])
	}
	require.Equal(t, 5, s.Len())

	i := 0
	s.Each(func(n *seqNode) {
		order = append(order, i)
		i++
	})
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestSeq_RemoveMidIteration(t *testing.T) {
	s := newSeq()
	a, b, c := &seqNode{}, &seqNode{}, &seqNode{}
	s.PushBack(a)
	s.PushBack(b)
	s.PushBack(c)

	var visited []*seqNode
	s.Each(func(n *seqNode) {
		visited = append(visited, n)
		if n == a {
			s.Remove(b)
		}
	})
	assert.Equal(t, []*seqNode{a, b, c}, visited)
	assert.Equal(t, 2, s.Len())
	assert.False(t, b.linked())
}

func TestSeq_RemoveTwiceIsNoop(t *testing.T) {
	s := newSeq()
	a := &seqNode{}
	s.PushBack(a)
	s.Remove(a)
	assert.NotPanics(t, func() { s.Remove(a) })
	assert.Equal(t, 0, s.Len())
}

func TestSeq_PushBackAlreadyLinkedPanics(t *testing.T) {
	s1, s2 := newSeq(), newSeq()
	a := &seqNode{}
	s1.PushBack(a)
	assert.Panics(t, func() { s2.PushBack(a) })
}

func TestSeq_TransferTo(t *testing.T) {
	src, dst := newSeq(), newSeq()
	a, b := &seqNode{}, &seqNode{}
	dst.PushBack(&seqNode{})
	src.PushBack(a)
	src.PushBack(b)

	src.TransferTo(dst)
	assert.Equal(t, 0, src.Len())
	assert.Equal(t, 3, dst.Len())

	var order []*seqNode
	dst.Each(func(n *seqNode) { order = append(order, n) })
	assert.Equal(t, []*seqNode{order[0], a, b}, order)
}

func TestSeq_TransferEmptyIsNoop(t *testing.T) {
	src, dst := newSeq(), newSeq()
	dst.PushBack(&seqNode{})
	src.TransferTo(dst)
	assert.Equal(t, 1, dst.Len())
}
