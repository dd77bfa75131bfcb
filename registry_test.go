package deferred

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryTrackUntrack(t *testing.T) {
	reg := newRegistry()
	c := newCore()
	// newCore already tracked c against defaultRegistry; track it again
	// against a private registry to exercise track/untrack in isolation.
	id := reg.track(c)
	assert.Equal(t, 1, reg.livePending())
	reg.untrack(id)
	assert.Equal(t, 0, reg.livePending())
}

func TestRegistryLivePendingIgnoresSettled(t *testing.T) {
	reg := newRegistry()
	c := newCore()
	reg.track(c)
	c.settle(Resolved, 1, nil, false)
	assert.Equal(t, 0, reg.livePending(), "a settled core must not count as live-pending")
}

func TestRegistryRejectAllPending(t *testing.T) {
	reg := newRegistry()
	c1 := newCore()
	c2 := newCore()
	reg.track(c1)
	reg.track(c2)
	sentinel := errors.New("shutdown")
	reg.rejectAllPending(sentinel)
	require.Equal(t, Rejected, c1.state)
	require.Equal(t, Rejected, c2.state)
	assert.ErrorIs(t, c1.err, sentinel)
	assert.ErrorIs(t, c2.err, sentinel)
}

func TestDefaultRegistryTracksNewCoreAndUntracksOnSettle(t *testing.T) {
	before := defaultRegistry.livePending()
	d, r := Wait[int]()
	assert.Equal(t, before+1, defaultRegistry.livePending())
	r.Resolve(1)
	assert.Equal(t, before, defaultRegistry.livePending())
	_ = d
}
