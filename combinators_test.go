package deferred

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindChainsSuccess(t *testing.T) {
	d := Bind(Return(2), func(v int) Deferred[int] {
		return Return(v * 10)
	})
	v, err, pending := d.Poll()
	require.False(t, pending)
	require.NoError(t, err)
	assert.Equal(t, 20, v)
}

func TestBindShortCircuitsOnReject(t *testing.T) {
	sentinel := errors.New("upstream failed")
	called := false
	d := Bind(Fail[int](sentinel), func(v int) Deferred[int] {
		called = true
		return Return(v)
	})
	_, err, pending := d.Poll()
	require.False(t, pending)
	assert.ErrorIs(t, err, sentinel)
	assert.False(t, called)
}

func TestBindCancelPropagatesUpstream(t *testing.T) {
	upstream, _ := Task[int]()
	downstream := Bind(upstream, func(v int) Deferred[int] { return Return(v) })
	Cancel(downstream)
	_, err, _ := upstream.Poll()
	assert.ErrorIs(t, err, Canceled)
}

func TestBindTailRecursionDoesNotBlowStack(t *testing.T) {
	var loop func(n int) Deferred[int]
	loop = func(n int) Deferred[int] {
		if n <= 0 {
			return Return(0)
		}
		return Bind(Return(n), func(v int) Deferred[int] {
			return loop(v - 1)
		})
	}
	d := loop(200000)
	v, err, pending := d.Poll()
	require.False(t, pending)
	require.NoError(t, err)
	assert.Equal(t, 0, v)
}

func TestMapTransformsValue(t *testing.T) {
	d := Map(func(v int) string { return "n=" + string(rune('0'+v)) }, Return(3))
	v, _, _ := d.Poll()
	assert.Equal(t, "n=3", v)
}

func TestMapRecoversPanicAsRejection(t *testing.T) {
	d := Map(func(int) int { panic("boom") }, Return(1))
	_, err, pending := d.Poll()
	require.False(t, pending)
	var pe *PanicError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "boom", pe.Value)
}

func TestCatchRecoversRejection(t *testing.T) {
	sentinel := errors.New("fail")
	d := Catch(func() Deferred[int] {
		return Fail[int](sentinel)
	}, func(err error) Deferred[int] {
		require.ErrorIs(t, err, sentinel)
		return Return(99)
	})
	v, err, _ := d.Poll()
	require.NoError(t, err)
	assert.Equal(t, 99, v)
}

func TestCatchPassesThroughResolution(t *testing.T) {
	d := Catch(func() Deferred[int] {
		return Return(5)
	}, func(error) Deferred[int] {
		t.Fatal("catch handler should not run for a resolved input")
		return Return(0)
	})
	v, _, _ := d.Poll()
	assert.Equal(t, 5, v)
}

func TestTryBindDispatchesBothBranches(t *testing.T) {
	ok := TryBind(func() Deferred[int] { return Return(1) },
		func(v int) Deferred[string] { return Return("ok") },
		func(error) Deferred[string] { t.Fatal("unexpected"); return Return("") })
	v, _, _ := ok.Poll()
	assert.Equal(t, "ok", v)

	fail := TryBind(func() Deferred[int] { return Fail[int](errors.New("x")) },
		func(int) Deferred[string] { t.Fatal("unexpected"); return Return("") },
		func(error) Deferred[string] { return Return("recovered") })
	v, _, _ = fail.Poll()
	assert.Equal(t, "recovered", v)
}

func TestFinalizeRunsCleanupOnBothOutcomes(t *testing.T) {
	var cleaned int
	cleanup := func() Deferred[Unit] {
		cleaned++
		return Return(Unit{})
	}

	ok := Finalize(func() Deferred[int] { return Return(1) }, cleanup)
	v, err, _ := ok.Poll()
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	sentinel := errors.New("bad")
	bad := Finalize(func() Deferred[int] { return Fail[int](sentinel) }, cleanup)
	_, err, _ = bad.Poll()
	assert.ErrorIs(t, err, sentinel)

	assert.Equal(t, 2, cleaned)
}

func TestFinalizeCleanupRejectionReplacesOutcome(t *testing.T) {
	cleanupErr := errors.New("cleanup failed")
	d := Finalize(func() Deferred[int] { return Return(1) }, func() Deferred[Unit] {
		return Fail[Unit](cleanupErr)
	})
	_, err, _ := d.Poll()
	assert.ErrorIs(t, err, cleanupErr)
}

func TestChooseTerminalInputsAreDeterministicForFixedSeed(t *testing.T) {
	old := randSource
	defer func() { randSource = old }()
	SetRandSource(rand.New(rand.NewSource(1)))

	ds := []Deferred[int]{Return(1), Return(2), Return(3)}
	first := Choose(ds)
	v1, _, _ := first.Poll()

	SetRandSource(rand.New(rand.NewSource(1)))
	ds2 := []Deferred[int]{Return(1), Return(2), Return(3)}
	second := Choose(ds2)
	v2, _, _ := second.Poll()

	assert.Equal(t, v1, v2, "the same seed must pick the same terminal winner")
}

func TestChoosePendingInputsLeavesLosersRunning(t *testing.T) {
	a, ra := Wait[int]()
	b, _ := Wait[int]()
	d := Choose([]Deferred[int]{a, b})
	ra.Resolve(1)
	v, _, pending := d.Poll()
	require.False(t, pending)
	assert.Equal(t, 1, v)
	assert.Equal(t, Pending, b.State(), "Choose must not touch the losing input")
}

func TestPickCancelsLosers(t *testing.T) {
	a, ra := Task[int]()
	b, _ := Task[int]()
	d := Pick([]Deferred[int]{a, b})
	ra.Resolve(1)
	v, _, pending := d.Poll()
	require.False(t, pending)
	assert.Equal(t, 1, v)
	_, err, pending := b.Poll()
	require.False(t, pending)
	assert.ErrorIs(t, err, Canceled, "Pick must cancel every loser")
}

func TestJoinResolvesWhenAllResolve(t *testing.T) {
	a, ra := Wait[Unit]()
	b, rb := Wait[Unit]()
	d := Join(a, b)
	ra.Resolve(Unit{})
	assert.Equal(t, Pending, d.State())
	rb.Resolve(Unit{})
	_, err, pending := d.Poll()
	require.False(t, pending)
	require.NoError(t, err)
}

func TestJoinRejectsWithFirstError(t *testing.T) {
	a, ra := Wait[Unit]()
	b, rb := Wait[Unit]()
	d := Join(a, b)
	first := errors.New("first")
	ra.Reject(first)
	rb.Reject(errors.New("second"))
	_, err, pending := d.Poll()
	require.False(t, pending)
	assert.ErrorIs(t, err, first)
}

func TestJoinEmptyResolvesImmediately(t *testing.T) {
	d := Join()
	_, err, pending := d.Poll()
	require.False(t, pending)
	require.NoError(t, err)
}

func TestNChooseWaitsForFirstThenCollects(t *testing.T) {
	a, ra := Wait[int]()
	b, _ := Wait[int]()
	d := NChoose([]Deferred[int]{a, b})
	ra.Resolve(1)
	vals, err, pending := d.Poll()
	require.False(t, pending)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, vals)
}

func TestNChooseRejectsOnAnyFailure(t *testing.T) {
	a, ra := Wait[int]()
	b, _ := Wait[int]()
	d := NChoose([]Deferred[int]{a, b})
	sentinel := errors.New("broke")
	ra.Reject(sentinel)
	_, err, pending := d.Poll()
	require.False(t, pending)
	assert.ErrorIs(t, err, sentinel)
}

func TestNPickCancelsStillPendingInputs(t *testing.T) {
	a, ra := Task[int]()
	b, _ := Task[int]()
	d := NPick([]Deferred[int]{a, b})
	ra.Resolve(1)
	_, _, pending := d.Poll()
	require.False(t, pending)
	_, err, pending := b.Poll()
	require.False(t, pending)
	assert.ErrorIs(t, err, Canceled)
}

func TestNChooseSplitReportsPendingInputs(t *testing.T) {
	a, ra := Wait[int]()
	b, _ := Wait[int]()
	d := NChooseSplit([]Deferred[int]{a, b})
	ra.Resolve(1)
	split, _, pending := d.Poll()
	require.False(t, pending)
	assert.Equal(t, []int{1}, split.Values)
	require.Len(t, split.Pending, 1)
	assert.Equal(t, b, split.Pending[0])
}

func TestProtectedDoesNotPropagateCancel(t *testing.T) {
	upstream, _ := Task[int]()
	protected := Protected(upstream)
	Cancel(protected)
	assert.Equal(t, Pending, upstream.State(), "cancelling Protected's result must not cancel upstream")
}

func TestProtectedMirrorsUpstreamOutcome(t *testing.T) {
	upstream, r := Wait[int]()
	protected := Protected(upstream)
	r.Resolve(11)
	v, _, pending := protected.Poll()
	require.False(t, pending)
	assert.Equal(t, 11, v)
}

func TestTerminateDiscardsValueButNotError(t *testing.T) {
	ok := Terminate(Return(42))
	_, err, _ := ok.Poll()
	require.NoError(t, err)

	sentinel := errors.New("fail")
	bad := Terminate(Fail[int](sentinel))
	_, err, _ = bad.Poll()
	assert.ErrorIs(t, err, sentinel)
}

func TestChoosePanicsOnEmptyInput(t *testing.T) {
	assert.Panics(t, func() { Choose([]Deferred[int]{}) })
}
