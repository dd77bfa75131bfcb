package deferred

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReactorNativeTimerFires(t *testing.T) {
	reactor, err := NewReactorNative()
	require.NoError(t, err)
	defer reactor.Destroy()

	fired := make(chan struct{}, 1)
	reactor.OnTimer(1*time.Millisecond, false, func() { fired <- struct{}{} })

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		require.NoError(t, reactor.Iter(true))
		select {
		case <-fired:
			return
		default:
		}
	}
	t.Fatal("native reactor timer did not fire")
}

func TestReactorNativeFakeIOInvokesRegisteredCallback(t *testing.T) {
	reactor, err := NewReactorNative()
	require.NoError(t, err)
	defer reactor.Destroy()

	pr, _ := newTestPipe(t)
	var called bool
	_, err = reactor.OnReadable(int(pr.Fd()), func() { called = true })
	require.NoError(t, err)
	reactor.FakeIO(int(pr.Fd()))
	assert.True(t, called)
}

func TestReactorNativeEventStopIsIdempotent(t *testing.T) {
	reactor, err := NewReactorNative()
	require.NoError(t, err)
	defer reactor.Destroy()

	ev := reactor.OnTimer(time.Hour, false, func() {})
	assert.NotPanics(t, func() {
		ev.Stop()
		ev.Stop()
	})
}

func TestReactorNativeRejectsNegativeFD(t *testing.T) {
	reactor, err := NewReactorNative()
	require.NoError(t, err)
	defer reactor.Destroy()

	_, err = reactor.OnReadable(-1, func() {})
	assert.ErrorIs(t, err, ErrFDOutOfRange)
}

func TestReactorNativeOperationsFailAfterDestroy(t *testing.T) {
	reactor, err := NewReactorNative()
	require.NoError(t, err)
	require.NoError(t, reactor.Destroy())

	_, err = reactor.OnReadable(0, func() {})
	assert.ErrorIs(t, err, ErrReactorClosed)
}

func TestReactorNativeTransferToFallback(t *testing.T) {
	native, err := NewReactorNative()
	require.NoError(t, err)
	defer native.Destroy()
	fallback, err := NewReactorFallback()
	require.NoError(t, err)
	defer fallback.Destroy()

	pr, _ := newTestPipe(t)
	var called bool
	_, err = native.OnReadable(int(pr.Fd()), func() { called = true })
	require.NoError(t, err)

	require.NoError(t, native.Transfer(fallback))
	fallback.FakeIO(int(pr.Fd()))
	assert.True(t, called)
}
