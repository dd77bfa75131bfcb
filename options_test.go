package deferred

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveReactorOptionsDefaults(t *testing.T) {
	cfg := resolveReactorOptions(nil)
	assert.Equal(t, 64, cfg.waitBufSize)
	assert.Equal(t, 0, cfg.workers)
}

func TestResolveReactorOptionsApplied(t *testing.T) {
	logger := NewDefaultLogger(0)
	metrics := NewMetrics("opt")
	cfg := resolveReactorOptions([]ReactorOption{
		WithWorkerPool(4),
		WithPollBufferSize(128),
		WithLogger(logger),
		WithMetrics(metrics),
	})
	assert.Equal(t, 4, cfg.workers)
	assert.Equal(t, 128, cfg.waitBufSize)
	assert.Same(t, metrics, cfg.metrics)
}

func TestResolveDriverOptionsDefaults(t *testing.T) {
	cfg := resolveDriverOptions(nil)
	assert.Equal(t, int64(42), cfg.waiterThreshold)
	assert.Nil(t, cfg.reactor)
}

func TestResolveDriverOptionsApplied(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	fb, err := NewReactorFallback()
	if err != nil {
		t.Fatalf("NewReactorFallback: %v", err)
	}
	defer fb.Destroy()

	var hookRan bool
	cfg := resolveDriverOptions([]DriverOption{
		WithRandSource(r),
		WithWaiterCompactionThreshold(7),
		WithReactor(fb),
		WithExitHook(func() { hookRan = true }),
	})
	assert.Same(t, r, cfg.randSource)
	assert.Equal(t, int64(7), cfg.waiterThreshold)
	assert.Same(t, fb, cfg.reactor)
	hooks := cfg.exitHooks
	hooks[0]()
	assert.True(t, hookRan)
}

func TestNilOptionsAreSkipped(t *testing.T) {
	assert.NotPanics(t, func() {
		resolveReactorOptions([]ReactorOption{nil})
		resolveDriverOptions([]DriverOption{nil})
	})
}
