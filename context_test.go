package deferred

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithValueScopesAndRestores(t *testing.T) {
	k := NewKey()
	_, ok := Get(k)
	require.False(t, ok)

	var inner any
	var innerOK bool
	WithValue(k, "hello", func() {
		inner, innerOK = Get(k)
	})
	assert.True(t, innerOK)
	assert.Equal(t, "hello", inner)

	_, ok = Get(k)
	assert.False(t, ok, "the key must not leak outside WithValue's scope")
}

func TestWithValueRestoresOnPanic(t *testing.T) {
	k := NewKey()
	assert.Panics(t, func() {
		WithValue(k, 1, func() { panic("boom") })
	})
	_, ok := Get(k)
	assert.False(t, ok, "a panicking scope must still restore the ambient context")
}

func TestWithValueShadowsOuterBinding(t *testing.T) {
	k := NewKey()
	WithValue(k, "outer", func() {
		WithValue(k, "inner", func() {
			v, _ := Get(k)
			assert.Equal(t, "inner", v)
		})
		v, _ := Get(k)
		assert.Equal(t, "outer", v, "leaving the inner scope must restore the outer binding")
	})
}

func TestDynamicContextCapturedAcrossSuspension(t *testing.T) {
	k := NewKey()
	d, r := Wait[int]()
	var observed any

	WithValue(k, "captured", func() {
		d.OnSuccess(func(int) {
			v, _ := Get(k)
			observed = v
		})
	})

	// resolving happens outside the WithValue scope; the waiter must still
	// observe the context that was active when it was registered.
	r.Resolve(1)
	assert.Equal(t, "captured", observed)
}

func TestDynamicContextThroughBindChain(t *testing.T) {
	k := NewKey()
	var observed any

	var d Deferred[int]
	WithValue(k, "bound", func() {
		d = Bind(Return(1), func(v int) Deferred[int] {
			innerVal, _ := Get(k)
			observed = innerVal
			return Return(v)
		})
	})
	_, _, pending := d.Poll()
	require.False(t, pending)
	assert.Equal(t, "bound", observed)
}
