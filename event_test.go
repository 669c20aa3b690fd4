package coap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHookInvokesInRegistrationOrder(t *testing.T) {
	var order []int
	var h Hook
	h.Register(func(args ...interface{}) { order = append(order, 1) })
	h.Register(func(args ...interface{}) { order = append(order, 2) })
	h.Register(func(args ...interface{}) { order = append(order, 3) })

	h.Trigger()

	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestHookUnregister(t *testing.T) {
	var fired bool
	var h Hook
	tok := h.Register(func(args ...interface{}) { fired = true })
	h.Unregister(tok)
	h.Trigger()
	assert.False(t, fired)
}

func TestHookClear(t *testing.T) {
	var count int
	var h Hook
	h.Register(func(args ...interface{}) { count++ })
	h.Register(func(args ...interface{}) { count++ })
	h.Clear()
	h.Trigger()
	assert.Equal(t, 0, count)
}

// A handler that unregisters itself (or others) mid-trigger must not
// corrupt the in-progress iteration (spec.md section 4.6).
func TestHookSelfUnregisterDuringTrigger(t *testing.T) {
	var h Hook
	var secondCalled bool
	var firstToken int
	firstToken = h.Register(func(args ...interface{}) {
		h.Unregister(firstToken)
	})
	h.Register(func(args ...interface{}) { secondCalled = true })

	assert.NotPanics(t, func() { h.Trigger() })
	assert.True(t, secondCalled)

	secondCalled = false
	h.Trigger()
	assert.True(t, secondCalled, "unregistering handler 1 must not stop handler 2 from firing again")
}
