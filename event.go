package coap

import "sync"

// HandlerFunc is a generic subscriber callback for a Hook.
type HandlerFunc func(args ...interface{})

// Hook is a minimal synchronous multi-subscriber notifier (spec.md
// section 4.6). Handlers are invoked in registration order in the
// goroutine that calls Trigger. The subscriber list is snapshotted before
// invocation so a handler that registers or unregisters from within
// itself cannot corrupt the in-progress iteration.
type Hook struct {
	mu       sync.Mutex
	handlers []HandlerFunc
}

// Register subscribes f and returns a token usable with Unregister.
func (h *Hook) Register(f HandlerFunc) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers = append(h.handlers, f)
	return len(h.handlers) - 1
}

// Unregister removes the subscriber previously returned by Register.
func (h *Hook) Unregister(token int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if token < 0 || token >= len(h.handlers) {
		return
	}
	h.handlers[token] = nil
}

// Clear removes every subscriber.
func (h *Hook) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers = nil
}

// Trigger invokes every live subscriber, in registration order, with the
// given arguments.
func (h *Hook) Trigger(args ...interface{}) {
	h.mu.Lock()
	snapshot := make([]HandlerFunc, len(h.handlers))
	copy(snapshot, h.handlers)
	h.mu.Unlock()

	for _, f := range snapshot {
		if f != nil {
			f(args...)
		}
	}
}
