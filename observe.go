package coap

import (
	"net"
	"sync"
)

// observeCounterMod is 2^24, the modulus for the Observe sequence counter
// (RFC 7252 section 3.2.1 represents Observe values in up to 3 bytes).
const observeCounterMod = 1 << 24

// observerKey identifies one observation by client endpoint, token and
// path, per RFC 7641 section 4.1's registration identity.
type observerKey struct {
	addr  string
	token string
	path  string
}

type observer struct {
	addr    *net.UDPAddr
	token   []byte
	path    string
	counter uint32
}

// observerTable tracks registered Observe clients per path (spec.md
// section 4.4, "Observe support").
type observerTable struct {
	mu   sync.Mutex
	byPath map[string][]*observer
	byKey  map[observerKey]*observer
}

func newObserverTable() *observerTable {
	return &observerTable{
		byPath: make(map[string][]*observer),
		byKey:  make(map[observerKey]*observer),
	}
}

func keyFor(addr *net.UDPAddr, token []byte, path string) observerKey {
	a := ""
	if addr != nil {
		a = addr.String()
	}
	return observerKey{addr: a, token: string(token), path: path}
}

// register adds an observation. If a matching endpoint/token/path entry
// already exists it is kept as is (counter included) and no duplicate is
// added.
func (t *observerTable) register(addr *net.UDPAddr, token []byte, path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	k := keyFor(addr, token, path)
	if _, exists := t.byKey[k]; exists {
		return
	}
	o := &observer{addr: addr, token: append([]byte(nil), token...), path: path}
	t.byKey[k] = o
	t.byPath[path] = append(t.byPath[path], o)
}

// deregister removes a matching entry; the server calls it for a GET
// carrying Observe value 1. A received RST goes through
// deregisterAllForToken instead, and nothing removes an entry when a
// notification fails to send.
func (t *observerTable) deregister(addr *net.UDPAddr, token []byte, path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	k := keyFor(addr, token, path)
	o, ok := t.byKey[k]
	if !ok {
		return
	}
	delete(t.byKey, k)
	list := t.byPath[path]
	for i, cand := range list {
		if cand == o {
			t.byPath[path] = append(list[:i], list[i+1:]...)
			break
		}
	}
}

// deregisterAllForToken removes every observer at addr/token regardless of path,
// used when a matching RST arrives for any outstanding notification.
func (t *observerTable) deregisterAllForToken(addr *net.UDPAddr, token []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	target := string(token)
	a := ""
	if addr != nil {
		a = addr.String()
	}
	for k, o := range t.byKey {
		if k.addr == a && k.token == target {
			delete(t.byKey, k)
			list := t.byPath[o.path]
			for i, cand := range list {
				if cand == o {
					t.byPath[o.path] = append(list[:i], list[i+1:]...)
					break
				}
			}
		}
	}
}

// next returns a snapshot of observers for path and bumps each one's
// sequence counter modulo 2^24.
func (t *observerTable) next(path string) []*observer {
	t.mu.Lock()
	defer t.mu.Unlock()
	list := t.byPath[path]
	snapshot := make([]*observer, len(list))
	for i, o := range list {
		o.counter = (o.counter + 1) % observeCounterMod
		cp := *o
		snapshot[i] = &cp
	}
	return snapshot
}
