package coap

import (
	"math/rand"
	"sync"
	"time"
)

// idGenerator is the dispatcher-owned message-ID counter of spec.md
// section 4.5: a 16-bit counter seeded at a random value, incrementing
// modulo 0x10000 and skipping 0. Both the Server Dispatcher (for NON
// replies) and the Client Dispatcher (for every outgoing request) own one
// instance each.
type idGenerator struct {
	mu  sync.Mutex
	cur uint16
}

func newIDGenerator() *idGenerator {
	seed := rand.New(rand.NewSource(time.Now().UnixNano())).Intn(0x10000)
	return &idGenerator{cur: uint16(seed)}
}

// next returns the next message ID, mod 2^16, never returning 0.
func (g *idGenerator) next() uint16 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cur++
	if g.cur == 0 {
		g.cur = 1
	}
	return g.cur
}
