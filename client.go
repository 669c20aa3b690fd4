package coap

import (
	"net"

	"github.com/google/uuid"
)

// Client is the Client Dispatcher of spec.md section 4.5: it owns a
// Datagram Engine, forwards outgoing requests to its outbound FIFO,
// issues message IDs, and delivers every decoded inbound message to the
// application's response hook without further filtering — matching
// outstanding tokens against responses is the caller's responsibility.
type Client struct {
	engine *Engine
	ids    *idGenerator

	onResponse Hook
}

// NewClient opens a Datagram Engine on localPort, connected to remote.
func NewClient(localPort int, remote *net.UDPAddr, opts ...EngineOption) (*Client, error) {
	engine, err := Open(localPort, remote, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{engine: engine, ids: newIDGenerator()}, nil
}

// Start begins delivering inbound messages to the response hook.
func (c *Client) Start() {
	c.engine.OnReceive(func(m Message, addr *net.UDPAddr) {
		c.onResponse.Trigger(m, addr)
	})
}

// Send enqueues m on the outbound FIFO (non-blocking).
func (c *Client) Send(m *Message) {
	c.engine.Send(m)
}

// OnResponse subscribes handler to every decoded inbound message.
func (c *Client) OnResponse(handler func(Message, *net.UDPAddr)) int {
	return c.onResponse.Register(func(args ...interface{}) {
		handler(args[0].(Message), args[1].(*net.UDPAddr))
	})
}

// NextMessageID returns the next 16-bit message ID from the dispatcher's
// generator, mod 2^16, skipping 0.
func (c *Client) NextMessageID() uint16 {
	return c.ids.next()
}

// NewToken builds an n-byte (n in [0,8]) request token from a fresh
// UUIDv4 (SPEC_FULL.md section 2.2); this is convenience sugar on top of
// the wire format, not a dispatch requirement — callers may assign tokens
// any way they like.
func NewToken(n int) []byte {
	if n <= 0 {
		return nil
	}
	if n > 8 {
		n = 8
	}
	id := uuid.New()
	b := id[:]
	return append([]byte(nil), b[:n]...)
}

// Close releases the underlying socket.
func (c *Client) Close() error {
	return c.engine.Close()
}

// Stats exposes the underlying engine's counters.
func (c *Client) Stats() Snapshot {
	return c.engine.Stats()
}

// LocalAddr is the underlying socket's bound address.
func (c *Client) LocalAddr() *net.UDPAddr {
	return c.engine.LocalAddr()
}
