package coap

import "net"

// Transport is the contract both back-ends of spec.md section 6 share: a
// non-blocking send queue plus an upcall on receive. Engine is the UDP
// datagram implementation (the only one this core ships); a mesh-bus
// back-end (consuming/publishing signals on a named bus instead of a
// socket, per spec.md section 6 item 2) is enumerated there but
// deliberately left unimplemented — out of scope for this core. Shaping
// the contract here means such a back-end could be added without
// touching the codec or either dispatcher.
type Transport interface {
	Send(m *Message)
	OnReceive(handler func(Message, *net.UDPAddr)) int
	Writable() bool
	Close() error
}

var _ Transport = (*Engine)(nil)
