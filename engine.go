package coap

import (
	"context"
	"net"
	"sync"

	"golang.org/x/time/rate"
)

// DefaultQueueDepth is the default bound on the outbound FIFO.
const DefaultQueueDepth = 64

type outboundEntry struct {
	data []byte
	dest *net.UDPAddr
}

// EngineOption configures a Datagram Engine at Open time.
type EngineOption func(*Engine)

// WithQueueDepth bounds the outbound FIFO depth (default DefaultQueueDepth).
func WithQueueDepth(n int) EngineOption {
	return func(e *Engine) { e.queueDepth = n }
}

// WithRateLimiter installs an outbound rate limiter (SPEC_FULL.md section
// 2.1); nil (the default) means unlimited.
func WithRateLimiter(l *rate.Limiter) EngineOption {
	return func(e *Engine) { e.limiter = l }
}

// Engine is the non-blocking UDP Datagram Engine of spec.md section 4.3:
// a socket bound to a local port, optionally connected to a remote peer,
// a bounded outbound FIFO, and an upcall on each decoded inbound message.
//
// All mutable state (the FIFO, the subscriber list, the counters) is only
// ever touched by the engine's own read/write goroutines and by callers
// of Send, which only enqueues; per spec.md section 5 this is the
// single-threaded-cooperative model expressed with Go's usual
// goroutine-plus-channel idiom instead of a literal reactor loop.
type Engine struct {
	conn   *net.UDPConn
	remote *net.UDPAddr

	queueDepth int
	outbound   chan outboundEntry
	limiter    *rate.Limiter

	onReceive   Hook
	onDecodeErr Hook
	stats       Stats

	closeOnce sync.Once
	closeCh   chan struct{}
	wg        sync.WaitGroup
}

// Open binds a UDP socket on the wildcard address at localPort and, if
// remote is non-nil, connects it to that peer. It then starts the
// read/write pump goroutines.
func Open(localPort int, remote *net.UDPAddr, opts ...EngineOption) (*Engine, error) {
	e := &Engine{queueDepth: DefaultQueueDepth, closeCh: make(chan struct{})}
	for _, o := range opts {
		o(e)
	}
	if e.queueDepth <= 0 {
		e.queueDepth = DefaultQueueDepth
	}
	e.outbound = make(chan outboundEntry, e.queueDepth)

	local := &net.UDPAddr{Port: localPort}
	var conn *net.UDPConn
	var err error
	if remote != nil {
		conn, err = net.DialUDP("udp", local, remote)
	} else {
		conn, err = net.ListenUDP("udp", local)
	}
	if err != nil {
		return nil, errWrapf(ErrTransport, "bind local port %d: %v", localPort, err)
	}
	e.conn = conn
	e.remote = remote

	e.wg.Add(2)
	go e.readLoop()
	go e.writeLoop()
	return e, nil
}

// OnReceive subscribes handler to decoded incoming messages. The handler
// receives (Message, *net.UDPAddr).
func (e *Engine) OnReceive(handler func(Message, *net.UDPAddr)) int {
	return e.onReceive.Register(func(args ...interface{}) {
		handler(args[0].(Message), args[1].(*net.UDPAddr))
	})
}

// OnDecodeError subscribes handler to datagrams that failed to decode.
// The partial Message carries whatever header fields were parsed before
// the failure (see Decode); the default policy is silent discard, but a
// BadOption failure on a Confirmable message still needs these fields to
// shape a 4.02 reply (spec.md section 8, scenario 6), which is why this
// is a hook rather than a bare log line.
func (e *Engine) OnDecodeError(handler func(Message, error, *net.UDPAddr)) int {
	return e.onDecodeErr.Register(func(args ...interface{}) {
		handler(args[0].(Message), args[1].(error), args[2].(*net.UDPAddr))
	})
}

// Send serializes m and appends (bytes, destination) to the outbound
// FIFO; it never blocks on socket I/O. destination is m.Address if set,
// else the engine's connected remote; an engine opened with a remote
// always writes to that remote, whatever m.Address says. If the FIFO is
// full the message is logged and discarded (spec.md section 4.3, "Error policy").
func (e *Engine) Send(m *Message) {
	data, err := Encode(m)
	if err != nil {
		traceErr("[coap] encode failed, dropping outbound message: %v", err)
		e.stats.incDropped()
		return
	}
	dest := m.Address
	if dest == nil {
		dest = e.remote
	}
	select {
	case e.outbound <- outboundEntry{data: data, dest: dest}:
	default:
		traceErr("[coap] outbound queue full, dropping message to %v", dest)
		e.stats.incDropped()
	}
}

// Writable reports whether the outbound FIFO has anything queued (spec.md
// section 4.3: "Reports the engine as writable iff the FIFO is non-empty").
func (e *Engine) Writable() bool {
	return len(e.outbound) > 0
}

// Stats returns a point-in-time counter snapshot.
func (e *Engine) Stats() Snapshot {
	return e.stats.Snapshot()
}

// Conn exposes the underlying socket so a host reactor can register its
// readiness directly, per spec.md section 9 ("the engine should expose
// its socket handle so the host loop can register it").
func (e *Engine) Conn() *net.UDPConn {
	return e.conn
}

// LocalAddr is the socket's bound address, useful for discovering the
// ephemeral port the OS assigned when Open was called with localPort 0.
func (e *Engine) LocalAddr() *net.UDPAddr {
	return e.conn.LocalAddr().(*net.UDPAddr)
}

// Close releases the socket and stops the pump goroutines. A pending
// outbound entry may be dropped.
func (e *Engine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		close(e.closeCh)
		err = e.conn.Close()
		e.wg.Wait()
	})
	return err
}

func (e *Engine) readLoop() {
	defer e.wg.Done()
	buf := make([]byte, SocketBufSize)
	for {
		n, addr, err := e.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-e.closeCh:
				return
			default:
			}
			traceErr("[coap] read error: %v", err)
			continue
		}

		if healthMonitorEnable && n == 4 && string(buf[:4]) == "RUOK" {
			e.healthReply(addr)
			continue
		}

		raw := make([]byte, n)
		copy(raw, buf[:n])

		msg, err := Decode(raw)
		msg.Address = addr
		if err != nil {
			traceErr("[coap] decode failed from %v: %v", addr, err)
			e.stats.incMalformed()
			e.onDecodeErr.Trigger(msg, err, addr)
			continue
		}
		e.stats.incReceived()
		e.onReceive.Trigger(msg, addr)
	}
}

// healthReply answers the liveness probe directly on the socket,
// bypassing the outbound FIFO and the codec entirely (mirrors the
// teacher's handlePacket RUOK/IMOK short-circuit in server.go).
func (e *Engine) healthReply(addr *net.UDPAddr) {
	if _, err := e.conn.WriteToUDP([]byte("IMOK"), addr); err != nil {
		traceErr("[coap] health reply failed: %v", err)
	}
}

func (e *Engine) writeLoop() {
	defer e.wg.Done()
	for {
		select {
		case <-e.closeCh:
			return
		case entry := <-e.outbound:
			if e.limiter != nil {
				_ = e.limiter.Wait(context.Background())
			}
			var err error
			if e.remote == nil && entry.dest != nil {
				// unconnected socket (server side): must target an
				// explicit peer address.
				_, err = e.conn.WriteToUDP(entry.data, entry.dest)
			} else {
				// connected socket (client side): WriteToUDP would fail
				// with ErrWriteToConnected, so use Write, which always
				// targets the peer Dial connected to.
				_, err = e.conn.Write(entry.data)
			}
			if err != nil {
				traceErr("[coap] send error: %v", err)
				e.stats.incDropped()
				continue
			}
			e.stats.incSent()
		}
	}
}
