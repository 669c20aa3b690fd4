package coap

import (
	"fmt"
	"net"

	"github.com/pkg/errors"
)

// Server is the Server Dispatcher of spec.md section 4.4: it owns a
// Datagram Engine, maps each incoming request to an application callback
// by firing the matching hook, and synthesizes the RFC-7252-prescribed
// reply.
type Server struct {
	engine *Engine
	ids    *idGenerator
	obs    *observerTable

	onGet    Hook
	onPost   Hook
	onPut    Hook
	onDelete Hook

	resources map[string]Resource
}

// NewServer opens a Datagram Engine on localPort and returns a Server
// ready to Start.
func NewServer(localPort int, opts ...EngineOption) (*Server, error) {
	engine, err := Open(localPort, nil, opts...)
	if err != nil {
		return nil, err
	}
	return &Server{
		engine:    engine,
		ids:       newIDGenerator(),
		obs:       newObserverTable(),
		resources: make(map[string]Resource),
	}, nil
}

// OnResourceGet subscribes handler to every GET request.
func (s *Server) OnResourceGet(handler func(*ResourceTransfer)) int {
	return s.onGet.Register(func(args ...interface{}) { handler(args[0].(*ResourceTransfer)) })
}

// OnResourcePost subscribes handler to every POST request.
func (s *Server) OnResourcePost(handler func(*ResourceTransfer)) int {
	return s.onPost.Register(func(args ...interface{}) { handler(args[0].(*ResourceTransfer)) })
}

// OnResourcePut subscribes handler to every PUT request.
func (s *Server) OnResourcePut(handler func(*ResourceTransfer)) int {
	return s.onPut.Register(func(args ...interface{}) { handler(args[0].(*ResourceTransfer)) })
}

// OnResourceDelete subscribes handler to every DELETE request.
func (s *Server) OnResourceDelete(handler func(*ResourceTransfer)) int {
	return s.onDelete.Register(func(args ...interface{}) { handler(args[0].(*ResourceTransfer)) })
}

// RegisterResource installs a path-scoped Resource router in front of the
// global hooks (SPEC_FULL.md section 3, item 1). A request whose path
// matches r.Path() goes to r's method and the global hook is not fired
// for it; requests for other paths still reach OnResourceGet/Post/Put/
// Delete. Registering a resource here also makes its path answer
// /.well-known/core discovery (item 2).
func (s *Server) RegisterResource(r Resource) {
	s.resources[r.Path()] = r
}

// Start begins processing incoming requests. It wires the engine's
// receive hook to handleRequest; the engine's own goroutines do the
// actual socket I/O.
func (s *Server) Start() {
	s.engine.OnReceive(func(m Message, addr *net.UDPAddr) {
		s.handleRequest(m)
	})
	s.engine.OnDecodeError(func(m Message, err error, addr *net.UDPAddr) {
		s.handleDecodeError(m, err)
	})
}

// handleDecodeError implements spec.md section 8, scenario 6: a critical
// unknown option on a Confirmable request still gets a 4.02 BadOption
// reply; every other decode failure (and BadOption on a NonConfirmable
// request) is a silent discard, already logged by the engine.
func (s *Server) handleDecodeError(m Message, err error) {
	if !errors.Is(err, ErrBadOption) {
		return
	}
	if m.Type != Confirmable {
		return
	}
	s.engine.Send(s.codeReply(m, ClassClientError, BadOptionCode))
}

// Close releases the underlying socket.
func (s *Server) Close() error {
	return s.engine.Close()
}

// Stats exposes the underlying engine's counters.
func (s *Server) Stats() Snapshot {
	return s.engine.Stats()
}

// LocalAddr is the underlying socket's bound address.
func (s *Server) LocalAddr() *net.UDPAddr {
	return s.engine.LocalAddr()
}

func (s *Server) handleRequest(m Message) {
	defer func() {
		if r := recover(); r != nil {
			traceErr("[coap] application handler panicked: %v", r)
			s.engine.Send(s.errorReply(m, ErrApplicationFault))
		}
	}()

	switch m.Type {
	case Acknowledgement, Reset:
		// An ACK/RST received as a request is anomalous (spec.md section
		// 4.4, reply template rules): reply with RST echoing the MID, and
		// if it's an RST for an outstanding Observe notification, drop
		// the matching registration (section 4.4, "Observer-table
		// entries are removed when... a matching RST is received").
		if m.Type == Reset {
			s.obs.deregisterAllForToken(m.Address, m.Token)
		}
		s.engine.Send(&Message{
			Address:   m.Address,
			Type:      Reset,
			Code:      0,
			MessageID: m.MessageID,
			Token:     m.Token,
		})
		return
	}

	path := m.AbsolutePath()

	if path == "/.well-known/core" && m.Code == GET {
		s.serveWellKnownCore(m)
		return
	}

	xfer := &ResourceTransfer{
		Path:          path,
		PathQuery:     m.Query(),
		SourceAddress: m.Address,
	}

	var hook *Hook
	var defaultCode CCode

	switch m.Code {
	case GET:
		hook, defaultCode = &s.onGet, Content
		if obsOpt, ok := m.Option(Observe); ok {
			v := uint32(obsOpt.UintValue())
			xfer.Observe = &v
		}
	case POST:
		hook, defaultCode = &s.onPost, Changed
		s.fillPayload(xfer, m)
	case PUT:
		hook, defaultCode = &s.onPut, Changed
		s.fillPayload(xfer, m)
	case DELETE:
		hook, defaultCode = &s.onDelete, Deleted
		s.fillPayload(xfer, m)
	default:
		s.engine.Send(s.codeReply(m, ClassClientError, MethodNotAllowed))
		return
	}

	if r, ok := s.resources[path]; ok {
		s.dispatchResource(r, m.Code, xfer)
	} else {
		hook.Trigger(xfer)
	}

	if m.Code == GET && xfer.Observe != nil {
		s.handleObserve(m, xfer)
	}

	s.engine.Send(s.reply(m, xfer, defaultCode))
}

func (s *Server) fillPayload(xfer *ResourceTransfer, m Message) {
	pv, err := m.TypedPayload()
	if err != nil {
		xfer.Value = m.Payload
		xfer.Type = "opaque"
		return
	}
	xfer.Type = pv.Kind
	switch pv.Kind {
	case "string":
		xfer.Value = pv.Text
	case "json":
		xfer.Value = pv.JSON
	default:
		xfer.Value = pv.Bytes
	}
}

func (s *Server) dispatchResource(r Resource, code CCode, xfer *ResourceTransfer) {
	switch code {
	case GET:
		if g, ok := r.(ResourceGetter); ok {
			g.OnGet(xfer)
			return
		}
	case POST:
		if p, ok := r.(ResourcePoster); ok {
			p.OnPost(xfer)
			return
		}
	case PUT:
		if p, ok := r.(ResourcePutter); ok {
			p.OnPut(xfer)
			return
		}
	case DELETE:
		if d, ok := r.(ResourceDeleter); ok {
			d.OnDelete(xfer)
			return
		}
	}
	xfer.ResultClass = ClassClientError
	xfer.ResultCode = MethodNotAllowed
}

func (s *Server) handleObserve(m Message, xfer *ResourceTransfer) {
	switch *xfer.Observe {
	case 0:
		s.obs.register(m.Address, m.Token, xfer.Path)
	case 1:
		s.obs.deregister(m.Address, m.Token, xfer.Path)
	}
}

// Notify pushes a NON response with an incrementing Observe counter to
// every client registered for path (spec.md section 4.4). Call this after
// an application-triggered resource update.
func (s *Server) Notify(path string, value interface{}, valueType string) {
	for _, o := range s.obs.next(path) {
		reply := &Message{
			Address:   o.addr,
			Type:      NonConfirmable,
			Code:      Content,
			MessageID: s.ids.next(),
			Token:     o.token,
		}
		reply.AddOption(NewUintOption(Observe, uint64(o.counter)))
		applyValue(reply, &ResourceTransfer{Value: value, Type: valueType})
		s.engine.Send(reply)
	}
}

// applyValue fills in reply's payload (and, except for opaque, its
// Content-Format) from xfer per spec.md section 4.4's reply-template
// rules: string gets TextPlain added, opaque gets raw bytes with no added
// option, and any other type is trusted to have already set both
// xfer.Value ([]byte) and xfer.ContentFormat.
func applyValue(m *Message, xfer *ResourceTransfer) {
	switch xfer.Type {
	case "string":
		m.SetOption(NewUintOption(ContentFormat, uint64(TextPlain)))
		if s, ok := xfer.Value.(string); ok {
			m.Payload = []byte(s)
		}
	case "opaque":
		if b, ok := xfer.Value.([]byte); ok {
			m.Payload = b
		}
	default:
		if xfer.HasContentFormat {
			m.SetOption(NewUintOption(ContentFormat, uint64(xfer.ContentFormat)))
		}
		if b, ok := xfer.Value.([]byte); ok {
			m.Payload = b
		}
	}
}

// reply builds the RFC-7252-prescribed reply for request m given the
// application's xfer and the per-method default code (spec.md section
// 4.4, "Reply template rules").
func (s *Server) reply(m Message, xfer *ResourceTransfer, defaultCode CCode) *Message {
	reply := &Message{
		Address: m.Address,
		Token:   m.Token,
	}

	switch m.Type {
	case Confirmable:
		reply.Type = Acknowledgement
		reply.MessageID = m.MessageID
	case NonConfirmable:
		reply.Type = NonConfirmable
		reply.MessageID = s.ids.next()
	default:
		reply.Type = Reset
		reply.MessageID = m.MessageID
		return reply
	}

	if xfer.ResultCode != 0 {
		reply.Code = xfer.ResultCode
	} else {
		reply.Code = defaultCode
	}

	applyValue(reply, xfer)
	return reply
}

func (s *Server) codeReply(m Message, class CodeClass, code CCode) *Message {
	reply := &Message{Address: m.Address, Token: m.Token, Code: code}
	if m.Type == Confirmable {
		reply.Type = Acknowledgement
		reply.MessageID = m.MessageID
	} else {
		reply.Type = NonConfirmable
		reply.MessageID = s.ids.next()
	}
	return reply
}

// errorReply is the section-4.4-item-4 "5.00 InternalServerError" reply
// sent when an application handler panics.
func (s *Server) errorReply(m Message, cause error) *Message {
	reply := s.codeReply(m, ClassServerError, InternalServerError)
	reply.SetOption(NewUintOption(ContentFormat, uint64(TextPlain)))
	reply.Payload = []byte(fmt.Sprintf("internal error: %v", cause))
	return reply
}

// serveWellKnownCore answers GET /.well-known/core with a LinkFormat
// listing of every registered resource (SPEC_FULL.md section 3, item 2).
func (s *Server) serveWellKnownCore(m Message) {
	reply := &Message{Address: m.Address, Token: m.Token, Code: Content}
	if m.Type == Confirmable {
		reply.Type = Acknowledgement
		reply.MessageID = m.MessageID
	} else {
		reply.Type = NonConfirmable
		reply.MessageID = s.ids.next()
	}

	if len(s.resources) == 0 {
		reply.Code = NotFound
		s.engine.Send(reply)
		return
	}

	reply.SetOption(NewUintOption(ContentFormat, uint64(AppLinkFormat)))

	body := ""
	for path := range s.resources {
		if body != "" {
			body += ","
		}
		body += "<" + path + ">"
	}
	reply.Payload = []byte(body)
	s.engine.Send(reply)
}
