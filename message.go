package coap

import (
	"encoding/json"
	"net"
	"sort"
	"strings"
)

// Message is the in-memory representation of a CoAP message (spec.md
// section 3).
type Message struct {
	Address *net.UDPAddr

	Type      CType
	Code      CCode
	MessageID uint16

	Token   []byte
	Payload []byte

	opts []Option
}

// IsConfirmable reports whether this message is Confirmable.
func (m Message) IsConfirmable() bool {
	return m.Type == Confirmable
}

// Options returns every option matching id, in wire order.
func (m Message) Options(id OptionID) []Option {
	var rv []Option
	for _, o := range m.opts {
		if o.ID == id {
			rv = append(rv, o)
		}
	}
	return rv
}

// Option returns the first option matching id, or false if absent.
func (m Message) Option(id OptionID) (Option, bool) {
	for _, o := range m.opts {
		if o.ID == id {
			return o, true
		}
	}
	return Option{}, false
}

// AllOptions returns the full, sorted option list.
func (m Message) AllOptions() []Option {
	return m.opts
}

// AbsolutePath concatenates the Uri-Path options in order, separated by
// "/", prefixed by "/"; it returns "" if there are no Uri-Path options
// (spec.md section 4.2).
func (m Message) AbsolutePath() string {
	var parts []string
	for _, o := range m.Options(URIPath) {
		parts = append(parts, o.StringValue())
	}
	if len(parts) == 0 {
		return ""
	}
	return "/" + strings.Join(parts, "/")
}

// Query reconstructs the Uri-Query options joined by "&".
func (m Message) Query() string {
	var parts []string
	for _, o := range m.Options(URIQuery) {
		parts = append(parts, o.StringValue())
	}
	return strings.Join(parts, "&")
}

// SetPathString replaces the message's Uri-Path options from a "/"
// separated string.
func (m *Message) SetPathString(s string) {
	m.RemoveOption(URIPath)
	for strings.HasPrefix(s, "/") {
		s = s[1:]
	}
	if s == "" {
		return
	}
	for _, seg := range strings.Split(s, "/") {
		m.AddOption(NewStringOption(URIPath, seg))
	}
}

// RemoveOption removes every option with the given id.
func (m *Message) RemoveOption(id OptionID) {
	kept := m.opts[:0:0]
	for _, o := range m.opts {
		if o.ID != id {
			kept = append(kept, o)
		}
	}
	m.opts = kept
}

// AddOption inserts an option, maintaining the section-3 invariant that
// opts stays sorted non-decreasingly by option number, stable by
// insertion order within the same number (spec.md section 4.2,
// "addOption").
func (m *Message) AddOption(o Option) {
	i := sort.Search(len(m.opts), func(i int) bool {
		return m.opts[i].ID > o.ID
	})
	m.opts = append(m.opts, Option{})
	copy(m.opts[i+1:], m.opts[i:])
	m.opts[i] = o
}

// SetOption discards any previous value(s) for id and installs o.
func (m *Message) SetOption(o Option) {
	m.RemoveOption(o.ID)
	m.AddOption(o)
}

// PayloadValue is the tagged result of TypedPayload.
type PayloadValue struct {
	Kind      string // "string", "uint", "opaque", or a media-type tag
	Text      string
	Bytes     []byte
	JSON      interface{}
	MediaType MediaType
	HasFormat bool
}

// TypedPayload decodes m.Payload according to its Content-Format option,
// as spec.md section 4.2 prescribes: TextPlain -> UTF-8 string,
// OctetStream -> raw bytes, Json -> parsed JSON value, LinkFormat/Xml/Exi
// -> raw bytes with a type tag, no Content-Format -> raw bytes, unknown
// media type -> ErrUnsupportedContentFormat.
func (m Message) TypedPayload() (PayloadValue, error) {
	cf, ok := m.Option(ContentFormat)
	if !ok {
		return PayloadValue{Kind: "opaque", Bytes: m.Payload}, nil
	}
	mt := MediaType(cf.UintValue())
	switch mt {
	case TextPlain:
		return PayloadValue{Kind: "string", Text: string(m.Payload), MediaType: mt, HasFormat: true}, nil
	case AppOctets:
		return PayloadValue{Kind: "opaque", Bytes: m.Payload, MediaType: mt, HasFormat: true}, nil
	case AppJSON:
		var v interface{}
		if len(m.Payload) > 0 {
			if err := json.Unmarshal(m.Payload, &v); err != nil {
				return PayloadValue{}, errWrap(ErrUnsupportedContentFormat, "invalid json payload")
			}
		}
		return PayloadValue{Kind: "json", JSON: v, MediaType: mt, HasFormat: true}, nil
	case AppLinkFormat, AppXML, AppExi:
		return PayloadValue{Kind: "opaque", Bytes: m.Payload, MediaType: mt, HasFormat: true}, nil
	default:
		return PayloadValue{}, errWrapf(ErrUnsupportedContentFormat, "media type %d", mt)
	}
}
