package coap

import (
	"encoding/binary"
	"fmt"
)

// OptionID identifies an option in the CoAP option registry (RFC 7252
// section 5.10).
type OptionID uint16

// Option IDs.
const (
	IfMatch       OptionID = 1
	URIHost       OptionID = 3
	ETag          OptionID = 4
	IfNoneMatch   OptionID = 5
	Observe       OptionID = 6
	URIPort       OptionID = 7
	LocationPath  OptionID = 8
	URIPath       OptionID = 11
	ContentFormat OptionID = 12
	MaxAge        OptionID = 14
	URIQuery      OptionID = 15
	Accept        OptionID = 17
	LocationQuery OptionID = 20
	ProxyURI      OptionID = 35
	ProxyScheme   OptionID = 39
	Size1         OptionID = 60
)

// valueFormat is the wire encoding of an option's value (RFC 7252 section
// 3.2).
type valueFormat uint8

const (
	valueUnknown valueFormat = iota
	valueEmpty
	valueOpaque
	valueUint
	valueString
)

// optionDef is one row of the closed option registry: number, name,
// repeatability, value format, length bounds and default.
type optionDef struct {
	name        string
	valueFormat valueFormat
	repeatable  bool
	minLen      int
	maxLen      int
	hasDefault  bool
	defaultVal  uint32
}

// optionRegistry is the compile-time, process-lifetime option table
// (spec.md section 3, "Option Registry" / section 9, "Global registry ->
// immutable table").
var optionRegistry = map[OptionID]optionDef{
	IfMatch:       {name: "If-Match", valueFormat: valueOpaque, repeatable: true, minLen: 0, maxLen: 8},
	URIHost:       {name: "Uri-Host", valueFormat: valueString, repeatable: false, minLen: 1, maxLen: 255},
	ETag:          {name: "ETag", valueFormat: valueOpaque, repeatable: true, minLen: 1, maxLen: 8},
	IfNoneMatch:   {name: "If-None-Match", valueFormat: valueEmpty, repeatable: false, minLen: 0, maxLen: 0},
	Observe:       {name: "Observe", valueFormat: valueUint, repeatable: false, minLen: 0, maxLen: 3},
	URIPort:       {name: "Uri-Port", valueFormat: valueUint, repeatable: false, minLen: 0, maxLen: 2},
	LocationPath:  {name: "Location-Path", valueFormat: valueString, repeatable: true, minLen: 0, maxLen: 255},
	URIPath:       {name: "Uri-Path", valueFormat: valueString, repeatable: true, minLen: 0, maxLen: 255},
	ContentFormat: {name: "Content-Format", valueFormat: valueUint, repeatable: false, minLen: 0, maxLen: 2},
	MaxAge:        {name: "Max-Age", valueFormat: valueUint, repeatable: false, minLen: 0, maxLen: 4, hasDefault: true, defaultVal: 60},
	URIQuery:      {name: "Uri-Query", valueFormat: valueString, repeatable: true, minLen: 0, maxLen: 255},
	Accept:        {name: "Accept", valueFormat: valueUint, repeatable: false, minLen: 0, maxLen: 2},
	LocationQuery: {name: "Location-Query", valueFormat: valueString, repeatable: true, minLen: 0, maxLen: 255},
	ProxyURI:      {name: "Proxy-Uri", valueFormat: valueString, repeatable: false, minLen: 1, maxLen: 1034},
	ProxyScheme:   {name: "Proxy-Scheme", valueFormat: valueString, repeatable: false, minLen: 1, maxLen: 255},
	Size1:         {name: "Size1", valueFormat: valueUint, repeatable: false, minLen: 0, maxLen: 4},
}

// IsCritical reports whether an option number is critical (odd) per RFC
// 7252 section 5.4.1. Unknown critical options must fail decode with
// BadOption; unknown elective options are silently ignored.
func (o OptionID) IsCritical() bool {
	return o%2 == 1
}

func (o OptionID) String() string {
	if def, ok := optionRegistry[o]; ok {
		return def.name
	}
	return fmt.Sprintf("Option(%d)", o)
}

// optionValue is the in-memory tagged value of an Option (spec.md section
// 9, "Dynamically-typed option values -> tagged variant").
type optionValue struct {
	format valueFormat
	str    string
	opaque []byte
	uint   uint64
}

// Option is one entry of a Message's option list.
type Option struct {
	ID    OptionID
	value optionValue
}

// NewStringOption builds a string-valued option.
func NewStringOption(id OptionID, s string) Option {
	return Option{ID: id, value: optionValue{format: valueString, str: s}}
}

// NewOpaqueOption builds an opaque (byte-string) option.
func NewOpaqueOption(id OptionID, b []byte) Option {
	return Option{ID: id, value: optionValue{format: valueOpaque, opaque: b}}
}

// NewUintOption builds a uint-valued option.
func NewUintOption(id OptionID, v uint64) Option {
	return Option{ID: id, value: optionValue{format: valueUint, uint: v}}
}

// NewEmptyOption builds an empty-valued option (e.g. If-None-Match).
func NewEmptyOption(id OptionID) Option {
	return Option{ID: id, value: optionValue{format: valueEmpty}}
}

// StringValue returns the option's value as a string (zero value if the
// option is not string-formatted).
func (o Option) StringValue() string {
	return o.value.str
}

// OpaqueValue returns the option's value as raw bytes.
func (o Option) OpaqueValue() []byte {
	return o.value.opaque
}

// UintValue returns the option's value as an unsigned integer.
func (o Option) UintValue() uint64 {
	return o.value.uint
}

// Length is the wire length of the option's value, derived the way
// spec.md section 3 requires: for uint, the minimum number of bytes to
// hold the integer (0 if the value is 0); otherwise the byte length of
// the string/opaque value.
func (o Option) Length() int {
	switch o.value.format {
	case valueString:
		return len(o.value.str)
	case valueOpaque:
		return len(o.value.opaque)
	case valueUint:
		return len(encodeUint(o.value.uint))
	default:
		return 0
	}
}

// bytes renders the option's value to wire bytes.
func (o Option) bytes() []byte {
	switch o.value.format {
	case valueString:
		return []byte(o.value.str)
	case valueOpaque:
		return o.value.opaque
	case valueUint:
		return encodeUint(o.value.uint)
	default:
		return nil
	}
}

// encodeUint renders v in the minimum number of big-endian bytes; 0
// encodes to zero bytes (spec.md section 8, "uint option encoding uses
// the minimum number of bytes").
func encodeUint(v uint64) []byte {
	switch {
	case v == 0:
		return nil
	case v < 1<<8:
		return []byte{byte(v)}
	case v < 1<<16:
		b := make([]byte, 2)
		binary.BigEndian.PutUint16(b, uint16(v))
		return b
	case v < 1<<24:
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, uint32(v))
		return b[1:]
	case v < 1<<32:
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, uint32(v))
		return b
	default:
		b := make([]byte, 8)
		binary.BigEndian.PutUint64(b, v)
		i := 0
		for i < 7 && b[i] == 0 {
			i++
		}
		return b[i:]
	}
}

// decodeUint parses a big-endian unsigned integer of arbitrary length (up
// to 8 bytes); length 0 denotes the value 0.
func decodeUint(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}

// decodeOptionValue builds the typed value for a known option number from
// raw wire bytes; callers have already validated length bounds.
func decodeOptionValue(id OptionID, format valueFormat, raw []byte) Option {
	switch format {
	case valueUint:
		return NewUintOption(id, decodeUint(raw))
	case valueString:
		return NewStringOption(id, string(raw))
	case valueOpaque:
		cp := make([]byte, len(raw))
		copy(cp, raw)
		return NewOpaqueOption(id, cp)
	default: // valueEmpty
		return NewEmptyOption(id)
	}
}
