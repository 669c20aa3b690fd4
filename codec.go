package coap

import (
	"encoding/binary"
)

const (
	extOptByteCode   = 13
	extOptByteAddend = 13
	extOptWordCode   = 14
	extOptWordAddend = 269
	extOptReserved   = 15
	payloadMarker    = 0xff
)

// Encode renders m to its wire form (spec.md section 4.1, "encode").
// Options are emitted in ascending number order using the compact
// delta/length extension encoding; uint values use the minimal number of
// bytes. A payload marker precedes the payload iff the payload is
// non-empty.
func Encode(m *Message) ([]byte, error) {
	if len(m.Token) > 8 {
		return nil, errWrapf(ErrMalformedHeader, "token length %d exceeds 8", len(m.Token))
	}

	buf := make([]byte, 0, 4+len(m.Token)+32+len(m.Payload)+1)
	buf = append(buf,
		(1<<6)|(uint8(m.Type)<<4)|uint8(len(m.Token)&0xf),
		byte(m.Code),
		byte(m.MessageID>>8), byte(m.MessageID),
	)
	buf = append(buf, m.Token...)

	prev := 0
	for _, o := range m.opts {
		val := o.bytes()
		buf = appendOptionHeader(buf, int(o.ID)-prev, len(val))
		buf = append(buf, val...)
		prev = int(o.ID)
	}

	if len(m.Payload) > 0 {
		buf = append(buf, payloadMarker)
		buf = append(buf, m.Payload...)
	}

	return buf, nil
}

// appendOptionHeader writes one option header (with its extended
// delta/length bytes) to buf.
func appendOptionHeader(buf []byte, delta, length int) []byte {
	d, dExt := extendNibble(delta)
	l, lExt := extendNibble(length)

	buf = append(buf, byte(d<<4)|byte(l))
	buf = appendExt(buf, d, dExt)
	buf = appendExt(buf, l, lExt)
	return buf
}

func extendNibble(v int) (nibble, ext int) {
	switch {
	case v >= extOptWordAddend:
		return extOptWordCode, v - extOptWordAddend
	case v >= extOptByteAddend:
		return extOptByteCode, v - extOptByteAddend
	default:
		return v, 0
	}
}

func appendExt(buf []byte, nibble, ext int) []byte {
	switch nibble {
	case extOptByteCode:
		return append(buf, byte(ext))
	case extOptWordCode:
		tmp := make([]byte, 2)
		binary.BigEndian.PutUint16(tmp, uint16(ext))
		return append(buf, tmp...)
	default:
		return buf
	}
}

// Decode parses data into a Message (spec.md section 4.1, "decode"). On
// error the returned Message still carries whatever header fields
// (Type, Code, MessageID, Token) were parsed before the failure, since a
// BadOption failure in particular still needs those to shape an error
// reply (spec.md section 8, scenario 6).
func Decode(data []byte) (Message, error) {
	var m Message
	err := decodeInto(&m, data)
	return m, err
}

func decodeInto(m *Message, data []byte) error {
	if len(data) < 4 {
		return errWrap(ErrMalformedHeader, "packet shorter than 4 bytes")
	}
	if data[0]>>6 != 1 {
		return errWrapf(ErrMalformedHeader, "unsupported version %d", data[0]>>6)
	}

	m.Type = CType((data[0] >> 4) & 0x3)
	tkl := int(data[0] & 0xf)
	if tkl > 8 {
		return errWrapf(ErrMalformedHeader, "token length %d exceeds 8", tkl)
	}
	m.Code = CCode(data[1])
	m.MessageID = binary.BigEndian.Uint16(data[2:4])

	if len(data) < 4+tkl {
		return errWrap(ErrMalformedHeader, "token truncated")
	}
	if tkl > 0 {
		m.Token = append([]byte(nil), data[4:4+tkl]...)
	}

	b := data[4+tkl:]
	prev := 0

	for len(b) > 0 {
		if b[0] == payloadMarker {
			b = b[1:]
			if len(b) == 0 {
				return errWrap(ErrMalformedPayload, "payload marker present with no following byte")
			}
			m.Payload = append([]byte(nil), b...)
			return nil
		}

		deltaNibble := int(b[0] >> 4)
		lengthNibble := int(b[0] & 0xf)
		b = b[1:]

		if deltaNibble == extOptReserved || lengthNibble == extOptReserved {
			return errWrap(ErrMalformedOption, "reserved option nibble 15 outside payload marker")
		}

		delta, b2, err := readExt(deltaNibble, b)
		if err != nil {
			return err
		}
		b = b2

		length, b3, err := readExt(lengthNibble, b)
		if err != nil {
			return err
		}
		b = b3

		if len(b) < length {
			return errWrap(ErrMalformedOption, "option value truncated")
		}

		id := OptionID(prev + delta)
		raw := b[:length]
		b = b[length:]
		prev = int(id)

		opt, err := decodeOption(id, raw)
		if err != nil {
			return err
		}
		if opt != nil {
			m.opts = append(m.opts, *opt)
		}
	}
	return nil
}

// readExt consumes the extended delta/length bytes for the given nibble,
// returning the real value and the remaining buffer.
func readExt(nibble int, b []byte) (int, []byte, error) {
	switch nibble {
	case extOptByteCode:
		if len(b) < 1 {
			return 0, nil, errWrap(ErrMalformedOption, "missing 1-byte extension")
		}
		return int(b[0]) + extOptByteAddend, b[1:], nil
	case extOptWordCode:
		if len(b) < 2 {
			return 0, nil, errWrap(ErrMalformedOption, "missing 2-byte extension")
		}
		return int(binary.BigEndian.Uint16(b[:2])) + extOptWordAddend, b[2:], nil
	default:
		return nibble, b, nil
	}
}

// decodeOption validates and decodes one option's value against the
// registry, returning (nil, nil) for an unknown elective option (silently
// ignored per RFC 7252 section 5.4.1) and an error for an unknown
// critical option or an out-of-bounds/mistyped value.
func decodeOption(id OptionID, raw []byte) (*Option, error) {
	def, known := optionRegistry[id]
	if !known {
		if id.IsCritical() {
			return nil, errWrapf(ErrBadOption, "unrecognized critical option %d", id)
		}
		return nil, nil
	}
	if len(raw) < def.minLen || len(raw) > def.maxLen {
		return nil, errWrapf(ErrMalformedOption, "option %s length %d outside [%d,%d]", def.name, len(raw), def.minLen, def.maxLen)
	}
	opt := decodeOptionValue(id, def.valueFormat, raw)
	return &opt, nil
}
