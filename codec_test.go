package coap

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hexBytes(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(strings.ReplaceAll(s, " ", ""))
	require.NoError(t, err)
	return b
}

// Scenario 2 (spec.md section 8): token round-trip.
func TestDecodeEncodeTokenRoundTrip(t *testing.T) {
	input := hexBytes(t, "41 01 6C 29 66 B3 76 65 72")

	m, err := Decode(input)
	require.NoError(t, err)
	assert.Equal(t, Confirmable, m.Type)
	assert.Equal(t, GET, m.Code)
	assert.Equal(t, uint16(0x6C29), m.MessageID)
	assert.Equal(t, []byte{0x66}, m.Token)
	assert.Equal(t, "/ver", m.AbsolutePath())

	out, err := Encode(&m)
	require.NoError(t, err)
	assert.Equal(t, input, out)
}

// Scenario 3 (spec.md section 8): NON PUT /ping with body "2014,125".
func TestDecodeNonPut(t *testing.T) {
	input := hexBytes(t, "50 03 03 17 B4 70 69 6E 67 FF 32 30 31 34 2C 31 32 35")

	m, err := Decode(input)
	require.NoError(t, err)
	assert.Equal(t, NonConfirmable, m.Type)
	assert.Equal(t, PUT, m.Code)
	assert.Equal(t, uint16(0x0317), m.MessageID)
	assert.Equal(t, "/ping", m.AbsolutePath())
	assert.Equal(t, "2014,125", string(m.Payload))

	out, err := Encode(&m)
	require.NoError(t, err)
	assert.Equal(t, input, out)
}

// Scenario 4 (spec.md section 8): Content-Format JSON POST.
func TestDecodeJSONPost(t *testing.T) {
	input := hexBytes(t, "51 02 E9 E8 7B B3 72 73 73 11 32 FF 7B 22 76 22 3A 2D 36 39 7D")

	m, err := Decode(input)
	require.NoError(t, err)
	assert.Equal(t, POST, m.Code)
	assert.Equal(t, "/rss", m.AbsolutePath())

	cf, ok := m.Option(ContentFormat)
	require.True(t, ok)
	assert.Equal(t, uint64(AppJSON), cf.UintValue())

	pv, err := m.TypedPayload()
	require.NoError(t, err)
	assert.Equal(t, "json", pv.Kind)
	obj, ok := pv.JSON.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(-69), obj["v"])

	out, err := Encode(&m)
	require.NoError(t, err)
	assert.Equal(t, input, out)
}

// Scenario 5 (spec.md section 8): malformed input shorter than 4 bytes.
func TestDecodeMalformedHeaderShortPacket(t *testing.T) {
	_, err := Decode(hexBytes(t, "00 00 00"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedHeader)
}

// Scenario 6 (spec.md section 8): a critical unknown option fails with
// BadOption, but the partial header (type/code/MID/token) still decodes.
func TestDecodeCriticalUnknownOption(t *testing.T) {
	// header: CON, TKL=0, code GET, MID 0x0001; option number 9 (odd,
	// unregistered) with a 1-byte value.
	input := hexBytes(t, "40 01 00 01 91 00")

	m, err := Decode(input)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadOption)
	assert.Equal(t, Confirmable, m.Type)
	assert.Equal(t, uint16(0x0001), m.MessageID)
}

func TestDecodeUnknownElectiveOptionIgnored(t *testing.T) {
	// option number 2 (even, unregistered) with a 1-byte value; must be
	// silently skipped rather than erroring.
	input := hexBytes(t, "40 01 00 01 21 00")

	m, err := Decode(input)
	require.NoError(t, err)
	assert.Empty(t, m.AllOptions())
}

func TestUintOptionMinimalEncoding(t *testing.T) {
	cases := []struct {
		v    uint64
		want int
	}{
		{0, 0}, {1, 1}, {255, 1}, {256, 2}, {65535, 2}, {65536, 3},
	}
	for _, c := range cases {
		o := NewUintOption(MaxAge, c.v)
		assert.Equal(t, c.want, o.Length(), "value %d", c.v)
	}
}

func TestAddOptionKeepsSortedOrder(t *testing.T) {
	var m Message
	m.AddOption(NewUintOption(MaxAge, 1))
	m.AddOption(NewStringOption(URIPath, "a"))
	m.AddOption(NewOpaqueOption(ETag, []byte{1}))
	m.AddOption(NewStringOption(URIPath, "b"))

	ids := make([]int, len(m.AllOptions()))
	for i, o := range m.AllOptions() {
		ids[i] = int(o.ID)
	}
	for i := 1; i < len(ids); i++ {
		assert.LessOrEqual(t, ids[i-1], ids[i])
	}
	// stable within the same number: "a" before "b"
	paths := m.Options(URIPath)
	require.Len(t, paths, 2)
	assert.Equal(t, "a", paths[0].StringValue())
	assert.Equal(t, "b", paths[1].StringValue())
}

func TestEncodeDecodeRoundTripConstructedMessage(t *testing.T) {
	m := Message{
		Type:      Confirmable,
		Code:      GET,
		MessageID: 0xABCD,
		Token:     []byte{1, 2, 3},
	}
	m.AddOption(NewStringOption(URIPath, "sensors"))
	m.AddOption(NewStringOption(URIPath, "temp"))
	m.AddOption(NewUintOption(ContentFormat, uint64(TextPlain)))
	m.Payload = []byte("hello")

	data, err := Encode(&m)
	require.NoError(t, err)

	back, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, m.Type, back.Type)
	assert.Equal(t, m.Code, back.Code)
	assert.Equal(t, m.MessageID, back.MessageID)
	assert.Equal(t, m.Token, back.Token)
	assert.Equal(t, m.Payload, back.Payload)
	assert.Equal(t, m.AbsolutePath(), back.AbsolutePath())
}

func TestMalformedPayloadMarkerWithNoBytes(t *testing.T) {
	// CON GET, no token, no options, bare payload marker with nothing after it.
	input := hexBytes(t, "40 01 00 01 FF")
	_, err := Decode(input)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestMalformedHeaderBadVersion(t *testing.T) {
	input := hexBytes(t, "00 01 00 01")
	_, err := Decode(input)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedHeader)
}

func TestMalformedHeaderTokenLenTooLarge(t *testing.T) {
	// TKL nibble = 9 > 8
	input := hexBytes(t, "49 01 00 01")
	_, err := Decode(input)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedHeader)
}

func TestUnsupportedContentFormat(t *testing.T) {
	m := Message{Type: Confirmable, Code: GET}
	m.AddOption(NewUintOption(ContentFormat, 9999))
	_, err := m.TypedPayload()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedContentFormat)
}
