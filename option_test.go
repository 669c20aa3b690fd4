package coap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeOptionLengthOutOfBounds(t *testing.T) {
	// Uri-Host (option 3) requires length 1-255; encode it with length 0.
	input := []byte{0x40, 0x01, 0x00, 0x01, 0x30}
	_, err := Decode(input)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedOption)
}

func TestOptionIsCritical(t *testing.T) {
	assert.True(t, IfMatch.IsCritical())   // 1, odd
	assert.False(t, ETag.IsCritical())     // 4, even
	assert.True(t, URIPath.IsCritical())   // 11, odd
	assert.False(t, MaxAge.IsCritical())   // 14, even
}

func TestOptionString(t *testing.T) {
	assert.Equal(t, "Uri-Path", URIPath.String())
	assert.Equal(t, "Max-Age", MaxAge.String())
}
