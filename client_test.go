package coap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientNextMessageIDSkipsZeroAndWraps(t *testing.T) {
	c := &Client{ids: &idGenerator{cur: 0xFFFF}}
	first := c.NextMessageID()
	assert.NotEqual(t, uint16(0), first)
	assert.Equal(t, uint16(1), first)
}

func TestNewTokenLength(t *testing.T) {
	for n := 0; n <= 8; n++ {
		tok := NewToken(n)
		require.Len(t, tok, n)
	}
	// clamps above 8
	require.Len(t, NewToken(20), 8)
}

func TestNewTokenIsRandomized(t *testing.T) {
	a := NewToken(8)
	b := NewToken(8)
	assert.NotEqual(t, a, b)
}
