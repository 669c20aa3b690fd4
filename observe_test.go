package coap

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserverTableRegisterDeregister(t *testing.T) {
	tbl := newObserverTable()
	addr := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 1234}
	token := []byte{0xAB}

	tbl.register(addr, token, "/temp")
	list := tbl.next("/temp")
	require.Len(t, list, 1)
	assert.Equal(t, uint32(1), list[0].counter)

	// re-registering the same endpoint/token/path must not duplicate
	// (RFC 7641 section 4.1).
	tbl.register(addr, token, "/temp")
	list = tbl.next("/temp")
	require.Len(t, list, 1)

	tbl.deregister(addr, token, "/temp")
	list = tbl.next("/temp")
	assert.Empty(t, list)
}

func TestObserverTableCounterIncrementsModulo(t *testing.T) {
	tbl := newObserverTable()
	addr := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 1234}
	tbl.register(addr, []byte{1}, "/x")

	var last uint32
	for i := 0; i < 5; i++ {
		list := tbl.next("/x")
		last = list[0].counter
	}
	assert.Equal(t, uint32(5), last)

	// one step past 2^24-1 wraps to 0
	tbl.byPath["/x"][0].counter = observeCounterMod - 1
	assert.Equal(t, uint32(0), tbl.next("/x")[0].counter)
}

func TestObserverTableDeregisterAllForToken(t *testing.T) {
	tbl := newObserverTable()
	addr := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 1234}
	tbl.register(addr, []byte{9}, "/a")
	tbl.register(addr, []byte{9}, "/b")

	tbl.deregisterAllForToken(addr, []byte{9})

	assert.Empty(t, tbl.next("/a"))
	assert.Empty(t, tbl.next("/b"))
}
