package coap

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("timed out waiting for condition")
}

func TestEngineSendReceiveLoopback(t *testing.T) {
	server, err := Open(0, nil)
	require.NoError(t, err)
	defer server.Close()

	var got Message
	var gotAddr *net.UDPAddr
	var received bool
	server.OnReceive(func(m Message, addr *net.UDPAddr) {
		got = m
		gotAddr = addr
		received = true
	})

	client, err := Open(0, server.LocalAddr())
	require.NoError(t, err)
	defer client.Close()

	req := &Message{Type: Confirmable, Code: GET, MessageID: 42}
	req.SetPathString("ping")
	client.Send(req)

	waitFor(t, func() bool { return received })
	require.Equal(t, GET, got.Code)
	require.Equal(t, "/ping", got.AbsolutePath())
	require.NotNil(t, gotAddr)
}

func TestEngineDropsUndecodableDatagram(t *testing.T) {
	server, err := Open(0, nil)
	require.NoError(t, err)
	defer server.Close()

	var errored bool
	server.OnDecodeError(func(m Message, err error, addr *net.UDPAddr) {
		errored = true
	})

	conn, err := net.DialUDP("udp", nil, server.LocalAddr())
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Write([]byte{0, 0, 0})
	require.NoError(t, err)

	waitFor(t, func() bool { return errored })
	require.Equal(t, uint64(1), server.Stats().Malformed)
}

func TestEngineWritableReflectsQueueDepth(t *testing.T) {
	e, err := Open(0, nil)
	require.NoError(t, err)
	defer e.Close()

	require.False(t, e.Writable())
	e.Send(&Message{Type: NonConfirmable, Code: GET, Address: e.LocalAddr()})
	waitFor(t, func() bool { return e.Stats().Sent == 1 })
}
