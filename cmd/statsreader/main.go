package main

import (
	"encoding/json"
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	coap "github.com/giterlab/go-coap-core"
)

func main() {
	peer := flag.String("peer", "127.0.0.1:5683", "recorder address to poll")
	interval := flag.Duration("interval", 10*time.Second, "poll interval")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	remote, err := net.ResolveUDPAddr("udp", *peer)
	if err != nil {
		logger.Fatal("resolve peer", zap.Error(err))
	}

	client, err := coap.NewClient(0, remote)
	if err != nil {
		logger.Fatal("start client", zap.Error(err))
	}
	client.OnResponse(func(m coap.Message, addr *net.UDPAddr) {
		if _, err := m.TypedPayload(); err != nil {
			logger.Warn("undecodable stats reply", zap.Error(err))
			return
		}
		var snap coap.Snapshot
		if err := json.Unmarshal(m.Payload, &snap); err != nil {
			logger.Warn("malformed stats json", zap.Error(err))
			return
		}
		logger.Info("stats",
			zap.Uint64("sent", snap.Sent),
			zap.Uint64("received", snap.Received),
			zap.Uint64("dropped", snap.Dropped),
			zap.Uint64("malformed", snap.Malformed),
		)
	})
	client.Start()
	defer client.Close()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	poll := func() {
		req := &coap.Message{
			Type:      coap.Confirmable,
			Code:      coap.GET,
			MessageID: client.NextMessageID(),
			Token:     coap.NewToken(4),
		}
		req.SetPathString("stats")
		client.Send(req)
	}
	poll()

	for {
		select {
		case <-ticker.C:
			poll()
		case <-sig:
			logger.Info("shutting down")
			return
		}
	}
}
