package main

import (
	"context"
	"datagram-arq/example/shared"
	"datagram-arq/protocol"
	"datagram-arq/storage"
	"datagram-arq/transfer"
	"datagram-arq/transport"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
)

var log = shared.NewLogger(false)

var (
	addr    = flag.String("addr", shared.DefaultServerAddr, "listen address")
	dir     = flag.String("dir", "server", "directory received files are written to")
	loop    = flag.Bool("loop", false, "keep serving sessions until no client shows up")
	verbose = flag.Bool("v", false, "log every frame")
	ttl     = flag.Int("ttl", 0, "IPv4 TTL of outgoing datagrams")
)

func main() {
	flag.Parse()
	log = shared.NewLogger(*verbose)
	if err := start(); err != nil {
		log.Fatal(err)
	}
}

func start() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := storage.NewDir(*dir)
	if err != nil {
		return err
	}

	cfg := transfer.DefaultConfig()
	cfg.Logger = log
	cfg.Transport.TTL = *ttl

	conn, err := transport.Listen("udp", *addr, cfg.Transport)
	if err != nil {
		return err
	}
	defer conn.Close()
	server := transfer.NewServer(conn, store, cfg)
	log.Infof("Server listening at %s, saving files to %s", server.Addr(), store.Root())

	for {
		res, err := server.Serve(ctx)
		switch {
		case errors.Is(err, transfer.ErrNoClient):
			log.Info("No client, shutting down")
			return nil
		case errors.Is(err, context.Canceled):
			log.Info("Interrupted")
			return nil
		case err != nil:
			log.Errorf("Session failed: %+v", err)
		case res.Kind == protocol.ContentFile:
			log.Infof("Received file %s from %s (%d bytes)", res.Path, res.Peer, len(res.Data))
		default:
			log.Infof("Received message from %s: %s", res.Peer, res.Text)
		}
		if !*loop {
			return err
		}
	}
}
