package main

import (
	"context"
	"datagram-arq/example/shared"
	"datagram-arq/netem"
	"datagram-arq/transfer"
	"datagram-arq/transport"
	"errors"
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"
)

var log = shared.NewLogger(false)

var (
	addr         = flag.String("addr", shared.DefaultServerAddr, "server address")
	message      = flag.String("message", "", "text message to send")
	file         = flag.String("file", "", "path of the file to send")
	fragmentSize = flag.Int("fragment-size", transfer.DefaultConfig().FragmentSize, "fragment size in bytes")
	corrupt      = flag.String("corrupt", "", "comma separated fragments to corrupt on first send")
	lost         = flag.String("lost", "", "comma separated fragments to drop on first send")
	keepAlive    = flag.Bool("keepalive", false, "ping the server before the transfer starts")
	retries      = flag.Int("retries", 0, "INIT retries before giving up")
	verbose      = flag.Bool("v", false, "log every frame")
	ttl          = flag.Int("ttl", 0, "IPv4 TTL of outgoing datagrams")

	lossNth      = flag.Int("emulate-loss", 0, "drop every nth outgoing datagram")
	duplicateNth = flag.Int("emulate-duplicate", 0, "send every nth outgoing datagram twice")
	reorderNth   = flag.Int("emulate-reorder", 0, "hold every nth outgoing datagram behind the next one")
)

func main() {
	flag.Parse()
	log = shared.NewLogger(*verbose)
	if err := start(); err != nil {
		log.Fatal(err)
	}
}

func start() error {
	req, err := buildRequest()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg := transfer.DefaultConfig()
	cfg.Logger = log
	cfg.Transport.TTL = *ttl
	if *retries > 0 {
		cfg.Retry = transfer.RetryN(*retries)
	}

	raddr, err := net.ResolveUDPAddr("udp", *addr)
	if err != nil {
		return err
	}
	conn, err := dial(cfg.Transport)
	if err != nil {
		return err
	}
	defer conn.Close()
	client := transfer.NewClient(conn, raddr, cfg)

	if *keepAlive {
		hb := client.StartHeartbeat(ctx)
		// Give the server a beat before the transfer stops the heartbeat
		select {
		case <-hb.Done():
		case <-time.After(cfg.HeartbeatReplyTimeout):
		}
		if rtt := hb.RTT(); rtt.Samples() > 0 {
			log.Infof("Server alive, RTT: %s (min %s, var %s)", rtt.Latest(), rtt.Min(), rtt.Var())
		}
	}

	log.Infof("Sending %d bytes to %s", len(req.Payload), raddr)
	start := time.Now()
	err = client.Send(ctx, req)
	log.Infof("Transfer outcome: %s", transfer.OutcomeOf(err))
	if err != nil {
		return err
	}
	log.Infof("Transfer completed in %s", time.Since(start))
	return nil
}

func dial(cfg transport.Config) (*transport.Conn, error) {
	emulation := netem.Config{
		WriteLossNth:      *lossNth,
		WriteDuplicateNth: *duplicateNth,
		WriteReorderNth:   *reorderNth,
	}
	if emulation == (netem.Config{}) {
		return transport.Listen("udp", ":0", cfg)
	}
	pc, err := net.ListenPacket("udp", ":0")
	if err != nil {
		return nil, err
	}
	netem.SetLogger(log)
	log.Infof("Emulating network faults: %+v", emulation)
	return transport.New(netem.New(pc, emulation), cfg), nil
}

func buildRequest() (transfer.Request, error) {
	req := transfer.Request{FragmentSize: *fragmentSize}
	switch {
	case *file != "" && *message != "":
		return req, errors.New("-message and -file are mutually exclusive")
	case *file != "":
		data, err := os.ReadFile(*file)
		if err != nil {
			return req, err
		}
		req.Payload = data
		req.Filename = *file
	default:
		req.Payload = []byte(*message)
	}

	var err error
	if req.Corrupt, err = shared.ParseSeqList(*corrupt); err != nil {
		return req, err
	}
	if req.Lost, err = shared.ParseSeqList(*lost); err != nil {
		return req, err
	}
	return req, nil
}
