package transfer

import (
	"context"
	"datagram-arq/fragment"
	"datagram-arq/protocol"
	"datagram-arq/storage"
	"datagram-arq/transport"
	uerrors "datagram-arq/util/errors"
	"fmt"
	"net"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"
)

// Request describes one transfer. An empty Filename sends Payload as text.
type Request struct {
	Payload  []byte
	Filename string

	// Zero uses Config.FragmentSize
	FragmentSize int

	// Sequences whose first transmission carries a bad checksum
	Corrupt []int
	// Sequences left out of the initial transmission
	Lost []int

	// Ping the peer while the transfer starts up
	KeepAlive bool
}

func (req Request) contentKind() protocol.ContentKind {
	if req.Filename == "" {
		return protocol.ContentText
	}
	return protocol.ContentFile
}

// Client sends payloads to a single peer. Inbound frames are split between
// the control plane (everything but KEEPALIVE) and the heartbeat.
type Client struct {
	conn  *transport.Conn
	raddr net.Addr
	cfg   Config

	control   *transport.Subscription
	keepalive *transport.Subscription

	heartbeat *Heartbeat
	sendLock  sync.Mutex
	mu        sync.Mutex
}

func NewClient(conn *transport.Conn, raddr net.Addr, cfg Config) *Client {
	return &Client{
		conn:      conn,
		raddr:     raddr,
		cfg:       sanitizeConfig(cfg),
		control:   conn.Subscribe(),
		keepalive: conn.Subscribe(protocol.KindKeepAlive),
	}
}

// SendTo binds an ephemeral socket, sends req to address and closes it.
func SendTo(ctx context.Context, address string, req Request, cfg Config) error {
	raddr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return err
	}
	conn, err := transport.Listen("udp", ":0", cfg.Transport)
	if err != nil {
		return err
	}
	defer conn.Close()
	return NewClient(conn, raddr, cfg).Send(ctx, req)
}

// StartHeartbeat starts pinging the peer unless a heartbeat is already
// running. The heartbeat is told to stop as soon as a transfer begins.
func (c *Client) StartHeartbeat(ctx context.Context) *Heartbeat {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.heartbeat != nil {
		select {
		case <-c.heartbeat.Done():
		default:
			return c.heartbeat
		}
	}
	hb := newHeartbeat(c.conn, c.raddr, c.keepalive, c.cfg)
	c.heartbeat = hb
	go hb.heartbeatRoutine(ctx)
	return hb
}

func (c *Client) stopHeartbeat() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.heartbeat != nil {
		c.heartbeat.Stop()
	}
}

// Send transfers req and blocks until the server confirms delivery. It
// returns nil on delivery, ErrTransferTimeout when the server goes silent
// and ErrAborted when the handshake is given up.
func (c *Client) Send(ctx context.Context, req Request) error {
	c.sendLock.Lock()
	defer c.sendLock.Unlock()

	entry := c.cfg.Logger.WithFields(logrus.Fields{
		"session": uuid.New(),
		"peer":    c.raddr,
	})

	if req.KeepAlive {
		c.StartHeartbeat(ctx)
	}
	c.stopHeartbeat()

	size := req.FragmentSize
	if size == 0 {
		size = c.cfg.FragmentSize
	}
	frags, err := fragment.New(req.Payload, size)
	if err != nil {
		return err
	}
	ck := req.contentKind()
	var name string
	if ck == protocol.ContentFile {
		// The server rejects these only after the handshake
		name = filepath.Base(req.Filename)
		if err := storage.ValidateName(name); err != nil {
			return err
		}
	}

	if n := c.control.Drain(); n > 0 {
		entry.Debugf("Discarded %d stale frames", n)
	}
	if err := c.handshake(ctx, entry, frags.Len(), ck); err != nil {
		return err
	}
	if ck == protocol.ContentFile {
		if err := c.conn.WriteFrame(protocol.NewNameFrame(name), c.raddr); err != nil {
			return err
		}
		entry.Infof("Sent file name %q", name)
	}

	sctx, cancel := context.WithCancel(ctx)
	defer cancel()

	queue := make(chan pendingFragment, frags.Len()+c.cfg.QueueBacklog)
	lost := normalizeSeqs(req.Lost)
	it := frags.Iter()
	for seq, chunk, ok := it.Next(); ok; seq, chunk, ok = it.Next() {
		if _, found := slices.BinarySearch(lost, seq); found {
			entry.WithField("seq", seq).Info("Simulating lost fragment")
			continue
		}
		queue <- pendingFragment{seq: seq, data: chunk}
	}

	snd := newSender(c.conn, c.raddr, req.Corrupt, c.cfg, entry)
	wg := &sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		snd.sendRoutine(sctx, cancel, queue)
	}()
	entry.Infof("Sending %d fragments of %d bytes", frags.Len(), frags.Size())

	start := time.Now()
	err = c.controlLoop(sctx, entry, frags, queue)
	cancel()
	wg.Wait()
	if err == nil {
		entry.Infof("Delivered %d bytes in %s, %d frames sent", len(req.Payload), time.Since(start), snd.Sent())
		return nil
	}
	if serr := snd.Err(); serr != nil {
		err = serr
	}
	entry.WithError(err).Error("Transfer failed")
	return err
}

func (c *Client) handshake(ctx context.Context, entry *logrus.Entry, count int, ck protocol.ContentKind) error {
	init := protocol.NewInitFrame(count, ck)
	for attempt := 1; ; attempt++ {
		if err := c.conn.WriteFrame(init, c.raddr); err != nil {
			return err
		}
		err := c.awaitAckInit(ctx, entry)
		if err == nil {
			entry.Infof("Connected, %d fragments of %s", count, ck)
			return nil
		}
		if !uerrors.IsDeadlineError(err) {
			return err
		}
		entry.WithError(ErrHandshakeTimeout).Warnf("No response to INIT, attempt %d", attempt)
		if c.cfg.Retry == nil || !c.cfg.Retry(attempt) {
			return fmt.Errorf("%w: %v after %d attempts", ErrAborted, ErrHandshakeTimeout, attempt)
		}
	}
}

func (c *Client) awaitAckInit(ctx context.Context, entry *logrus.Entry) error {
	deadline := time.Now().Add(c.cfg.HandshakeTimeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return uerrors.ErrTimeout
		}
		p, err := receiveFrom(ctx, c.control, c.raddr, remaining, entry)
		if err != nil {
			return err
		}
		if p.Kind() == protocol.KindAckInit {
			return nil
		}
	}
}

func (c *Client) controlLoop(ctx context.Context, entry *logrus.Entry, frags *fragment.Fragmenter, queue chan<- pendingFragment) error {
	requeue := func(seq int) {
		if seq < 0 || seq >= frags.Len() {
			entry.WithField("seq", seq).Warn("Retransmission requested for unknown fragment")
			return
		}
		select {
		case queue <- pendingFragment{seq: seq, data: frags.At(seq)}:
		case <-ctx.Done():
		}
	}
	for {
		p, err := receiveFrom(ctx, c.control, c.raddr, c.cfg.TransferTimeout, entry)
		if err != nil {
			if uerrors.IsDeadlineError(err) {
				return fmt.Errorf("%w: no response for %s", ErrTransferTimeout, c.cfg.TransferTimeout)
			}
			return err
		}
		switch p.Kind() {
		case protocol.KindRetransmitOne:
			seq := int(p.Seq())
			entry.WithField("seq", seq).Info("Fragment corrupted, resending")
			requeue(seq)
		case protocol.KindRetransmitMany:
			seqs, err := protocol.DecodeMissing(p.Payload)
			if err != nil {
				entry.WithError(err).Warn("Ignoring unreadable missing list")
				continue
			}
			entry.Infof("Resending %d missing fragments", len(seqs))
			for _, seq := range seqs {
				requeue(seq)
			}
		case protocol.KindFinished:
			return nil
		default:
			entry.Debugf("Ignoring %s", p.Frame)
		}
	}
}

func normalizeSeqs(seqs []int) []int {
	s := slices.Clone(seqs)
	slices.Sort(s)
	return slices.Compact(s)
}
