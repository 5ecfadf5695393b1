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
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Result is a payload delivered by a completed session.
type Result struct {
	SessionID uuid.UUID
	Peer      net.Addr
	Kind      protocol.ContentKind

	// Set for text sessions
	Text string
	// Set for file sessions. Path is empty when the server has no storage.
	Filename string
	Path     string

	Data  []byte
	Stats SessionStats
}

type SessionStats struct {
	Fragments int
	// DATA frames rejected by the CRC32 check
	ChecksumMismatches int
	// Data-phase timeouts that triggered RETRANSMIT_MANY
	MissingRounds int
	// Valid DATA frames for an already accepted sequence
	Duplicates int
}

type serverSession struct {
	id       uuid.UUID
	peer     net.Addr
	count    int
	kind     protocol.ContentKind
	filename string
	stats    SessionStats
	log      *logrus.Entry
}

// Server receives one session at a time on a single goroutine.
type Server struct {
	conn  *transport.Conn
	store *storage.Dir
	cfg   Config
	sub   *transport.Subscription
}

// NewServer returns a server reading from conn. Files are written to store;
// with a nil store they are only returned in the Result.
func NewServer(conn *transport.Conn, store *storage.Dir, cfg Config) *Server {
	return &Server{
		conn:  conn,
		store: store,
		cfg:   sanitizeConfig(cfg),
		sub:   conn.Subscribe(),
	}
}

// ListenAndServe binds address, runs a single session and closes the socket.
func ListenAndServe(ctx context.Context, address string, store *storage.Dir, cfg Config) (*Result, error) {
	conn, err := transport.Listen("udp", address, cfg.Transport)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	return NewServer(conn, store, cfg).Serve(ctx)
}

func (s *Server) Addr() net.Addr {
	return s.conn.LocalAddr()
}

// Serve runs one session: it waits for a client, receives every fragment
// and returns the reassembled payload. ErrNoClient means nobody showed up
// within one heartbeat interval.
func (s *Server) Serve(ctx context.Context) (*Result, error) {
	sess := &serverSession{id: uuid.New()}
	sess.log = s.cfg.Logger.WithField("session", sess.id)

	if err := s.awaitInit(ctx, sess); err != nil {
		return nil, err
	}
	sess.log = sess.log.WithField("peer", sess.peer)
	if sess.kind == protocol.ContentFile {
		if err := s.awaitName(ctx, sess); err != nil {
			return nil, err
		}
	}
	asm, err := s.receiveData(ctx, sess)
	if err != nil {
		return nil, err
	}
	return s.complete(sess, asm)
}

func (s *Server) awaitInit(ctx context.Context, sess *serverSession) error {
	for {
		p, err := s.sub.Receive(ctx, s.cfg.HeartbeatInterval)
		if err != nil {
			if uerrors.IsDeadlineError(err) {
				sess.log.Warnf("No packets received for %s", s.cfg.HeartbeatInterval)
				return ErrNoClient
			}
			return err
		}
		if p.Err != nil {
			// No peer yet, garbage from anyone is not fatal
			sess.log.WithField("peer", p.Addr).WithError(p.Err).Warn("Ignoring malformed packet")
			continue
		}
		switch p.Kind() {
		case protocol.KindKeepAlive:
			sess.log.WithField("peer", p.Addr).Debug("Kept alive")
			if err := s.conn.WriteFrame(protocol.NewKeepAliveFrame(), p.Addr); err != nil {
				return err
			}
		case protocol.KindInit:
			count := int(p.Seq())
			kind := protocol.ContentKind(p.Aux())
			if count < 0 || !kind.Valid() {
				sess.log.WithField("peer", p.Addr).Warnf("Ignoring invalid %s", p.Frame)
				continue
			}
			sess.peer = p.Addr
			sess.count = count
			sess.kind = kind
			if err := s.conn.WriteFrame(protocol.NewAckInitFrame(), p.Addr); err != nil {
				return err
			}
			sess.log.WithField("peer", p.Addr).Infof("Session started, expecting %d fragments of %s", count, kind)
			return nil
		default:
			sess.log.WithField("peer", p.Addr).Debugf("Ignoring %s before INIT", p.Frame)
		}
	}
}

func (s *Server) awaitName(ctx context.Context, sess *serverSession) error {
	for {
		p, err := s.receiveFromPeer(ctx, sess, 0)
		if err != nil {
			return err
		}
		switch p.Kind() {
		case protocol.KindName:
			name := string(p.Payload)
			if err := storage.ValidateName(name); err != nil {
				sess.log.WithError(err).Error("Rejecting file name")
				return err
			}
			sess.filename = name
			sess.log.Infof("Receiving file %q", name)
			return nil
		default:
			if err := s.handleControl(sess, p); err != nil {
				return err
			}
		}
	}
}

func (s *Server) receiveData(ctx context.Context, sess *serverSession) (*fragment.Assembler, error) {
	asm := fragment.NewAssembler(sess.count)
	for !asm.Complete() {
		p, err := s.receiveFromPeer(ctx, sess, s.cfg.DataTimeout)
		if err != nil {
			if uerrors.IsDeadlineError(err) {
				if err := s.requestMissing(sess, asm); err != nil {
					return nil, err
				}
				continue
			}
			return nil, err
		}
		switch p.Kind() {
		case protocol.KindData:
			if err := s.handleData(sess, asm, p); err != nil {
				return nil, err
			}
		default:
			if err := s.handleControl(sess, p); err != nil {
				return nil, err
			}
		}
	}
	return asm, nil
}

func (s *Server) handleData(sess *serverSession, asm *fragment.Assembler, p transport.Packet) error {
	seq := int(p.Seq())
	entry := sess.log.WithField("seq", seq)
	if seq < 0 || seq >= sess.count {
		entry.Warnf("Ignoring fragment outside of [0, %d)", sess.count)
		return nil
	}
	if asm.Has(seq) {
		sess.stats.Duplicates++
		entry.Debug("Ignoring duplicate fragment")
		return nil
	}
	if !p.Valid() {
		sess.stats.ChecksumMismatches++
		entry.WithError(ErrChecksumMismatch).Warn("Fragment corrupted, requesting retransmission")
		return s.conn.WriteFrame(protocol.NewRetransmitOneFrame(seq), sess.peer)
	}
	asm.Add(seq, p.Payload)
	entry.Debugf("Fragment accepted, %d/%d", asm.Len(), asm.Count())
	return nil
}

// handleControl answers frames that may arrive in any phase after INIT.
func (s *Server) handleControl(sess *serverSession, p transport.Packet) error {
	switch p.Kind() {
	case protocol.KindInit:
		// Our ACK_INIT was lost and the client retried
		sess.log.Debug("Repeating ACK_INIT")
		return s.conn.WriteFrame(protocol.NewAckInitFrame(), sess.peer)
	case protocol.KindKeepAlive:
		return s.conn.WriteFrame(protocol.NewKeepAliveFrame(), sess.peer)
	}
	sess.log.Debugf("Ignoring %s", p.Frame)
	return nil
}

func (s *Server) requestMissing(sess *serverSession, asm *fragment.Assembler) error {
	missing := asm.Missing()
	sess.stats.MissingRounds++
	entry := sess.log.WithError(ErrFragmentLoss)
	if len(missing) > 16 {
		entry.Warnf("Missing %d fragments, first %v", len(missing), missing[:16])
	} else {
		entry.Warnf("Missing fragments %v", missing)
	}
	for _, chunk := range protocol.EncodeMissing(missing) {
		if err := s.conn.WriteFrame(protocol.NewRetransmitManyFrame(chunk), sess.peer); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) complete(sess *serverSession, asm *fragment.Assembler) (*Result, error) {
	if err := s.conn.WriteFrame(protocol.NewFinishedFrame(), sess.peer); err != nil {
		return nil, err
	}
	sess.stats.Fragments = asm.Count()
	res := &Result{
		SessionID: sess.id,
		Peer:      sess.peer,
		Kind:      sess.kind,
		Stats:     sess.stats,
	}
	switch sess.kind {
	case protocol.ContentText:
		// Decoded once, characters may straddle fragments
		res.Data = asm.Bytes()
		res.Text = string(res.Data)
		if !utf8.Valid(res.Data) {
			sess.log.Warn("Received text is not valid UTF-8")
		}
		sess.log.Infof("Received message: %s", res.Text)
	case protocol.ContentFile:
		res.Filename = sess.filename
		res.Data = asm.Bytes()
		if s.store != nil {
			path, err := s.store.Save(sess.filename, asm.Fragments())
			if err != nil {
				return nil, fmt.Errorf("save %q: %w", sess.filename, err)
			}
			res.Path = path
			sess.log.Infof("Saved file to %s", path)
		}
	}
	return res, nil
}

func (s *Server) receiveFromPeer(ctx context.Context, sess *serverSession, timeout time.Duration) (transport.Packet, error) {
	return receiveFrom(ctx, s.sub, sess.peer, timeout, sess.log)
}
