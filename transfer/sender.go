package transfer

import (
	"context"
	"datagram-arq/protocol"
	"datagram-arq/transport"
	"datagram-arq/util"
	"net"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Subtracted from the checksum of a fragment marked for simulated corruption
const corruptOffset = 1

type pendingFragment struct {
	seq  int
	data []byte
}

type sendResult struct {
	err error
}

// sender drains the pending queue into DATA frames. It owns the simulated
// corruption set, so no locking is needed around it.
type sender struct {
	conn  *transport.Conn
	raddr net.Addr

	corrupt map[int]struct{}

	paceEvery uint64
	paceDelay time.Duration

	pool *util.BufferPool
	sent util.Counter

	result atomic.Value
	log    *logrus.Entry
}

func newSender(conn *transport.Conn, raddr net.Addr, corrupt []int, cfg Config, entry *logrus.Entry) *sender {
	s := &sender{
		conn:      conn,
		raddr:     raddr,
		corrupt:   make(map[int]struct{}, len(corrupt)),
		paceEvery: uint64(cfg.PaceEvery),
		paceDelay: cfg.PaceDelay,
		pool:      util.NewBufferPool(protocol.MaxFrameSize, 0),
		log:       entry,
	}
	for _, seq := range corrupt {
		s.corrupt[seq] = struct{}{}
	}
	return s
}

// sendRoutine runs until ctx is done. Fragments still queued at that point
// are dropped, never sent. A write failure is recorded and cancels the session.
func (s *sender) sendRoutine(ctx context.Context, cancel context.CancelFunc, queue <-chan pendingFragment) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		var p pendingFragment
		select {
		case p = <-queue:
		case <-ctx.Done():
			return
		}
		if err := s.send(p); err != nil {
			s.result.Store(sendResult{err: err})
			cancel()
			return
		}
		if n := s.sent.Next(); s.paceEvery > 0 && s.paceDelay > 0 && n%s.paceEvery == 0 {
			timer := time.NewTimer(s.paceDelay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return
			}
		}
	}
}

func (s *sender) send(p pendingFragment) error {
	checksum := protocol.Checksum(p.data)
	if _, ok := s.corrupt[p.seq]; ok {
		// Only the first transmission is corrupted
		delete(s.corrupt, p.seq)
		checksum -= corruptOffset
		s.log.WithField("seq", p.seq).Info("Simulating corrupted fragment")
	}
	buf := s.pool.Get()
	defer s.pool.Put(buf)
	n, err := protocol.NewDataFrame(p.seq, checksum, p.data).MarshalTo(buf)
	if err != nil {
		return err
	}
	s.log.WithField("seq", p.seq).Debugf("Sending fragment, Body(Length: %d)", len(p.data))
	return s.conn.Write(buf[:n], s.raddr)
}

// Sent returns how many DATA frames were written.
func (s *sender) Sent() uint64 {
	return s.sent.Load()
}

func (s *sender) Err() error {
	if res, ok := s.result.Load().(sendResult); ok {
		return res.err
	}
	return nil
}
