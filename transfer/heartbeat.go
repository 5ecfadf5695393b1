package transfer

import (
	"context"
	"datagram-arq/protocol"
	"datagram-arq/transport"
	uerrors "datagram-arq/util/errors"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Heartbeat pings the peer with KEEPALIVE frames independently of any
// transfer. It ends when the peer stops answering or after Stop.
type Heartbeat struct {
	conn  *transport.Conn
	raddr net.Addr
	sub   *transport.Subscription

	replyTimeout time.Duration
	pause        time.Duration

	rtt RTTStats
	err error

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	log *logrus.Entry
}

func newHeartbeat(conn *transport.Conn, raddr net.Addr, sub *transport.Subscription, cfg Config) *Heartbeat {
	return &Heartbeat{
		conn:         conn,
		raddr:        raddr,
		sub:          sub,
		replyTimeout: cfg.HeartbeatReplyTimeout,
		pause:        cfg.HeartbeatPause,
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
		log: cfg.Logger.WithFields(logrus.Fields{
			"peer": raddr,
			"task": "heartbeat",
		}),
	}
}

// Stop asks the heartbeat to end after the beat in progress. Safe to call
// more than once.
func (h *Heartbeat) Stop() {
	h.stopOnce.Do(func() {
		close(h.stop)
	})
}

// Done is closed when the heartbeat has ended.
func (h *Heartbeat) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the heartbeat ends and returns why it ended. A clean
// stop returns nil.
func (h *Heartbeat) Wait() error {
	<-h.done
	return h.err
}

// Err returns the failure once Done is closed, nil before that.
func (h *Heartbeat) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

func (h *Heartbeat) RTT() *RTTStats {
	return &h.rtt
}

func (h *Heartbeat) heartbeatRoutine(ctx context.Context) {
	defer close(h.done)
	h.err = h.beat(ctx)
	if h.err != nil {
		h.log.WithError(h.err).Warn("Heartbeat ended")
		return
	}
	h.log.Debug("Heartbeat stopped")
}

func (h *Heartbeat) beat(ctx context.Context) error {
	h.sub.Drain()
	for {
		if err := h.conn.WriteFrame(protocol.NewKeepAliveFrame(), h.raddr); err != nil {
			return err
		}
		h.rtt.UpdateSend()
		if _, err := receiveFrom(ctx, h.sub, h.raddr, h.replyTimeout, h.log); err != nil {
			if uerrors.IsDeadlineError(err) {
				return ErrHeartbeatFailure
			}
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		h.rtt.UpdateRecv()
		h.log.Debugf("Peer alive, RTT: %s", h.rtt.Latest())

		timer := time.NewTimer(h.pause)
		select {
		case <-timer.C:
		case <-h.stop:
			timer.Stop()
			return nil
		case <-ctx.Done():
			timer.Stop()
			return nil
		}
	}
}
