package transfer

import (
	"context"
	"datagram-arq/transport"
	uerrors "datagram-arq/util/errors"
	"net"
	"time"

	"github.com/sirupsen/logrus"
)

// receiveFrom returns the next frame sent by peer. Frames from other hosts
// are skipped and do not extend the timeout. A zero timeout waits
// indefinitely.
func receiveFrom(ctx context.Context, sub *transport.Subscription, peer net.Addr, timeout time.Duration, entry *logrus.Entry) (transport.Packet, error) {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	for {
		var remaining time.Duration
		if !deadline.IsZero() {
			remaining = time.Until(deadline)
			if remaining <= 0 {
				return transport.Packet{}, uerrors.ErrTimeout
			}
		}
		p, err := sub.Receive(ctx, remaining)
		if err != nil {
			return p, err
		}
		if !samePeer(p.Addr, peer) {
			entry.WithField("from", p.Addr).Debug("Ignoring frame from another host")
			continue
		}
		if p.Err != nil {
			return p, p.Err
		}
		return p, nil
	}
}

func samePeer(addr, peer net.Addr) bool {
	if addr == nil || peer == nil {
		return addr == peer
	}
	return addr.String() == peer.String()
}
