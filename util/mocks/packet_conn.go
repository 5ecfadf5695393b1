package mocks

import (
	"datagram-arq/util"
	"io"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

const defaultBacklog = 512

// Addr is the address of an in-memory endpoint.
type Addr string

func (a Addr) Network() string { return "mem" }
func (a Addr) String() string  { return string(a) }

type datagram struct {
	data []byte
	from net.Addr
}

type packetConn struct {
	laddr Addr
	peer  *packetConn

	readQueue    chan datagram
	readNotify   chan struct{}
	readDeadline atomic.Value

	die       chan struct{}
	closeOnce sync.Once
}

// PacketConn returns two connected in-memory datagram endpoints. Datagram
// boundaries are preserved; writes to a full peer queue are dropped, like a
// congested link would.
func PacketConn() (net.PacketConn, net.PacketConn) {
	c1 := newPacketConn("mem-1")
	c2 := newPacketConn("mem-2")
	c1.peer = c2
	c2.peer = c1
	return c1, c2
}

func newPacketConn(name string) *packetConn {
	return &packetConn{
		laddr:      Addr(name),
		readQueue:  make(chan datagram, defaultBacklog),
		readNotify: make(chan struct{}, 1),
		die:        make(chan struct{}),
	}
}

func (c *packetConn) ReadFrom(b []byte) (int, net.Addr, error) {
	if len(b) <= 0 {
		return 0, nil, io.ErrShortBuffer
	}
	for {
		var deadline <-chan time.Time
		var timer *time.Timer
		if t, ok := c.readDeadline.Load().(time.Time); ok && !t.IsZero() {
			timer = time.NewTimer(time.Until(t))
			deadline = timer.C
		}
		select {
		case dg := <-c.readQueue:
			stopTimer(timer)
			n := copy(b, dg.data)
			return n, dg.from, nil
		case <-c.readNotify:
			stopTimer(timer)
		case <-deadline:
			return 0, nil, os.ErrDeadlineExceeded
		case <-c.die:
			stopTimer(timer)
			return 0, nil, net.ErrClosed
		}
	}
}

func stopTimer(t *time.Timer) {
	if t != nil {
		t.Stop()
	}
}

func (c *packetConn) WriteTo(b []byte, addr net.Addr) (int, error) {
	select {
	case <-c.die:
		return 0, net.ErrClosed
	default:
	}
	if addr == nil || addr.String() != c.peer.laddr.String() {
		// Unknown destination, silently lost
		return len(b), nil
	}
	data := make([]byte, len(b))
	copy(data, b)
	select {
	case c.peer.readQueue <- datagram{data: data, from: c.laddr}:
	case <-c.peer.die:
	default:
	}
	return len(b), nil
}

func (c *packetConn) LocalAddr() net.Addr {
	return c.laddr
}

func (c *packetConn) SetDeadline(t time.Time) error {
	return c.SetReadDeadline(t)
}

func (c *packetConn) SetReadDeadline(t time.Time) error {
	c.readDeadline.Store(t)
	util.AsyncNotify(c.readNotify)
	return nil
}

func (c *packetConn) SetWriteDeadline(t time.Time) error {
	return nil
}

func (c *packetConn) Close() error {
	c.closeOnce.Do(func() {
		close(c.die)
	})
	return nil
}
