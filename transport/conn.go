package transport

import (
	"context"
	"datagram-arq/protocol"
	"datagram-arq/util"
	uatomic "datagram-arq/util/atomic"
	uerrors "datagram-arq/util/errors"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/ipv4"
)

var ErrClosed = errors.New("transport closed")

// Packet is an inbound frame and the address it came from. Err is set
// instead of Frame when the datagram could not be decoded.
type Packet struct {
	protocol.Frame
	Addr net.Addr
	Err  error
}

type writeRequest struct {
	data   []byte
	raddr  net.Addr
	result chan<- error
}

// Subscription receives the inbound frames routed to it.
type Subscription struct {
	C     <-chan Packet
	ch    chan Packet
	kinds []protocol.Kind
	conn  *Conn
}

// Conn owns a datagram socket. A single read routine decodes every inbound
// datagram and routes it by kind to at most one subscriber, so consumers
// never race on the socket. Writes are serialized through a write routine.
type Conn struct {
	conn net.PacketConn
	cfg  Config

	routes   map[protocol.Kind]*Subscription
	fallback *Subscription

	readErr atomic.Value
	writeCh chan writeRequest

	mu sync.RWMutex
	wg sync.WaitGroup

	die       chan struct{}
	closed    uatomic.Bool
	closeOnce sync.Once
}

// Listen opens a datagram socket on address, eg. ":4500" or "127.0.0.1:0".
func Listen(network, address string, cfg Config) (*Conn, error) {
	pc, err := net.ListenPacket(network, address)
	if err != nil {
		return nil, err
	}
	return New(pc, cfg), nil
}

func New(pc net.PacketConn, cfg Config) *Conn {
	cfg = sanitizeConfig(cfg)
	c := &Conn{
		conn:    pc,
		cfg:     cfg,
		routes:  make(map[protocol.Kind]*Subscription),
		writeCh: make(chan writeRequest, cfg.WriteBacklog),
		die:     make(chan struct{}),
	}
	if cfg.TTL > 0 {
		c.setTTL(cfg.TTL)
	}
	c.wg.Add(2)
	go c.readRoutine()
	go c.writeRoutine()
	return c
}

func (c *Conn) setTTL(ttl int) {
	udp, ok := c.conn.(*net.UDPConn)
	if !ok {
		return
	}
	if addr, ok := udp.LocalAddr().(*net.UDPAddr); ok && addr.IP.To4() == nil && !addr.IP.IsUnspecified() {
		return
	}
	if err := ipv4.NewConn(udp).SetTTL(ttl); err != nil {
		log.Warnf("Failed to set TTL %d: %+v", ttl, err)
	}
}

func (c *Conn) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// Subscribe routes frames of the given kinds to a new subscription. With no
// kinds it receives every frame not claimed by another subscription,
// including frames that failed to decode. A later subscription for a kind
// replaces the earlier one.
func (c *Conn) Subscribe(kinds ...protocol.Kind) *Subscription {
	ch := make(chan Packet, c.cfg.ReadBacklog)
	sub := &Subscription{C: ch, ch: ch, kinds: kinds, conn: c}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(kinds) == 0 {
		c.fallback = sub
		return sub
	}
	for _, k := range kinds {
		c.routes[k] = sub
	}
	return sub
}

// Unsubscribe stops routing to sub. Frames for its kinds fall back to the
// catch-all subscription, if any.
func (s *Subscription) Unsubscribe() {
	c := s.conn
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fallback == s {
		c.fallback = nil
	}
	for _, k := range s.kinds {
		if c.routes[k] == s {
			delete(c.routes, k)
		}
	}
}

// Drain discards every queued packet.
func (s *Subscription) Drain() int {
	n := 0
	for {
		select {
		case <-s.ch:
			n++
		default:
			return n
		}
	}
}

// Receive waits up to timeout for the next packet. A zero timeout waits
// until ctx is done or the connection fails.
func (s *Subscription) Receive(ctx context.Context, timeout time.Duration) (Packet, error) {
	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}
	select {
	case p := <-s.ch:
		return p, nil
	case <-deadline:
		return Packet{}, uerrors.ErrTimeout
	case <-s.conn.die:
		if err := s.conn.getReadError(); err != nil {
			return Packet{}, err
		}
		return Packet{}, ErrClosed
	case <-ctx.Done():
		return Packet{}, ctx.Err()
	}
}

// Done is closed once the connection stops reading.
func (c *Conn) Done() <-chan struct{} {
	return c.die
}

// WriteFrame encodes f and sends it to raddr.
func (c *Conn) WriteFrame(f protocol.Frame, raddr net.Addr) error {
	b, err := f.Bytes()
	if err != nil {
		return err
	}
	return c.Write(b, raddr)
}

// Write sends an encoded frame to raddr.
func (c *Conn) Write(b []byte, raddr net.Addr) error {
	if c.closed.Get() {
		return ErrClosed
	}
	ch := make(chan error, 1)
	select {
	case c.writeCh <- writeRequest{data: b, raddr: raddr, result: ch}:
	case <-c.die:
		return ErrClosed
	}
	select {
	case err := <-ch:
		return err
	case <-c.die:
		return ErrClosed
	}
}

func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	c.shutdown()
	err := c.conn.Close()
	c.wg.Wait()
	return err
}

func (c *Conn) shutdown() {
	c.closeOnce.Do(func() {
		close(c.die)
	})
}

func (c *Conn) readRoutine() {
	defer c.wg.Done()
	buf := make([]byte, c.cfg.ReadBufferSize)
	for {
		n, raddr, err := c.conn.ReadFrom(buf)
		if err != nil {
			if !c.closed.Get() {
				log.Errorf("Read error: %+v", err)
				c.readErr.Store(err)
			}
			c.shutdown()
			return
		}
		p := Packet{Addr: raddr}
		p.Frame, p.Err = protocol.Decode(buf[:n])
		c.dispatch(p)
	}
}

func (c *Conn) writeRoutine() {
	defer c.wg.Done()
	for {
		select {
		case wr := <-c.writeCh:
			_, err := c.conn.WriteTo(wr.data, wr.raddr)
			util.AsyncNotifyErr(wr.result, err)
		case <-c.die:
			return
		}
	}
}

func (c *Conn) dispatch(p Packet) {
	c.mu.RLock()
	sub := c.fallback
	if p.Err == nil {
		if s, ok := c.routes[p.Kind()]; ok {
			sub = s
		}
	}
	c.mu.RUnlock()

	fields := logrus.Fields{
		"from": p.Addr,
	}
	if sub == nil {
		log.WithFields(fields).Debugf("No subscriber, dropping %s", p.Frame)
		return
	}
	select {
	case sub.ch <- p:
	default:
		log.WithFields(fields).Warnf("Subscriber backlog full, dropping %s", p.Frame)
	}
}

func (c *Conn) getReadError() error {
	if err, ok := c.readErr.Load().(error); ok {
		return err
	}
	return nil
}
