package netem

import (
	uatomic "datagram-arq/util/atomic"
	"errors"
	"net"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

var ErrNetemClosed = errors.New("netem closed")

type Config struct {
	// Datagram at every nth would be discarded on read to emulate packet loss.
	// Zero value means no emulation of packet loss.
	ReadLossNth int

	// Datagram at every nth would be discarded on write to emulate packet loss.
	// Zero value means no emulation of packet loss.
	WriteLossNth int
	// Datagram at every nth would be sent twice to emulate packet duplication.
	// Zero value means no emulation of packet duplication.
	WriteDuplicateNth int
	// Datagram at every nth would be held back and sent after the next one
	// to emulate packet reordering.
	// Zero value means no emulation of packet reordering.
	WriteReorderNth int
}

type heldDatagram struct {
	data []byte
	addr net.Addr
}

// Netem wraps a datagram socket and deterministically loses, duplicates and
// reorders datagrams passing through it.
type Netem struct {
	net.PacketConn

	readLossNth uint32

	writeLossNth      uint32
	writeDuplicateNth uint32
	writeReorderNth   uint32

	readCounter  uint32
	writeCounter uint32

	held     *heldDatagram
	heldLock sync.Mutex

	mu     sync.Mutex
	closed uatomic.Bool
}

func New(conn net.PacketConn, cfg Config) *Netem {
	ne := &Netem{PacketConn: conn}
	ne.Update(cfg)
	return ne
}

func (ne *Netem) ReadFrom(b []byte) (int, net.Addr, error) {
	for {
		if ne.closed.Get() {
			return 0, nil, ErrNetemClosed
		}
		n, addr, err := ne.PacketConn.ReadFrom(b)
		if err != nil {
			return n, addr, err
		}
		rc := atomic.AddUint32(&ne.readCounter, 1)
		rl := atomic.LoadUint32(&ne.readLossNth)
		if rl > 0 && rc%rl == 0 {
			log.WithFields(logrus.Fields{
				"op":      "read",
				"counter": rc,
			}).Debug("Simulating packet loss")
			continue
		}
		return n, addr, nil
	}
}

func (ne *Netem) WriteTo(b []byte, addr net.Addr) (int, error) {
	if ne.closed.Get() {
		return 0, ErrNetemClosed
	}
	wc := atomic.AddUint32(&ne.writeCounter, 1)
	wl := atomic.LoadUint32(&ne.writeLossNth)
	wd := atomic.LoadUint32(&ne.writeDuplicateNth)
	wr := atomic.LoadUint32(&ne.writeReorderNth)

	logFields := logrus.Fields{
		"op":      "write",
		"counter": wc,
	}

	if wl > 0 && wc%wl == 0 {
		log.WithFields(logFields).Debug("Simulating packet loss")
		return len(b), nil
	}

	ne.heldLock.Lock()
	defer ne.heldLock.Unlock()

	if wr > 0 && wc%wr == 0 && ne.held == nil {
		log.WithFields(logFields).Debug("Simulating packet reordering")
		data := make([]byte, len(b))
		copy(data, b)
		ne.held = &heldDatagram{data: data, addr: addr}
		return len(b), nil
	}

	n, err := ne.PacketConn.WriteTo(b, addr)
	if err != nil {
		return 0, err
	}
	if wd > 0 && wc%wd == 0 {
		log.WithFields(logFields).Debug("Simulating packet duplication")
		if _, err := ne.PacketConn.WriteTo(b, addr); err != nil {
			return 0, err
		}
	}
	if held := ne.held; held != nil {
		ne.held = nil
		if _, err := ne.PacketConn.WriteTo(held.data, held.addr); err != nil {
			return 0, err
		}
	}
	log.WithFields(logFields).Debugf("Wrote %d bytes", n)
	return n, nil
}

// Update the config for network emulation.
// Takes effect on the next read/write operations.
func (ne *Netem) Update(cfg Config) {
	atomic.StoreUint32(&ne.readLossNth, uint32(cfg.ReadLossNth))
	atomic.StoreUint32(&ne.writeLossNth, uint32(cfg.WriteLossNth))
	atomic.StoreUint32(&ne.writeDuplicateNth, uint32(cfg.WriteDuplicateNth))
	atomic.StoreUint32(&ne.writeReorderNth, uint32(cfg.WriteReorderNth))
	atomic.StoreUint32(&ne.readCounter, 0)
	atomic.StoreUint32(&ne.writeCounter, 0)
}

// Flush sends a datagram held back for reordering, if any.
func (ne *Netem) Flush() error {
	ne.heldLock.Lock()
	defer ne.heldLock.Unlock()
	held := ne.held
	if held == nil {
		return nil
	}
	ne.held = nil
	_, err := ne.PacketConn.WriteTo(held.data, held.addr)
	return err
}

func (ne *Netem) Reset() {
	//nolint:errcheck
	ne.Flush()
	ne.Update(Config{})
}

func (ne *Netem) Close() error {
	ne.mu.Lock()
	defer ne.mu.Unlock()
	if ne.closed.Get() {
		return ErrNetemClosed
	}
	ne.closed.Set(true)
	return ne.PacketConn.Close()
}
