package protocol

import (
	"fmt"
	"hash/crc32"
)

type Frame struct {
	Header
	Payload []byte
}

func NewInitFrame(count int, ck ContentKind) Frame {
	return Frame{Header: NewHeader(int32(count), uint32(ck), KindInit)}
}

func NewNameFrame(name string) Frame {
	return Frame{Header: NewHeader(0, 0, KindName), Payload: []byte(name)}
}

// NewDataFrame tags payload with the given checksum. Callers normally pass
// Checksum(payload); anything else produces a frame the receiver rejects.
func NewDataFrame(seq int, checksum uint32, payload []byte) Frame {
	return Frame{Header: NewHeader(int32(seq), checksum, KindData), Payload: payload}
}

func NewAckInitFrame() Frame {
	return Frame{Header: NewHeader(0, 0, KindAckInit)}
}

func NewRetransmitOneFrame(seq int) Frame {
	return Frame{Header: NewHeader(int32(seq), 0, KindRetransmitOne)}
}

func NewRetransmitManyFrame(list []byte) Frame {
	return Frame{Header: NewHeader(0, 0, KindRetransmitMany), Payload: list}
}

func NewFinishedFrame() Frame {
	return Frame{Header: NewHeader(0, 0, KindFinished)}
}

func NewKeepAliveFrame() Frame {
	return Frame{Header: NewHeader(0, 0, KindKeepAlive)}
}

// Checksum is the CRC32 (IEEE) carried by DATA frames.
func Checksum(payload []byte) uint32 {
	return crc32.ChecksumIEEE(payload)
}

// Valid reports whether the payload matches the checksum in the header.
func (f Frame) Valid() bool {
	return Checksum(f.Payload) == f.Aux()
}

func (f Frame) Len() int {
	return HeaderSize + len(f.Payload)
}

// MarshalTo encodes the frame into b and returns the number of bytes written.
func (f Frame) MarshalTo(b []byte) (int, error) {
	if f.Len() > MaxFrameSize {
		return 0, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, f.Len())
	}
	if len(b) < f.Len() {
		return 0, fmt.Errorf("buffer too small: %d < %d", len(b), f.Len())
	}
	n := copy(b, f.Header[:])
	n += copy(b[n:], f.Payload)
	return n, nil
}

func (f Frame) Bytes() ([]byte, error) {
	b := make([]byte, f.Len())
	n, err := f.MarshalTo(b)
	if err != nil {
		return nil, err
	}
	return b[:n], nil
}

func (f Frame) String() string {
	return fmt.Sprintf("Frame(Kind: %s, Seq: %d, Aux: %#08x, Body(Length: %d))", f.Kind(), f.Seq(), f.Aux(), len(f.Payload))
}

// Decode parses a datagram. The payload is copied so b can be reused.
func Decode(b []byte) (Frame, error) {
	var f Frame
	if len(b) < HeaderSize {
		return f, fmt.Errorf("%w: %d bytes", ErrMalformedFrame, len(b))
	}
	n := copy(f.Header[:], b)
	if len(b) > n {
		f.Payload = make([]byte, len(b)-n)
		copy(f.Payload, b[n:])
	}
	return f, nil
}
