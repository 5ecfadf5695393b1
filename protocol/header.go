package protocol

import (
	"encoding/binary"
	"fmt"
)

// Header is the fixed frame header. Both integer fields are little-endian.
type Header [HeaderSize]byte

func NewHeader(seq int32, aux uint32, kind Kind) Header {
	var hdr Header
	binary.LittleEndian.PutUint32(hdr[:], uint32(seq))
	binary.LittleEndian.PutUint32(hdr[4:], aux)
	hdr[8] = byte(kind)
	return hdr
}

func (hdr Header) Seq() int32 {
	return int32(binary.LittleEndian.Uint32(hdr[:]))
}

func (hdr Header) Aux() uint32 {
	return binary.LittleEndian.Uint32(hdr[4:])
}

func (hdr Header) Kind() Kind {
	return Kind(hdr[8]).normalize()
}

func (hdr Header) String() string {
	return fmt.Sprintf("Header(Kind: %s, Seq: %d, Aux: %#08x)", hdr.Kind(), hdr.Seq(), hdr.Aux())
}
