package protocol

import (
	"errors"
	"fmt"
)

const (
	// i32 Sequence + u32 Auxiliary + u8 Kind
	HeaderSize = 9
	// Largest datagram that fits a 1500 byte Ethernet MTU without IP fragmentation
	MaxFrameSize = 1472
	// Largest payload of a single frame
	MaxPayloadSize = MaxFrameSize - HeaderSize
	// Fragments must fit in a single DATA frame
	MinFragmentSize = 1
	MaxFragmentSize = MaxPayloadSize
)

var (
	ErrMalformedFrame = errors.New("malformed frame")
	ErrFrameTooLarge  = errors.New("frame too large")
)

type Kind uint8

const (
	KindInit           Kind = 'I'
	KindName           Kind = 'N'
	KindData           Kind = 'D'
	KindAckInit        Kind = 'A'
	KindRetransmitOne  Kind = 'R'
	KindRetransmitMany Kind = 'M'
	KindFinished       Kind = 'F'
	KindKeepAlive      Kind = 'K'
	legacyKindTextData Kind = '1'
	legacyKindFileData Kind = '2'
)

func (k Kind) String() string {
	switch k {
	case KindInit:
		return "INIT"
	case KindName:
		return "NAME"
	case KindData:
		return "DATA"
	case KindAckInit:
		return "ACK_INIT"
	case KindRetransmitOne:
		return "RETRANSMIT_ONE"
	case KindRetransmitMany:
		return "RETRANSMIT_MANY"
	case KindFinished:
		return "FINISHED"
	case KindKeepAlive:
		return "KEEPALIVE"
	}
	return fmt.Sprintf("Kind(%#02x)", uint8(k))
}

// normalize maps kinds sent by older peers onto their current code.
// Those peers tag data frames with the content kind digit.
func (k Kind) normalize() Kind {
	switch k {
	case legacyKindTextData, legacyKindFileData:
		return KindData
	}
	return k
}

// ContentKind tells the server how to deliver the reassembled payload.
type ContentKind uint32

const (
	ContentText ContentKind = 1
	ContentFile ContentKind = 2
)

func (ck ContentKind) Valid() bool {
	return ck == ContentText || ck == ContentFile
}

func (ck ContentKind) String() string {
	switch ck {
	case ContentText:
		return "TEXT"
	case ContentFile:
		return "FILE"
	}
	return fmt.Sprintf("ContentKind(%d)", uint32(ck))
}
