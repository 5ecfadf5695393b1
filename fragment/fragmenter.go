package fragment

import (
	"datagram-arq/protocol"
	"errors"
	"fmt"
)

var ErrInvalidSize = errors.New("invalid fragment size")

// Fragmenter splits a payload into fixed-size chunks without copying it.
type Fragmenter struct {
	data []byte
	size int
}

func New(data []byte, size int) (*Fragmenter, error) {
	if size < protocol.MinFragmentSize || size > protocol.MaxFragmentSize {
		return nil, fmt.Errorf("%w: %d not in [%d, %d]", ErrInvalidSize, size, protocol.MinFragmentSize, protocol.MaxFragmentSize)
	}
	return &Fragmenter{data: data, size: size}, nil
}

// Len returns the number of fragments.
func (f *Fragmenter) Len() int {
	return (len(f.data) + f.size - 1) / f.size
}

func (f *Fragmenter) Size() int {
	return f.size
}

// At returns fragment i, which covers [i*size, (i+1)*size) of the payload.
// Only the last fragment may be shorter.
func (f *Fragmenter) At(i int) []byte {
	if i < 0 || i >= f.Len() {
		return nil
	}
	start := i * f.size
	end := start + f.size
	if end > len(f.data) {
		end = len(f.data)
	}
	return f.data[start:end:end]
}

// Iter returns an iterator positioned before the first fragment.
// Every call starts over.
func (f *Fragmenter) Iter() *Iterator {
	return &Iterator{f: f, next: 0}
}

type Iterator struct {
	f    *Fragmenter
	next int
}

func (it *Iterator) Next() (seq int, chunk []byte, ok bool) {
	if it.next >= it.f.Len() {
		return 0, nil, false
	}
	seq = it.next
	it.next++
	return seq, it.f.At(seq), true
}

// Reassemble concatenates fragments already ordered by sequence.
func Reassemble(fragments [][]byte) []byte {
	n := 0
	for _, frag := range fragments {
		n += len(frag)
	}
	buf := make([]byte, 0, n)
	for _, frag := range fragments {
		buf = append(buf, frag...)
	}
	return buf
}
