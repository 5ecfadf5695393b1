package fragment

import (
	"datagram-arq/protocol"
	"errors"
	"io"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func collect(f *Fragmenter) [][]byte {
	var frags [][]byte
	it := f.Iter()
	for {
		_, chunk, ok := it.Next()
		if !ok {
			return frags
		}
		frags = append(frags, chunk)
	}
}

func TestFragmenter(t *testing.T) {
	t.Run("hello world", func(t *testing.T) {
		require := require.New(t)
		f, err := New([]byte("HELLO WORLD"), 4)
		require.Nil(err)
		require.Equal(3, f.Len())
		require.Equal([][]byte{[]byte("HELL"), []byte("O WO"), []byte("RLD")}, collect(f))
	})

	t.Run("restartable", func(t *testing.T) {
		require := require.New(t)
		f, err := New([]byte("HELLO WORLD"), 4)
		require.Nil(err)
		it := f.Iter()
		seq, chunk, ok := it.Next()
		require.True(ok)
		require.Equal(0, seq)
		require.Equal("HELL", string(chunk))
		require.Len(collect(f), 3)
		seq, _, ok = it.Next()
		require.True(ok)
		require.Equal(1, seq)
	})

	t.Run("exact multiple", func(t *testing.T) {
		require := require.New(t)
		f, err := New([]byte("ABCDEFGH"), 4)
		require.Nil(err)
		require.Equal(2, f.Len())
		require.Equal("EFGH", string(f.At(1)))
		require.Nil(f.At(2))
		require.Nil(f.At(-1))
	})

	t.Run("empty", func(t *testing.T) {
		require := require.New(t)
		f, err := New(nil, 10)
		require.Nil(err)
		require.Equal(0, f.Len())
		require.Empty(collect(f))
	})

	t.Run("invalid size", func(t *testing.T) {
		require := require.New(t)
		_, err := New([]byte("x"), 0)
		require.True(errors.Is(err, ErrInvalidSize))
		_, err = New([]byte("x"), protocol.MaxFragmentSize+1)
		require.True(errors.Is(err, ErrInvalidSize))
		_, err = New([]byte("x"), protocol.MaxFragmentSize)
		require.Nil(err)
	})

	t.Run("chunks do not alias past their end", func(t *testing.T) {
		require := require.New(t)
		data := []byte("ABCDEFGH")
		f, err := New(data, 4)
		require.Nil(err)
		chunk := f.At(0)
		chunk = append(chunk, 'Z')
		require.Equal("ABCDEFGH", string(data))
		require.Equal("ABCDZ", string(chunk))
	})
}

func TestRoundTrip(t *testing.T) {
	rand := rand.New(rand.NewSource(0))
	sizes := []int{1, 2, 3, 7, 64, 512, 1000, protocol.MaxFragmentSize}
	lengths := []int{0, 1, 11, 1463, 1464, 4096, 10000}
	for _, length := range lengths {
		payload := make([]byte, length)
		_, err := io.ReadFull(rand, payload)
		require.Nil(t, err)
		for _, size := range sizes {
			f, err := New(payload, size)
			require.Nil(t, err)
			frags := collect(f)
			for i, frag := range frags {
				require.LessOrEqual(t, len(frag), size)
				if i < len(frags)-1 {
					require.Len(t, frag, size)
				}
			}
			require.Equal(t, payload, Reassemble(frags), "length %d, size %d", length, size)
		}
	}
}

func TestReassembleText(t *testing.T) {
	require := require.New(t)
	// Multi-byte characters straddle fragment boundaries with size 1
	text := "žluťoučký kůň"
	f, err := New([]byte(text), 1)
	require.Nil(err)
	require.Equal(text, string(Reassemble(collect(f))))
}
