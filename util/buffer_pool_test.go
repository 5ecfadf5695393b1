package util

import (
	"io"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBufferPool(t *testing.T) {
	rand := rand.New(rand.NewSource(0))
	bufferSize := 16

	t.Run("invalid buffer size", func(t *testing.T) {
		require.Panics(t, func() {
			NewBufferPool(-1, 0)
		})
	})

	t.Run("invalid put", func(t *testing.T) {
		bp := NewBufferPool(bufferSize, 0)
		require.Panics(t, func() {
			bp.Put(make([]byte, bufferSize*2))
		})
	})

	t.Run("static pool", func(t *testing.T) {
		require := require.New(t)
		bp := NewBufferPool(bufferSize, 5)
		require.Equal(bufferSize, bp.Size())
		b := bp.Get()
		require.Len(b, bufferSize)
		_, err := io.ReadFull(rand, b)
		require.Nil(err)
		bp.Put(b)
		// Expect to return the next preallocated buffer
		require.NotEqual(b, bp.Get())
	})

	t.Run("dynamic pool", func(t *testing.T) {
		require := require.New(t)
		bp := NewBufferPool(bufferSize, 0)
		b := bp.Get()
		require.Len(b, bufferSize)
		_, err := io.ReadFull(rand, b)
		require.Nil(err)
		// Resliced buffers are restored to full length
		bp.Put(b[:4])
		require.Equal(b, bp.Get())
	})
}
