package fragment

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAssembler(t *testing.T) {
	t.Run("out of order", func(t *testing.T) {
		require := require.New(t)
		a := NewAssembler(3)
		require.Equal([]int{0, 1, 2}, a.Missing())
		require.True(a.Add(2, []byte("RLD")))
		require.True(a.Add(0, []byte("HELL")))
		require.False(a.Complete())
		require.Equal([]int{1}, a.Missing())
		require.True(a.Add(1, []byte("O WO")))
		require.True(a.Complete())
		require.Empty(a.Missing())
		require.Equal("HELLO WORLD", string(a.Bytes()))
	})

	t.Run("at most once", func(t *testing.T) {
		require := require.New(t)
		a := NewAssembler(2)
		require.True(a.Add(0, []byte("first")))
		require.False(a.Add(0, []byte("second")))
		require.Equal(1, a.Len())
		require.True(a.Has(0))
		require.False(a.Has(1))
		require.True(a.Add(1, []byte("!")))
		require.False(a.Add(1, []byte("?")))
		require.Equal(2, a.Len())
		require.LessOrEqual(a.Len(), a.Count())
		require.Equal("first!", string(a.Bytes()))
	})

	t.Run("out of range", func(t *testing.T) {
		require := require.New(t)
		a := NewAssembler(1)
		require.False(a.Add(-1, []byte("x")))
		require.False(a.Add(1, []byte("x")))
		require.False(a.Has(5))
		require.Equal(0, a.Len())
	})

	t.Run("empty session", func(t *testing.T) {
		require := require.New(t)
		a := NewAssembler(0)
		require.True(a.Complete())
		require.Empty(a.Bytes())
		require.True(NewAssembler(-3).Complete())
	})
}
