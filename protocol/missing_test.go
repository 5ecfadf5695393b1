package protocol

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMissing(t *testing.T) {
	t.Run("single", func(t *testing.T) {
		require := require.New(t)
		chunks := EncodeMissing([]int{2})
		require.Len(chunks, 1)
		require.Equal([]byte{1, 0, 0, 0, 2, 0, 0, 0}, chunks[0])
		ids, err := DecodeMissing(chunks[0])
		require.Nil(err)
		require.Equal([]int{2}, ids)
	})

	t.Run("empty", func(t *testing.T) {
		require := require.New(t)
		require.Empty(EncodeMissing(nil))
		ids, err := DecodeMissing([]byte{0, 0, 0, 0})
		require.Nil(err)
		require.Empty(ids)
	})

	t.Run("chunked", func(t *testing.T) {
		require := require.New(t)
		expected := make([]int, 1000)
		for i := range expected {
			expected[i] = i * 2
		}
		chunks := EncodeMissing(expected)
		require.Len(chunks, 3)
		var actual []int
		for _, c := range chunks {
			require.LessOrEqual(len(c), MaxPayloadSize)
			ids, err := DecodeMissing(c)
			require.Nil(err)
			actual = append(actual, ids...)
		}
		require.Equal(expected, actual)
		// Earliest ids come first
		first, err := DecodeMissing(chunks[0])
		require.Nil(err)
		require.Len(first, MaxMissingPerFrame)
		require.Equal(0, first[0])
	})

	t.Run("legacy", func(t *testing.T) {
		require := require.New(t)
		ids, err := DecodeMissing([]byte("2;"))
		require.Nil(err)
		require.Equal([]int{2}, ids)

		ids, err = DecodeMissing([]byte("13;4;13;"))
		require.Nil(err)
		require.Equal([]int{4, 13}, ids)
	})

	t.Run("malformed", func(t *testing.T) {
		require := require.New(t)
		_, err := DecodeMissing([]byte("1;x;"))
		require.True(errors.Is(err, ErrMalformedFrame))
		_, err = DecodeMissing([]byte{5, 0, 0, 0, 1})
		require.True(errors.Is(err, ErrMalformedFrame))
	})
}
