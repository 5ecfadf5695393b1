package util

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCounter(t *testing.T) {
	var c Counter

	t.Run("sync", func(t *testing.T) {
		require := require.New(t)
		require.EqualValues(1, c.Next())
		require.EqualValues(2, c.Next())
		require.EqualValues(2, c.Load())
	})

	t.Run("async", func(t *testing.T) {
		wg := &sync.WaitGroup{}
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 2; j++ {
					c.Next()
				}
			}()
		}
		wg.Wait()
		require.EqualValues(t, 10, c.Load())
	})
}
