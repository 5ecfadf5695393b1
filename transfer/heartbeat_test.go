package transfer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHeartbeat(t *testing.T) {
	t.Run("unreachable peer", func(t *testing.T) {
		require := require.New(t)
		ctx := context.Background()
		cfg := testConfig()
		p := newPair(t, cfg, nil, nil)

		start := time.Now()
		hb := p.client.StartHeartbeat(ctx)
		select {
		case <-hb.Done():
		case <-time.After(cfg.HeartbeatReplyTimeout + time.Second):
			require.Fail("heartbeat did not give up")
		}
		require.True(errors.Is(hb.Err(), ErrHeartbeatFailure))
		require.Less(int64(time.Since(start)), int64(cfg.HeartbeatReplyTimeout+time.Second))
		require.Equal(0, hb.RTT().Samples())

		// The failed heartbeat leaves transfers alone
		ch := p.serve(ctx)
		require.Nil(p.client.Send(ctx, Request{Payload: []byte("still here"), FragmentSize: 4}))
		sr := <-ch
		require.Nil(sr.err)
		require.Equal("still here", sr.res.Text)
	})

	t.Run("alive peer", func(t *testing.T) {
		require := require.New(t)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		p := newPair(t, testConfig(), nil, nil)

		// The server answers keep-alives while it waits for INIT
		ch := p.serve(ctx)
		hb := p.client.StartHeartbeat(ctx)
		require.Same(hb, p.client.StartHeartbeat(ctx))
		require.Eventually(func() bool {
			return hb.RTT().Samples() >= 3
		}, time.Second, 10*time.Millisecond)
		require.Nil(hb.Err())

		hb.Stop()
		hb.Stop()
		require.Nil(hb.Wait())
		require.Greater(int64(hb.RTT().Smoothed()), int64(0))

		cancel()
		sr := <-ch
		require.True(errors.Is(sr.err, context.Canceled))
	})

	t.Run("stopped by transfer", func(t *testing.T) {
		require := require.New(t)
		ctx := context.Background()
		p := newPair(t, testConfig(), nil, nil)

		ch := p.serve(ctx)
		hb := p.client.StartHeartbeat(ctx)
		require.Nil(p.client.Send(ctx, Request{Payload: []byte("bye"), FragmentSize: 1}))
		require.Nil(hb.Wait())
		sr := <-ch
		require.Nil(sr.err)
		require.Equal("bye", sr.res.Text)
	})
}
