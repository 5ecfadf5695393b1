package transport

import (
	"context"
	"datagram-arq/protocol"
	uerrors "datagram-arq/util/errors"
	"datagram-arq/util/mocks"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConn(t *testing.T) {
	ctx := context.Background()
	p1, p2 := mocks.PacketConn()
	c1 := New(p1, DefaultConfig())
	c2 := New(p2, DefaultConfig())

	control := c2.Subscribe()
	keepalive := c2.Subscribe(protocol.KindKeepAlive)

	t.Run("demultiplex", func(t *testing.T) {
		require := require.New(t)
		require.Nil(c1.WriteFrame(protocol.NewKeepAliveFrame(), c2.LocalAddr()))
		require.Nil(c1.WriteFrame(protocol.NewFinishedFrame(), c2.LocalAddr()))

		p, err := keepalive.Receive(ctx, time.Second)
		require.Nil(err)
		require.Nil(p.Err)
		require.Equal(protocol.KindKeepAlive, p.Kind())
		require.Equal(c1.LocalAddr().String(), p.Addr.String())

		p, err = control.Receive(ctx, time.Second)
		require.Nil(err)
		require.Equal(protocol.KindFinished, p.Kind())

		_, err = keepalive.Receive(ctx, 20*time.Millisecond)
		require.True(uerrors.IsDeadlineError(err))
	})

	t.Run("malformed", func(t *testing.T) {
		require := require.New(t)
		require.Nil(c1.Write([]byte{1, 2, 3}, c2.LocalAddr()))
		p, err := control.Receive(ctx, time.Second)
		require.Nil(err)
		require.True(errors.Is(p.Err, protocol.ErrMalformedFrame))
	})

	t.Run("unsubscribe", func(t *testing.T) {
		require := require.New(t)
		keepalive.Unsubscribe()
		require.Nil(c1.WriteFrame(protocol.NewKeepAliveFrame(), c2.LocalAddr()))
		p, err := control.Receive(ctx, time.Second)
		require.Nil(err)
		require.Equal(protocol.KindKeepAlive, p.Kind())
	})

	t.Run("drain", func(t *testing.T) {
		require := require.New(t)
		for i := 0; i < 3; i++ {
			require.Nil(c1.WriteFrame(protocol.NewAckInitFrame(), c2.LocalAddr()))
		}
		require.Eventually(func() bool {
			return len(control.C) == 3
		}, time.Second, 5*time.Millisecond)
		require.Equal(3, control.Drain())
		require.Equal(0, control.Drain())
	})

	t.Run("context", func(t *testing.T) {
		require := require.New(t)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := control.Receive(cctx, 0)
		require.Equal(context.Canceled, err)
	})

	t.Run("too large", func(t *testing.T) {
		require := require.New(t)
		payload := make([]byte, protocol.MaxPayloadSize+1)
		err := c1.WriteFrame(protocol.NewDataFrame(0, 0, payload), c2.LocalAddr())
		require.True(errors.Is(err, protocol.ErrFrameTooLarge))
	})

	t.Run("close", func(t *testing.T) {
		require := require.New(t)
		require.Nil(c1.Close())
		require.Equal(ErrClosed, c1.Close())
		require.Equal(ErrClosed, c1.WriteFrame(protocol.NewKeepAliveFrame(), c2.LocalAddr()))
		require.Nil(c2.Close())
		_, err := control.Receive(ctx, time.Second)
		require.Equal(ErrClosed, err)
	})
}

func TestListen(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.TTL = 32

	server, err := Listen("udp4", "127.0.0.1:0", cfg)
	require.Nil(err)
	defer server.Close()
	client, err := Listen("udp4", "127.0.0.1:0", cfg)
	require.Nil(err)
	defer client.Close()

	sub := server.Subscribe()
	raddr := server.LocalAddr().(*net.UDPAddr)
	require.Nil(client.WriteFrame(protocol.NewInitFrame(3, protocol.ContentText), raddr))

	p, err := sub.Receive(ctx, time.Second)
	require.Nil(err)
	require.Equal(protocol.KindInit, p.Kind())
	require.Equal(int32(3), p.Seq())
	require.Equal(client.LocalAddr().String(), p.Addr.String())
}
