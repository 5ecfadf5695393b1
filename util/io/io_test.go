package io

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

type shortWriter struct {
	buf bytes.Buffer
}

func (sw *shortWriter) Write(b []byte) (int, error) {
	if len(b) > 2 {
		b = b[:2]
	}
	return sw.buf.Write(b)
}

func TestWriteFull(t *testing.T) {
	require := require.New(t)
	sw := &shortWriter{}
	require.Nil(WriteFull(sw, []byte("Hello, world!")))
	require.Equal("Hello, world!", sw.buf.String())
}

func TestWriteChunks(t *testing.T) {
	require := require.New(t)
	buf := &bytes.Buffer{}
	n, err := WriteChunks(buf, [][]byte{[]byte("HELL"), []byte("O WO"), []byte("RLD")})
	require.Nil(err)
	require.EqualValues(11, n)
	require.Equal("HELLO WORLD", buf.String())
}
