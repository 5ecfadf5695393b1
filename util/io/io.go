package io

import "io"

// WriteFull writes every byte of buf, retrying short writes.
func WriteFull(w io.Writer, buf []byte) error {
	written := 0
	for written < len(buf) {
		n, err := w.Write(buf[written:])
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		written += n
	}
	return nil
}

// WriteChunks writes each chunk in order and returns the total written.
func WriteChunks(w io.Writer, chunks [][]byte) (int64, error) {
	var n int64
	for _, c := range chunks {
		if err := WriteFull(w, c); err != nil {
			return n, err
		}
		n += int64(len(c))
	}
	return n, nil
}
