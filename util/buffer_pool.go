package util

import "sync"

// BufferPool hands out fixed-size byte slices. With a non-zero prealloc size
// the pool is bounded and Get blocks until a buffer is returned.
type BufferPool struct {
	bufferSize   int
	preallocSize int

	buffers  [][]byte
	bufferCh chan []byte

	mu sync.Mutex
}

func NewBufferPool(bufferSize int, preallocSize int) *BufferPool {
	if bufferSize <= 0 {
		panic("buffer size must be greater than zero")
	}
	if preallocSize < 0 {
		preallocSize = 0
	}
	bp := &BufferPool{
		bufferSize:   bufferSize,
		preallocSize: preallocSize,
	}
	if preallocSize > 0 {
		bp.bufferCh = make(chan []byte, preallocSize)
		for i := 0; i < preallocSize; i++ {
			bp.bufferCh <- make([]byte, bufferSize)
		}
	}
	return bp
}

func (bp *BufferPool) Size() int {
	return bp.bufferSize
}

func (bp *BufferPool) Get() []byte {
	if bp.preallocSize > 0 {
		return <-bp.bufferCh
	}
	bp.mu.Lock()
	defer bp.mu.Unlock()
	if n := len(bp.buffers); n > 0 {
		b := bp.buffers[n-1]
		bp.buffers = bp.buffers[:n-1]
		return b
	}
	return make([]byte, bp.bufferSize)
}

// Put returns b to the pool. b may have been resliced, but its capacity must
// still match the pool's buffer size.
func (bp *BufferPool) Put(b []byte) {
	if cap(b) != bp.bufferSize {
		panic("trying to put buffer with invalid size into pool")
	}
	b = b[:bp.bufferSize]
	if bp.preallocSize > 0 {
		bp.bufferCh <- b
		return
	}
	bp.mu.Lock()
	bp.buffers = append(bp.buffers, b)
	bp.mu.Unlock()
}
