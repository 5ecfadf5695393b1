package util

import "sync/atomic"

type Counter struct {
	v uint64
}

func (c *Counter) Next() uint64 {
	return atomic.AddUint64(&c.v, 1)
}

func (c *Counter) Load() uint64 {
	return atomic.LoadUint64(&c.v)
}
