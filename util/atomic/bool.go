package atomic

import "sync/atomic"

type Bool struct {
	v uint32
}

func (b *Bool) Get() bool {
	return atomic.LoadUint32(&b.v) == 1
}

func (b *Bool) Set(v bool) {
	if v {
		atomic.StoreUint32(&b.v, 1)
	} else {
		atomic.StoreUint32(&b.v, 0)
	}
}

// CompareAndSwap sets the value to new if it currently equals old.
func (b *Bool) CompareAndSwap(old, new bool) bool {
	var o, n uint32
	if old {
		o = 1
	}
	if new {
		n = 1
	}
	return atomic.CompareAndSwapUint32(&b.v, o, n)
}
