package transfer

import (
	"datagram-arq/util/math"
	"sync"
	"time"
)

// RTTStats tracks keep-alive round trips.
type RTTStats struct {
	sendTime time.Time

	latest   time.Duration
	min      time.Duration
	smoothed time.Duration
	variance time.Duration
	samples  int

	mu sync.RWMutex
}

func (rs *RTTStats) Latest() time.Duration {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return rs.latest
}

func (rs *RTTStats) Min() time.Duration {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return rs.min
}

func (rs *RTTStats) Var() time.Duration {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return rs.variance
}

func (rs *RTTStats) Smoothed() time.Duration {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return rs.smoothed
}

func (rs *RTTStats) Samples() int {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return rs.samples
}

func (rs *RTTStats) UpdateSend() {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.sendTime = time.Now()
}

func (rs *RTTStats) UpdateRecv() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.sendTime.IsZero() {
		return
	}
	rtt := time.Since(rs.sendTime)
	rs.sendTime = time.Time{}
	rs.latest = rtt
	rs.samples++

	if rs.min <= 0 || rs.min > rtt {
		rs.min = rtt
	}

	// Same smoothing as TCP (RFC 6298)
	if rs.smoothed <= 0 {
		rs.smoothed = rtt
	} else {
		rs.smoothed = (rs.smoothed * 7 / 8) + (rtt / 8)
	}
	if rs.variance <= 0 {
		rs.variance = rtt / 2
	} else {
		sample := math.AbsDuration(rs.smoothed - rtt)
		rs.variance = (rs.variance * 3 / 4) + (sample / 4)
	}
}
