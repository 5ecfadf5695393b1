package math

import "time"

func AbsDuration(v time.Duration) time.Duration {
	if v < 0 {
		return -v
	}
	return v
}
