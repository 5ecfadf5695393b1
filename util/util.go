package util

// AsyncNotify signals ch without blocking. A pending signal is not duplicated.
func AsyncNotify(ch chan<- struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// AsyncNotifyErr delivers err to ch unless an error is already pending.
func AsyncNotifyErr(ch chan<- error, err error) {
	select {
	case ch <- err:
	default:
	}
}
