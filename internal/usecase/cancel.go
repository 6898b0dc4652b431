package usecase

import "sync/atomic"

// CancelFlag is a thread-safe, one-way stop request.
type CancelFlag struct {
	set atomic.Bool
}

// Cancel requests a stop before the next record.
func (f *CancelFlag) Cancel() {
	f.set.Store(true)
}

// Cancelled reports whether Cancel has been called.
func (f *CancelFlag) Cancelled() bool {
	return f.set.Load()
}
