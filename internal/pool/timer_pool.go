// Package pool recycles timers across the link driver's poll waits, so a
// bus exchange that polls many times does not allocate a timer per retry.
package pool

import (
	"sync"
	"time"
)

var timers sync.Pool

// GetTimer returns a timer armed for d. Recycle it with PutTimer once its
// channel is no longer referenced.
func GetTimer(d time.Duration) *time.Timer {
	v := timers.Get()
	if v == nil {
		return time.NewTimer(d)
	}

	t := v.(*time.Timer)
	if t.Reset(d) {
		// The timer was still armed. Drain a stale fire so the caller
		// only ever observes the new deadline.
		select {
		case <-t.C:
		default:
		}
	}
	return t
}

// PutTimer stops t and returns it to the pool. t must not be touched
// afterwards.
func PutTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	timers.Put(t)
}

// Wait blocks for d on a pooled timer.
func Wait(d time.Duration) {
	t := GetTimer(d)
	<-t.C
	PutTimer(t)
}
