// Package schedule decides when a block's source is transformed: right away,
// after a quiet window, or not at all.
package schedule

import "time"

// Timer is a pending callback.
type Timer interface {
	// Stop prevents the callback from running. It returns false if the
	// callback already ran or the timer was already stopped.
	Stop() bool
}

// Clock schedules callbacks.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type clock struct {
	dispatch func(func())
}

// NewClock returns a Clock backed by time.AfterFunc. Expired callbacks are
// handed to dispatch, which is expected to run them on the host's event
// loop. A nil dispatch runs them on the timer goroutine.
func NewClock(dispatch func(func())) Clock {
	return clock{dispatch: dispatch}
}

func (c clock) AfterFunc(d time.Duration, f func()) Timer {
	if c.dispatch == nil {
		return time.AfterFunc(d, f)
	}
	return time.AfterFunc(d, func() { c.dispatch(f) })
}
