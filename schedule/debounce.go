package schedule

import (
	"sync"
	"time"
)

// Debouncer runs the last scheduled callback once no other callback has been
// scheduled for its delay. At most one callback is pending at any time.
type Debouncer struct {
	clock Clock
	delay time.Duration

	mu    sync.Mutex
	gen   uint64
	timer Timer
}

// NewDebouncer returns a Debouncer firing after delay on clock.
func NewDebouncer(clock Clock, delay time.Duration) *Debouncer {
	return &Debouncer{clock: clock, delay: delay}
}

// Delay returns the quiet window of the debouncer.
func (d *Debouncer) Delay() time.Duration {
	return d.delay
}

// Schedule cancels the pending callback, if any, and schedules fn.
func (d *Debouncer) Schedule(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = d.clock.AfterFunc(d.delay, func() {
		d.mu.Lock()
		// A callback already handed to the event loop can outlive its
		// timer; the generation tells whether it was superseded.
		if gen != d.gen {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()
		fn()
	})
}

// Cancel drops the pending callback. It reports whether one was pending.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.gen++
	if d.timer == nil {
		return false
	}
	d.timer.Stop()
	d.timer = nil
	return true
}

// Pending reports whether a callback is waiting to run.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}
