// Package search collapses bursts of query changes into one list render.
package search

import (
	"sync"
	"time"
)

// DefaultWindow is how long a query must stay unchanged before it is rendered.
const DefaultWindow = 150 * time.Millisecond

// Timer is the part of *time.Timer the debouncer needs.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc satisfies it once wrapped.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Debouncer holds a single pending query. Scheduling a new query supersedes the pending one
// and restarts the window. A timer that fires after being superseded does nothing.
type Debouncer struct {
	mu      sync.Mutex
	window  time.Duration
	after   AfterFunc
	fn      func(query string)
	seq     uint64
	pending *string
	timer   Timer
	stopped bool

	// OnSupersede, if set, is called once for each pending query that is replaced.
	OnSupersede func()
}

// NewDebouncer runs fn with the latest query once window passes without a new Schedule.
func NewDebouncer(window time.Duration, fn func(query string)) *Debouncer {
	return NewDebouncerWithTimer(window, fn, realAfterFunc)
}

// NewDebouncerWithTimer is NewDebouncer with a custom timer source.
func NewDebouncerWithTimer(window time.Duration, fn func(query string), after AfterFunc) *Debouncer {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Debouncer{window: window, after: after, fn: fn}
}

// Schedule replaces any pending query with query.
func (d *Debouncer) Schedule(query string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	if d.pending != nil && d.OnSupersede != nil {
		d.OnSupersede()
	}
	d.seq++
	seq := d.seq
	q := query
	d.pending = &q
	d.timer = d.after(d.window, func() { d.fire(seq) })
}

func (d *Debouncer) fire(seq uint64) {
	d.mu.Lock()
	if d.stopped || seq != d.seq || d.pending == nil {
		d.mu.Unlock()
		return
	}
	q := *d.pending
	d.pending = nil
	d.timer = nil
	d.mu.Unlock()

	d.fn(q)
}

// Flush runs the pending query now, if any, and reports whether it ran.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	if d.stopped || d.pending == nil {
		d.mu.Unlock()
		return false
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	q := *d.pending
	d.pending = nil
	d.timer = nil
	d.seq++
	d.mu.Unlock()

	d.fn(q)
	return true
}

// Pending reports whether a query is waiting for its window.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}

// Stop drops any pending query. Later calls to Schedule are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.stopped = true
	d.pending = nil
	d.timer = nil
}
