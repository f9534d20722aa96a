// Package faketime fakes time for tests.
package faketime

import (
	"sync/atomic"
	"time"
)

// Frozen returns a time source that always returns t.
func Frozen(t time.Time) func() time.Time {
	return func() time.Time {
		return t
	}
}

// AutoAdvance returns a time source that returns 'start + (n-1)*dt' where n
// is the number of invocations so far, producing the series
// [start, start+dt, start+2dt, ...].
func AutoAdvance(start time.Time, dt time.Duration) func() time.Time {
	var calls atomic.Int64

	return func() time.Time {
		n := calls.Add(1) - 1

		return start.Add(time.Duration(n) * dt)
	}
}
