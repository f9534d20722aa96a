// Package clock provides indirection for accessing current time.
package clock

import "time"

// Now returns current wall clock time. Components that need a controllable
// clock take a `func() time.Time` option defaulting to Now.
func Now() time.Time {
	return time.Now() //nolint:forbidigo
}

// Since returns time elapsed since the given timestamp.
func Since(t time.Time) time.Duration {
	return Now().Sub(t)
}
