// Package engine applies automation rule actions against the task store,
// running the bounded cascade of follow-up events each action may raise.
package engine

import "time"

// Clock is a testable source of now. Everything time-based in the engine
// consumes it so tests can pin the wall clock.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
