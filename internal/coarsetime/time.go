// Package coarsetime provides a clock refreshed every 10ms by a background
// goroutine. Connection bookkeeping reads it on every read and write, where
// time.Now would dominate small replies.
package coarsetime

import (
	"sync/atomic"
	"time"
)

// Resolution is the refresh interval of the clock.
const Resolution = 10 * time.Millisecond

var now atomic.Int64

func init() {
	now.Store(time.Now().UnixNano())

	ticker := time.NewTicker(Resolution)
	go func() {
		for t := range ticker.C {
			now.Store(t.UnixNano())
		}
	}()
}

// Now returns the current time, at most Resolution old.
func Now() time.Time {
	return time.Unix(0, now.Load())
}

// Since returns the coarse time elapsed since t.
func Since(t time.Time) time.Duration {
	return Now().Sub(t)
}
