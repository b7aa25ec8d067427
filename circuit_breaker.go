package mpd

import (
	"context"
	"errors"
	"time"

	"github.com/pior/mpd/wire"
	"github.com/sony/gobreaker/v2"
)

// CircuitBreaker guards the sessions of one server.
type CircuitBreaker = gobreaker.CircuitBreaker[*wire.Response]

// CircuitBreakerSettings returns the settings used by NewCircuitBreakerConfig.
// The breaker trips when at least 3 requests were seen in the interval and 60% of them failed.
//
// Only errors count as failures: an ACK is a complete reply from a healthy server.
func CircuitBreakerSettings(name string, maxRequests uint32, interval, timeout time.Duration) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: maxRequests,
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		IsSuccessful: isBreakerSuccess,
	}
}

// NewCircuitBreakerConfig returns a function that creates circuit breakers for servers.
// This is a helper for common use cases.
func NewCircuitBreakerConfig(maxRequests uint32, interval, timeout time.Duration) func(addr string) *CircuitBreaker {
	return func(addr string) *CircuitBreaker {
		return gobreaker.NewCircuitBreaker[*wire.Response](CircuitBreakerSettings(addr, maxRequests, interval, timeout))
	}
}

// isBreakerSuccess does not count cancellations by the caller against the
// server.
func isBreakerSuccess(err error) bool {
	return err == nil || errors.Is(err, context.Canceled)
}
