package exchange

import (
	"time"

	gobreaker "github.com/sony/gobreaker"
)

// NewBreaker builds a per-venue circuit breaker that trips on three
// consecutive failures, or when the failure ratio exceeds 5% over at
// least 20 requests, matching the teacher's breaker configuration.
func NewBreaker(venueName string) *gobreaker.CircuitBreaker {
	settings := gobreaker.Settings{
		Name:     venueName,
		Interval: 60 * time.Second,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures >= 3 {
				return true
			}
			if counts.Requests < 20 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) > 0.05
		},
	}
	return gobreaker.NewCircuitBreaker(settings)
}
