package exchange

import (
	"golang.org/x/time/rate"
)

// NewRESTLimiter builds a token-bucket limiter pacing outbound REST calls
// (order entry, cancels, order-status polls) to a single venue, on top of
// the risk manager's independent orders-per-second gate.
func NewRESTLimiter(requestsPerSecond int, burst int) *rate.Limiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 10
	}
	if burst <= 0 {
		burst = requestsPerSecond
	}
	return rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}
