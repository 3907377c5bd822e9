package circuitbreaker

import "time"

// Config holds the configuration for a circuit breaker.
type Config struct {
	// Name identifies the circuit breaker in logs and metrics.
	Name string

	// Enabled determines whether the circuit breaker is active.
	// When false, New returns nil and Execute passes through directly.
	Enabled bool

	// MaxRequests is the number of probe requests allowed while half-open.
	// Zero means one.
	MaxRequests uint

	// Interval clears the failure counts periodically while closed.
	// Zero keeps the counts until the state changes.
	Interval time.Duration

	// Timeout is how long the breaker stays open before probing.
	// Zero means 60 seconds.
	Timeout time.Duration

	// FailureThreshold is the number of consecutive failures that opens the breaker.
	FailureThreshold uint

	// IsFailure decides whether an error counts against the breaker.
	// Nil counts every non-nil error.
	IsFailure func(err error) bool

	// OnStateChange is called after every transition.
	OnStateChange func(name string, from, to State)
}
