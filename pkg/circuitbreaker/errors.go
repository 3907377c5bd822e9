package circuitbreaker

import (
	"errors"
	"fmt"
)

// ErrRejected matches every error returned without calling the protected
// function.
var ErrRejected = errors.New("circuit breaker rejected the call")

var (
	ErrCircuitOpen     = fmt.Errorf("%w: breaker is open", ErrRejected)
	ErrTooManyRequests = fmt.Errorf("%w: half-open probe limit reached", ErrRejected)
)
