package connectors

import (
	"fmt"
	"time"
)

// ThrottleError сигнализирует ReliabilityWrapper, что провайдер прислал
// Retry-After и следующая попытка должна ждать ровно столько.
type ThrottleError struct {
	RetryAfter time.Duration
	Cause      error
}

func (e *ThrottleError) Error() string {
	return fmt.Sprintf("throttled: retry after %v (cause: %v)", e.RetryAfter, e.Cause)
}
