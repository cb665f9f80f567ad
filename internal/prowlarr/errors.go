package prowlarr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured indicates the aggregator URL or API key is absent.
	ErrNotConfigured = errors.New("prowlarr is not configured")

	// ErrRateLimited indicates the aggregator returned 429.
	ErrRateLimited = errors.New("prowlarr rate limit exceeded")
)

// StatusError is returned for non-2xx aggregator responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("prowlarr request failed with status %d: %s", e.StatusCode, e.Body)
}

// IsNotConfigured reports whether the error indicates missing configuration.
func IsNotConfigured(err error) bool {
	return errors.Is(err, ErrNotConfigured)
}
