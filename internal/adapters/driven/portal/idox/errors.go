package idox

import (
	"errors"
	"fmt"
)

// HTTPError is a non-success response from the portal.
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("idox: HTTP %d (URL: %s)", e.StatusCode, e.URL)
}

// IsServerError reports whether err is a 5xx or 429 response. These count
// against the circuit breaker; other statuses do not.
func IsServerError(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= 500 || httpErr.StatusCode == 429
	}
	return false
}
