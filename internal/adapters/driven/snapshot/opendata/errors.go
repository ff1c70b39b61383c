package opendata

import (
	"errors"
	"fmt"
)

// HTTPError is a non-success response from the snapshot endpoint.
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("opendata: HTTP %d (URL: %s)", e.StatusCode, e.URL)
}

// IsHTTPStatus reports whether err is an HTTPError with the given code.
func IsHTTPStatus(err error, code int) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == code
	}
	return false
}
