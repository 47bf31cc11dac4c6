package telegram

import (
	"errors"
	"fmt"
	"strings"
)

// APIError is a structured error response from the Bot API. Callers can use
// errors.As to inspect it.
type APIError struct {
	Method      string
	StatusCode  int
	ErrorCode   int
	Description string
	RetryAfter  int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram: %s failed (%d): %s", e.Method, e.ErrorCode, e.Description)
}

// IsNotModified reports whether err is the API's rejection of an edit that
// would leave the message unchanged.
func IsNotModified(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode == 400 && strings.Contains(apiErr.Description, "message is not modified")
	}
	return false
}

// IsRateLimited reports whether err is a 429 from the API.
func IsRateLimited(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode == 429
	}
	return false
}
