package ragdex

import "fmt"

// APIError is a non-2xx response from the service.
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ragdex: %s (%s, http %d)", e.Message, e.Code, e.StatusCode)
}

// IsNotFound reports whether err is a 404 API error.
func IsNotFound(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.StatusCode == 404
}

// IsQuotaExceeded reports whether err is a 402 API error: every configured
// chat model has run out of quota.
func IsQuotaExceeded(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.StatusCode == 402
}
