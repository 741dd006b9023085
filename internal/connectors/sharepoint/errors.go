package sharepoint

import (
	"errors"
	"fmt"
	"io"
	"net/http"
)

// maxErrorBody bounds how much of an error response is kept for the
// message.
const maxErrorBody = 512

// APIError is a non-2xx response from the SharePoint REST API.
type APIError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("sharepoint: %s", e.Status)
	}
	return fmt.Sprintf("sharepoint: %s: %s", e.Status, e.Body)
}

// newAPIError drains up to maxErrorBody bytes of the response body into
// the error. The caller still owns closing the body.
func newAPIError(resp *http.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &APIError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       string(body),
	}
}

// IsAuthError reports whether the error is a credential rejection,
// which must not be retried.
func IsAuthError(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden
}

// IsRateLimited reports whether the error is a 429 response.
func IsRateLimited(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests
}
