package detapi

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"

	"github.com/determined-ai/trialview/internal/api"
)

// APIError is a non-2xx response from the master.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s returned %d %s",
			e.Endpoint, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("%s returned %d: %s", e.Endpoint, e.StatusCode, e.Message)
}

// Unwrap lets errors.Is match the api error categories.
func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusNotFound:
		return api.ErrNotFound
	case e.StatusCode == http.StatusBadRequest:
		return api.ErrInvalid
	case e.StatusCode >= 500:
		return api.ErrUnavailable
	default:
		return nil
	}
}

// IsNotFound reports whether the error is a 404-style failure, as opposed to any other failure
// to fetch.
func IsNotFound(err error) bool {
	return err != nil && errors.Is(err, api.ErrNotFound)
}

func errorClass(err error) string {
	switch {
	case IsNotFound(err):
		return "not_found"
	case errors.Is(err, api.ErrInvalid):
		return "invalid"
	case errors.Is(err, api.ErrUnavailable):
		return "unavailable"
	case errors.Is(err, api.ErrUpstream):
		return "upstream"
	default:
		return "other"
	}
}
