package api

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// Error categories. Wrap one of these and HTTPStatus serves the error with the category's code.
var (
	ErrInvalid     = errors.New("bad request")
	ErrNotFound    = errors.New("not found")
	ErrUnavailable = errors.New("service unavailable")
	// ErrUpstream marks a master response that arrived but could not be used.
	ErrUpstream = errors.New("bad upstream response")
)

var categories = []struct {
	err  error
	code int
}{
	{ErrInvalid, http.StatusBadRequest},
	{ErrNotFound, http.StatusNotFound},
	{ErrUnavailable, http.StatusServiceUnavailable},
	{ErrUpstream, http.StatusBadGateway},
}

// AsValidationError wraps ErrInvalid with a formatted message.
func AsValidationError(msg string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalid, msg, args...)
}

// AsErrNotFound wraps ErrNotFound with a formatted message.
func AsErrNotFound(msg string, args ...interface{}) error {
	return errors.Wrapf(ErrNotFound, msg, args...)
}

// AsErrUnavailable wraps ErrUnavailable with a formatted message.
func AsErrUnavailable(msg string, args ...interface{}) error {
	return errors.Wrapf(ErrUnavailable, msg, args...)
}

// AsErrUpstream wraps ErrUpstream with a formatted message.
func AsErrUpstream(msg string, args ...interface{}) error {
	return errors.Wrapf(ErrUpstream, msg, args...)
}

// HTTPStatus returns the status code err should be served with. Uncategorized errors are 500s.
func HTTPStatus(err error) int {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	for _, c := range categories {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return http.StatusInternalServerError
}

// JSONErrorHandler is an echo.HTTPErrorHandler writing {"message": ...} bodies. Server-side
// failures are logged.
func JSONErrorHandler(err error, c echo.Context) {
	code := HTTPStatus(err)
	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg = fmt.Sprint(he.Message)
	}
	if code >= http.StatusInternalServerError {
		c.Logger().Error(err)
	}
	if c.Response().Committed {
		return
	}

	var werr error
	if c.Request().Method == http.MethodHead {
		werr = c.NoContent(code)
	} else {
		werr = c.JSON(code, map[string]string{"message": msg})
	}
	if werr != nil {
		c.Logger().Error(werr)
	}
}
