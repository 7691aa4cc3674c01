package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Route converts a handler that returns a value into an echo handler that serves it as JSON.
// Errors are left for the HTTP error handler to classify.
func Route(handler func(c echo.Context) (interface{}, error)) echo.HandlerFunc {
	return func(c echo.Context) error {
		result, err := handler(c)
		if err != nil {
			return err
		}
		if result == nil {
			return c.NoContent(http.StatusNoContent)
		}
		return c.JSON(http.StatusOK, result)
	}
}
