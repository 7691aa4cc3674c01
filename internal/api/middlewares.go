package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// CORSWithTargetedOrigin allows cross-origin reads from whatever origin the request came from.
// It is only installed when enable_cors is set, for WebUI development servers.
func CORSWithTargetedOrigin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		origin := c.Request().Header.Get(echo.HeaderOrigin)
		if origin == "" {
			return next(c)
		}
		h := c.Response().Header()
		h.Add(echo.HeaderVary, echo.HeaderOrigin)
		h.Set(echo.HeaderAccessControlAllowOrigin, origin)
		h.Set(echo.HeaderAccessControlAllowCredentials, "true")
		if c.Request().Method == http.MethodOptions {
			h.Set(echo.HeaderAccessControlAllowMethods, "GET, HEAD, OPTIONS")
			h.Set(echo.HeaderAccessControlAllowHeaders, "Authorization, Content-Type")
			return c.NoContent(http.StatusNoContent)
		}
		return next(c)
	}
}
