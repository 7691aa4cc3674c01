package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	require.Equal(t, http.StatusNotFound, HTTPStatus(AsErrNotFound("trial %d", 5)))
	require.Equal(t, http.StatusBadRequest, HTTPStatus(AsValidationError("bad id %q", "abc")))
	require.Equal(t, http.StatusServiceUnavailable,
		HTTPStatus(errors.Wrap(AsErrUnavailable("master"), "fetching")))
	require.Equal(t, http.StatusBadGateway, HTTPStatus(AsErrUpstream("decoding response")))
	require.Equal(t, http.StatusTeapot, HTTPStatus(echo.NewHTTPError(http.StatusTeapot)))
	require.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("boom")))
}

func TestRouteAndErrorHandler(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = JSONErrorHandler
	e.GET("/ok", Route(func(c echo.Context) (interface{}, error) {
		return map[string]int{"id": 7}, nil
	}))
	e.GET("/empty", Route(func(c echo.Context) (interface{}, error) {
		return nil, nil
	}))
	missing := Route(func(c echo.Context) (interface{}, error) {
		return nil, AsErrNotFound("trial %d", 5)
	})
	e.GET("/missing", missing)
	e.HEAD("/missing", missing)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"id": 7}`, rec.Body.String())

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/empty", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "trial 5: not found", body["message"])

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/missing", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Empty(t, rec.Body.String())
}

func TestCORSWithTargetedOrigin(t *testing.T) {
	e := echo.New()
	e.Use(CORSWithTargetedOrigin)
	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(echo.HeaderOrigin, "http://localhost:3000")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, "http://localhost:3000",
		rec.Header().Get(echo.HeaderAccessControlAllowOrigin))

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}
