package trials

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/determined-ai/trialview/internal/api"
	"github.com/determined-ai/trialview/internal/webui"
)

func newTestServer(t *testing.T, m *fakeMaster) (*echo.Echo, *Registry) {
	renderer, err := webui.NewRenderer()
	require.NoError(t, err)

	e := echo.New()
	e.Renderer = renderer
	e.HTTPErrorHandler = api.JSONErrorHandler
	r := newTestRegistry(t, m, 8, clockwork.NewFakeClock())
	NewHandler(r, isNotFound, 5*time.Second).RegisterRoutes(e)
	return e, r
}

func get(e *echo.Echo, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestPageInvalidIDNeverMounts(t *testing.T) {
	e, r := newTestServer(t, newFakeMaster())

	rec := get(e, "/det/trials/abc")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "Bad trial ID abc")
	require.NotContains(t, rec.Body.String(), "http-equiv")
	require.Equal(t, 0, r.Len())

	rec = get(e, "/api/v1/trial-views/abc")
	require.Equal(t, http.StatusOK, rec.Code)
	var v View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	require.Equal(t, ViewInvalidID, v.Kind)
	require.Equal(t, 0, r.Len())
}

func TestPageLoaded(t *testing.T) {
	e, r := newTestServer(t, newFakeMaster(7))

	var rec *httptest.ResponseRecorder
	require.Eventually(t, func() bool {
		rec = get(e, "/det/trials/7")
		return rec.Code == http.StatusOK && strings.Contains(rec.Body.String(), "<h1>Trial 7</h1>")
	}, waitFor, 10*tick)

	body := rec.Body.String()
	require.Contains(t, body, `<a href="/det/trials">Trials</a>`)
	require.Contains(t, body, "<span>7</span>")
	for _, title := range []string{"Info Box", "Chart", "Steps"} {
		require.Contains(t, body, "<h2>"+title+"</h2>")
	}
	require.Contains(t, body, `<meta http-equiv="refresh" content="5">`)
	require.Contains(t, body, `data-stream="/ws/trial-views/7"`)
	require.Equal(t, 1, r.Len())
}

func TestPageNotFound(t *testing.T) {
	e, _ := newTestServer(t, newFakeMaster())
	var rec *httptest.ResponseRecorder
	require.Eventually(t, func() bool {
		rec = get(e, "/det/trials/5")
		return rec.Code == http.StatusNotFound
	}, waitFor, 10*tick)
	require.Contains(t, rec.Body.String(), "Trial 5 not found.")
	require.Contains(t, rec.Body.String(), "<title>Not Found</title>")
	require.NotContains(t, rec.Body.String(), "<h1>")
}

func TestViewJSON(t *testing.T) {
	e, _ := newTestServer(t, newFakeMaster(7))
	var v View
	require.Eventually(t, func() bool {
		rec := get(e, "/api/v1/trial-views/7")
		if rec.Code != http.StatusOK || json.Unmarshal(rec.Body.Bytes(), &v) != nil {
			return false
		}
		return v.Kind == ViewLoaded
	}, waitFor, 10*tick)
	require.Equal(t, "Trial 7", v.Title)
	require.Equal(t, 7, v.Trial.ID)
	require.Len(t, v.Breadcrumb, 2)
}

func TestStreamPushesViews(t *testing.T) {
	e, _ := newTestServer(t, newFakeMaster(7))
	ts := httptest.NewServer(e)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/trial-views/7"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(waitFor)))
	for {
		var v View
		require.NoError(t, conn.ReadJSON(&v))
		if v.Kind == ViewLoaded {
			require.Equal(t, "Trial 7", v.Title)
			return
		}
		require.Equal(t, ViewLoading, v.Kind)
	}
}

func TestStreamInvalidID(t *testing.T) {
	e, r := newTestServer(t, newFakeMaster())
	ts := httptest.NewServer(e)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/trial-views/abc"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(waitFor)))
	var v View
	require.NoError(t, conn.ReadJSON(&v))
	require.Equal(t, ViewInvalidID, v.Kind)
	require.Equal(t, "Bad trial ID abc", v.Message)
	require.Equal(t, 0, r.Len())
}
