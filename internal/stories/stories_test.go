package stories

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/determined-ai/trialview/internal/webui"
)

func newTestServer(t *testing.T) *echo.Echo {
	renderer, err := webui.NewRenderer()
	require.NoError(t, err)
	e := echo.New()
	e.Renderer = renderer
	RegisterRoutes(e, clockwork.NewFakeClockAt(time.Date(2020, 5, 1, 10, 0, 0, 0, time.UTC)))
	return e
}

func get(e *echo.Echo, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestStoryIndex(t *testing.T) {
	rec := get(newTestServer(t), "/det/stories")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(),
		`<a href="/det/stories/ExperimentInfoBox/state">ExperimentInfoBox / state</a>`)
}

func TestExperimentInfoBoxStory(t *testing.T) {
	rec := get(newTestServer(t), "/det/stories/ExperimentInfoBox/state")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	require.Contains(t, body, "<h1>ExperimentInfoBox</h1>")
	require.Contains(t, body, "<dt>Best Validation</dt><dd>0.023</dd>")
	require.Contains(t, body, "<dt>User</dt><dd>hamid</dd>")
	require.Contains(t, body, "<dt>Trials</dt><dd>1</dd>")
	require.Contains(t, body, "<dt>Hyperparameters</dt><dd>None</dd>")
}
