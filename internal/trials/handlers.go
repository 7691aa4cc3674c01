package trials

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/determined-ai/trialview/internal/api"
	"github.com/determined-ai/trialview/internal/prom"
	"github.com/determined-ai/trialview/internal/webui"
	"github.com/determined-ai/trialview/pkg/ws"
)

const (
	pagePath   = "/det/trials/:trialId"
	viewPath   = "/api/v1/trial-views/:trialId"
	streamPath = "/ws/trial-views/"
)

// sameView ignores the refresh timestamp so pushes only happen when something visible changes.
var sameView = cmpopts.IgnoreFields(View{}, "UpdatedAt")

type trialPage struct {
	Layout webui.Layout
	View   View
}

// Handler serves the trial detail view as an HTML page, as JSON and as a websocket stream.
type Handler struct {
	log        *log.Entry
	registry   *Registry
	isNotFound func(error) bool
	refresh    time.Duration
	upgrader   websocket.Upgrader
}

// NewHandler returns a handler resolving views from the registry's watchers; isNotFound
// classifies fetch errors and refresh is how often a browser should reload the page.
func NewHandler(registry *Registry, isNotFound func(error) bool, refresh time.Duration) *Handler {
	return &Handler{
		log:        log.WithField("component", "trial-views"),
		registry:   registry,
		isNotFound: isNotFound,
		refresh:    refresh,
	}
}

// RegisterRoutes adds the trial view routes to the server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET(pagePath, h.getPage)
	e.GET(viewPath, api.Route(h.getView))
	e.GET(streamPath+":trialId", h.streamView)
}

// View resolves the current view of a trial route parameter, mounting a watcher for valid ids.
func (h *Handler) View(param string) View {
	id, ok := ParseTrialID(param)
	if !ok {
		return InvalidView(param)
	}
	return Resolve(param, h.registry.Watch(id).State(), h.isNotFound)
}

func (h *Handler) getPage(c echo.Context) error {
	param := c.Param("trialId")
	v := h.View(param)
	prom.ViewsRendered.WithLabelValues(string(v.Kind)).Inc()

	layout := webui.Layout{Title: v.Title, HideTitle: v.HideTitle}
	if v.Kind != ViewInvalidID {
		layout.RefreshSeconds = int(math.Max(1, math.Ceil(h.refresh.Seconds())))
		layout.StreamPath = streamPath + param
	}
	return c.Render(v.status(), webui.TrialDetailsPage, trialPage{Layout: layout, View: v})
}

func (h *Handler) getView(c echo.Context) (interface{}, error) {
	v := h.View(c.Param("trialId"))
	prom.ViewsRendered.WithLabelValues(string(v.Kind)).Inc()
	return v, nil
}

func (h *Handler) streamView(c echo.Context) error {
	param := c.Param("trialId")
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader has already replied to the client.
		h.log.WithError(err).Debug("websocket upgrade failed")
		return nil
	}
	s := ws.NewStream[View]("trial-view-"+param, conn)
	defer func() {
		if err := s.Close(); err != nil {
			h.log.WithError(err).Debug("closing trial view stream")
		}
	}()

	id, ok := ParseTrialID(param)
	if !ok {
		s.Send(InvalidView(param))
		<-s.Done
		return nil
	}

	var last *View
	for {
		w, release := h.registry.Acquire(id)
		finished := h.pump(c.Request().Context(), s, w, param, &last)
		release()
		if finished {
			return nil
		}
	}
}

// pump pushes the watcher's view on every visible change. It returns false if the watcher was
// unmounted while the stream is still open, and true once the stream is finished.
func (h *Handler) pump(
	ctx context.Context, s *ws.Stream[View], w *Watcher, param string, last **View,
) bool {
	changes, unsubscribe := w.Subscribe()
	defer unsubscribe()

	for {
		v := Resolve(param, w.State(), h.isNotFound)
		if *last == nil || !cmp.Equal(**last, v, sameView) {
			if !s.Send(v) {
				return true
			}
			prom.ViewsRendered.WithLabelValues(string(v.Kind)).Inc()
			*last = &v
		}

		select {
		case <-changes:
		case <-w.Stopped():
			return false
		case <-s.Done:
			return true
		case <-ctx.Done():
			return true
		}
	}
}

func (v View) status() int {
	switch v.Kind {
	case ViewInvalidID:
		return http.StatusBadRequest
	case ViewNotFound:
		return http.StatusNotFound
	case ViewFetchError:
		return http.StatusBadGateway
	default:
		return http.StatusOK
	}
}
