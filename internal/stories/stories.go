// Package stories serves WebUI components rendered with fixture data, for visual testing.
package stories

import (
	"net/http"
	"path"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"

	"github.com/determined-ai/trialview/internal/fixtures"
	"github.com/determined-ai/trialview/internal/webui"
)

// BasePath is the route under which stories are served.
const BasePath = "/det/stories"

// Story renders one component in one state.
type Story struct {
	Component string
	Name      string
	render    func(clock clockwork.Clock) (interface{}, error)
}

// Path is the route of the story.
func (s Story) Path() string {
	return path.Join(BasePath, s.Component, s.Name)
}

type storyLink struct {
	Label string
	Path  string
}

type indexPage struct {
	Layout  webui.Layout
	Stories []storyLink
}

type infoBoxPage struct {
	Layout  webui.Layout
	InfoBox webui.InfoBox
}

// All lists every story.
var All = []Story{
	{
		Component: "ExperimentInfoBox",
		Name:      "state",
		render: func(clock clockwork.Clock) (interface{}, error) {
			e, err := fixtures.ExperimentInfoBoxSample(clock)
			if err != nil {
				return nil, err
			}
			return infoBoxPage{
				Layout:  webui.Layout{Title: "ExperimentInfoBox"},
				InfoBox: webui.NewExperimentInfoBox(e, clock.Now()),
			}, nil
		},
	},
}

// RegisterRoutes adds the story index and every story to the server.
func RegisterRoutes(e *echo.Echo, clock clockwork.Clock) {
	links := make([]storyLink, 0, len(All))
	for _, s := range All {
		s := s
		links = append(links, storyLink{Label: s.Component + " / " + s.Name, Path: s.Path()})
		e.GET(s.Path(), func(c echo.Context) error {
			data, err := s.render(clock)
			if err != nil {
				return err
			}
			return c.Render(http.StatusOK, webui.StoryPage, data)
		})
	}

	e.GET(BasePath, func(c echo.Context) error {
		return c.Render(http.StatusOK, webui.StoryIndexPage, indexPage{
			Layout:  webui.Layout{Title: "Stories"},
			Stories: links,
		})
	})
}
