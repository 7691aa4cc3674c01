package webui

import (
	"html/template"
	"io"

	"github.com/Masterminds/sprig/v3"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// Layout is the page chrome shared by every page.
type Layout struct {
	Title     string
	HideTitle bool
	// RefreshSeconds, if set, makes the browser reload the page on that cadence.
	RefreshSeconds int
	// StreamPath, if set, is a websocket path whose messages trigger a reload.
	StreamPath string
}

// Renderer renders the WebUI's server-side pages and components.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses every page and component template.
func NewRenderer() (*Renderer, error) {
	tmpl := template.New("webui").Funcs(sprig.FuncMap())
	for _, src := range []string{tmplLayout, tmplComponents, tmplPages} {
		var err error
		if tmpl, err = tmpl.Parse(src); err != nil {
			return nil, errors.Wrap(err, "parsing webui templates")
		}
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Render implements echo.Renderer.
func (r *Renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	if r.tmpl.Lookup(name) == nil {
		return errors.Errorf("unknown template %q", name)
	}
	return errors.Wrapf(r.tmpl.ExecuteTemplate(w, name, data), "rendering %s", name)
}
