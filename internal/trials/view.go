package trials

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/determined-ai/trialview/internal/rest"
	"github.com/determined-ai/trialview/pkg/model"
	"github.com/determined-ai/trialview/pkg/ptrs"
)

// ListPath is the WebUI route of the trial list that the breadcrumb links back to.
const ListPath = "/det/trials"

// notFoundTitle is the page title of every error view; the title itself is hidden.
const notFoundTitle = "Not Found"

// ViewKind names which of the mutually exclusive trial views is shown.
type ViewKind string

const (
	// ViewInvalidID is shown when the route parameter is not an integer.
	ViewInvalidID ViewKind = "INVALID_ID"
	// ViewNotFound is shown when the master has no such trial.
	ViewNotFound ViewKind = "NOT_FOUND"
	// ViewFetchError is shown for any other fetch failure.
	ViewFetchError ViewKind = "FETCH_ERROR"
	// ViewLoading is shown until the first response arrives.
	ViewLoading ViewKind = "LOADING"
	// ViewLoaded is the trial page itself.
	ViewLoaded ViewKind = "LOADED"
)

// BreadcrumbItem is one step of the breadcrumb trail. Items without a path are not links.
type BreadcrumbItem struct {
	Label string `json:"label"`
	Path  string `json:"path,omitempty"`
	Icon  string `json:"icon,omitempty"`
}

// Section is a titled region of the page.
type Section struct {
	Title string `json:"title"`
}

// View is everything needed to render the trial page for one state of its fetch.
type View struct {
	Kind       ViewKind            `json:"kind"`
	TrialID    *int                `json:"trialId,omitempty"`
	Title      string              `json:"title,omitempty"`
	HideTitle  bool                `json:"hideTitle"`
	Message    string              `json:"message,omitempty"`
	Breadcrumb []BreadcrumbItem    `json:"breadcrumb,omitempty"`
	Sections   []Section           `json:"sections,omitempty"`
	Trial      *model.TrialDetails `json:"trial,omitempty"`
	UpdatedAt  *time.Time          `json:"updatedAt,omitempty"`
}

// ParseTrialID reads a trial id from a route parameter the way the WebUI's parseInt does:
// leading whitespace and an optional sign are skipped, then the leading run of digits is read
// (hexadecimal after a "0x" prefix) and anything after it is ignored, so "7abc" and "1.5" are
// trials 7 and 1. It fails when there are no digits or the id overflows an int.
func ParseTrialID(param string) (int, bool) {
	s := strings.TrimLeftFunc(param, unicode.IsSpace)
	sign := ""
	if s != "" && (s[0] == '+' || s[0] == '-') {
		sign, s = s[:1], s[1:]
	}
	base, isDigit := 10, func(r rune) bool { return r >= '0' && r <= '9' }
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		base, isDigit, s = 16, func(r rune) bool { return unicode.Is(unicode.ASCII_Hex_Digit, r) }, s[2:]
	}
	digits := s
	if end := strings.IndexFunc(s, func(r rune) bool { return !isDigit(r) }); end >= 0 {
		digits = s[:end]
	}
	if digits == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(sign+digits, base, strconv.IntSize)
	if err != nil {
		return 0, false
	}
	return int(id), true
}

// InvalidView is the view for a route parameter that is not a trial id.
func InvalidView(param string) View {
	return View{
		Kind:      ViewInvalidID,
		Title:     notFoundTitle,
		HideTitle: true,
		Message:   fmt.Sprintf("Bad trial ID %s", param),
	}
}

// Resolve picks the view for a trial route parameter given the state of that trial's fetch.
// Checks run in order: invalid id, fetch error, no data yet, loaded.
func Resolve(
	param string,
	st rest.State[model.TrialDetailsParams, model.TrialDetails],
	isNotFound func(error) bool,
) View {
	id, ok := ParseTrialID(param)
	if !ok {
		return InvalidView(param)
	}

	if st.Error != nil {
		v := View{
			Kind:      ViewFetchError,
			TrialID:   ptrs.Ptr(id),
			Title:     notFoundTitle,
			HideTitle: true,
			Message:   fmt.Sprintf("Failed to fetch trial %d.", id),
		}
		if isNotFound(st.Error) {
			v.Kind = ViewNotFound
			v.Message = fmt.Sprintf("Trial %d not found.", id)
		}
		return v
	}

	if st.Data == nil {
		return View{Kind: ViewLoading, TrialID: ptrs.Ptr(id)}
	}

	return View{
		Kind:    ViewLoaded,
		TrialID: ptrs.Ptr(id),
		Title:   fmt.Sprintf("Trial %d", id),
		Breadcrumb: []BreadcrumbItem{
			{Label: "Trials", Path: ListPath, Icon: "trial"},
			{Label: strconv.Itoa(id)},
		},
		Sections:  []Section{{Title: "Info Box"}, {Title: "Chart"}, {Title: "Steps"}},
		Trial:     st.Data,
		UpdatedAt: ptrs.TimePtr(st.UpdatedAt),
	}
}
