package webui

import (
	"fmt"
	"slices"
	"time"

	units "github.com/docker/go-units"
	"github.com/shopspring/decimal"
	"golang.org/x/exp/maps"

	"github.com/determined-ai/trialview/pkg/model"
)

// InfoBoxRow is one labeled value of an info box.
type InfoBoxRow struct {
	Label string
	Value string
}

// InfoBox is the display form of an experiment's summary.
type InfoBox struct {
	Rows    []InfoBoxRow
	Hparams []string
}

// NewExperimentInfoBox formats the summary of an experiment as of now.
func NewExperimentInfoBox(e model.ExperimentDetails, now time.Time) InfoBox {
	end := now
	if e.EndTime != nil {
		end = *e.EndTime
	}

	rows := []InfoBoxRow{
		{Label: "State", Value: e.State.Label()},
		{Label: "Progress", Value: formatProgress(e.Progress)},
		{Label: "Start Time", Value: e.StartTime.Format(time.RFC1123)},
		{Label: "Duration", Value: units.HumanDuration(end.Sub(e.StartTime))},
		{Label: "Trials", Value: fmt.Sprint(len(e.Trials))},
	}

	best := e.BestCheckpoint()
	if metric := e.Config.Searcher.Metric; metric != "" {
		rows = append(rows, InfoBoxRow{Label: "Searcher Metric", Value: metric})
	}
	if best != nil {
		rows = append(rows,
			InfoBoxRow{Label: "Best Validation", Value: formatMetric(*best.ValidationMetric)},
			InfoBoxRow{Label: "Best Checkpoint", Value: fmt.Sprintf(
				"Trial %d Step %d (%s)", best.TrialID, best.StepID, best.State.Label())},
		)
		if size := best.TotalSize(); size > 0 {
			rows = append(rows, InfoBoxRow{
				Label: "Checkpoint Size", Value: units.HumanSize(float64(size)),
			})
		}
	}
	if e.Config.Resources.MaxSlots != nil {
		rows = append(rows, InfoBoxRow{
			Label: "Max Slots", Value: fmt.Sprint(*e.Config.Resources.MaxSlots),
		})
	}
	if e.Username != "" {
		rows = append(rows, InfoBoxRow{Label: "User", Value: e.Username})
	}

	return InfoBox{Rows: rows, Hparams: hparamNames(e.Trials)}
}

func formatProgress(p *float64) string {
	if p == nil {
		return "-"
	}
	return decimal.NewFromFloat(*p).Shift(2).Round(1).String() + "%"
}

func formatMetric(m float64) string {
	d := decimal.NewFromFloat(m)
	if d.Exponent() < -6 {
		return d.Round(6).String()
	}
	return d.String()
}

func hparamNames(trials []model.Trial) []string {
	names := map[string]struct{}{}
	for _, t := range trials {
		for name := range t.Hparams {
			names[name] = struct{}{}
		}
	}
	keys := maps.Keys(names)
	slices.Sort(keys)
	return keys
}
