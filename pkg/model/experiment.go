package model

import "time"

// SearcherConfig is the part of the searcher configuration the WebUI displays.
type SearcherConfig struct {
	Name            string `json:"name"`
	Metric          string `json:"metric"`
	SmallerIsBetter bool   `json:"smallerIsBetter"`
}

// ResourcesConfig is the part of the resources configuration the WebUI displays.
type ResourcesConfig struct {
	MaxSlots      *int `json:"maxSlots,omitempty"`
	SlotsPerTrial int  `json:"slotsPerTrial"`
}

// ExperimentConfig is the experiment metadata shown alongside its trials.
type ExperimentConfig struct {
	Description string          `json:"description"`
	Labels      []string        `json:"labels,omitempty"`
	Searcher    SearcherConfig  `json:"searcher"`
	Resources   ResourcesConfig `json:"resources"`
}

// Experiment is a top-level training run grouping one or more trials.
type Experiment struct {
	ID        int              `json:"id"`
	Name      string           `json:"name"`
	Archived  bool             `json:"archived"`
	Config    ExperimentConfig `json:"config"`
	State     State            `json:"state"`
	StartTime time.Time        `json:"startTime"`
	EndTime   *time.Time       `json:"endTime,omitempty"`
	Progress  *float64         `json:"progress,omitempty"`
	OwnerID   int              `json:"ownerId"`
	Username  string           `json:"username,omitempty"`
}

// ValidationHistory is one entry of an experiment's best-validation history.
type ValidationHistory struct {
	EndTime         string   `json:"endTime"`
	ID              int      `json:"id"`
	ValidationError *float64 `json:"validationError,omitempty"`
}

// ExperimentDetails is an experiment together with its trials and validation history.
type ExperimentDetails struct {
	Experiment
	Trials            []Trial             `json:"trials"`
	ValidationHistory []ValidationHistory `json:"validationHistory"`
}

// ExperimentDetailsParams identifies the experiment to fetch.
type ExperimentDetailsParams struct {
	ID int `json:"id"`
}

// BestCheckpoint returns the best available checkpoint across the experiment's trials according
// to the searcher metric ordering, or nil if no trial has one.
func (e ExperimentDetails) BestCheckpoint() *Checkpoint {
	var best *Checkpoint
	for i := range e.Trials {
		c := e.Trials[i].BestAvailableCheckpoint
		if c == nil || c.ValidationMetric == nil {
			continue
		}
		if best == nil || e.better(*c.ValidationMetric, *best.ValidationMetric) {
			best = c
		}
	}
	return best
}

func (e ExperimentDetails) better(a, b float64) bool {
	if e.Config.Searcher.SmallerIsBetter {
		return a < b
	}
	return a > b
}
