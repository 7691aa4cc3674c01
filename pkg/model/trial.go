package model

import "time"

// Trial is a single hyperparameter configuration's execution within an experiment.
type Trial struct {
	ID                      int                    `json:"id"`
	ExperimentID            int                    `json:"experimentId,omitempty"`
	Hparams                 map[string]interface{} `json:"hparams"`
	State                   State                  `json:"state"`
	NumBatches              int                    `json:"numBatches"`
	NumSteps                int                    `json:"numSteps"`
	BestAvailableCheckpoint *Checkpoint            `json:"bestAvailableCheckpoint,omitempty"`
	StartTime               time.Time              `json:"startTime"`
	EndTime                 *time.Time             `json:"endTime,omitempty"`
}

// Step is one scheduling unit of a trial's training, optionally followed by a validation.
type Step struct {
	ID               int        `json:"id"`
	State            State      `json:"state"`
	NumBatches       int        `json:"numBatches"`
	StartTime        time.Time  `json:"startTime"`
	EndTime          *time.Time `json:"endTime,omitempty"`
	ValidationMetric *float64   `json:"validationMetric,omitempty"`
}

// TrialDetails is the payload of a single-trial fetch.
type TrialDetails struct {
	Trial
	Steps []Step `json:"steps"`
}

// TrialDetailsParams identifies the trial to fetch.
type TrialDetailsParams struct {
	ID int `json:"id"`
}
