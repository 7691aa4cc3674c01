package model

import "time"

// Checkpoint is a saved model snapshot produced during a trial.
type Checkpoint struct {
	ID               int              `json:"id"`
	UUID             *string          `json:"uuid,omitempty"`
	StartTime        string           `json:"startTime"`
	EndTime          *time.Time       `json:"endTime,omitempty"`
	State            CheckpointState  `json:"state"`
	StepID           int              `json:"stepId"`
	TrialID          int              `json:"trialId"`
	ValidationMetric *float64         `json:"validationMetric,omitempty"`
	Resources        map[string]int64 `json:"resources,omitempty"`
}

// TotalSize sums the sizes of the checkpoint's files.
func (c Checkpoint) TotalSize() int64 {
	var total int64
	for _, size := range c.Resources {
		total += size
	}
	return total
}
