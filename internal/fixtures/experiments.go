// Package fixtures builds synthetic experiments and trials for previewing WebUI components.
package fixtures

import (
	"fmt"
	"strconv"

	petname "github.com/dustinkirkland/golang-petname"
	"github.com/jinzhu/copier"
	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"

	"github.com/determined-ai/trialview/pkg/model"
	"github.com/determined-ai/trialview/pkg/ptrs"
)

const (
	nameWords = 3
	nameSep   = "-"
)

var sampleStates = []model.State{
	model.ActiveState,
	model.PausedState,
	model.CompletedState,
	model.CanceledState,
	model.ErrorState,
}

// GenerateExperiments returns n experiments with ids 1 through n, started at the clock's now.
func GenerateExperiments(n int, clock clockwork.Clock) []model.Experiment {
	now := clock.Now().UTC()
	exps := make([]model.Experiment, 0, n)
	for i := 0; i < n; i++ {
		state := sampleStates[i%len(sampleStates)]
		exp := model.Experiment{
			ID:        i + 1,
			Name:      petname.Generate(nameWords, nameSep),
			State:     state,
			StartTime: now,
			OwnerID:   1,
			Config: model.ExperimentConfig{
				Description: fmt.Sprintf("Experiment %d", i+1),
				Labels:      []string{"sample"},
				Searcher: model.SearcherConfig{
					Name:            "single",
					Metric:          "validation_error",
					SmallerIsBetter: true,
				},
				Resources: model.ResourcesConfig{SlotsPerTrial: 1},
			},
		}
		if state.IsTerminal() {
			exp.EndTime = ptrs.TimePtr(now)
			exp.Progress = ptrs.Float64Ptr(1)
		} else {
			exp.Progress = ptrs.Float64Ptr(float64(i%10) / 10)
		}
		exps = append(exps, exp)
	}
	return exps
}

// ExperimentInfoBoxSample is the experiment shown by the ExperimentInfoBox story: a generated
// experiment with one completed trial, its best checkpoint and one validation.
func ExperimentInfoBoxSample(clock clockwork.Clock) (model.ExperimentDetails, error) {
	now := clock.Now().UTC()
	stamp := strconv.FormatInt(now.UnixMilli(), 10)

	var details model.ExperimentDetails
	sample := GenerateExperiments(1, clock)[0]
	if err := copier.CopyWithOption(
		&details.Experiment, &sample, copier.Option{DeepCopy: true},
	); err != nil {
		return model.ExperimentDetails{}, errors.Wrap(err, "copying sample experiment")
	}

	details.Trials = []model.Trial{{
		ID:           1,
		ExperimentID: details.ID,
		Hparams:      map[string]interface{}{},
		State:        model.CompletedState,
		NumBatches:   3400,
		NumSteps:     34,
		StartTime:    now,
		BestAvailableCheckpoint: &model.Checkpoint{
			ID:               3,
			StartTime:        stamp,
			State:            model.CheckpointCompleted,
			StepID:           34,
			TrialID:          3,
			ValidationMetric: ptrs.Float64Ptr(0.023),
		},
	}}
	details.Username = "hamid"
	details.ValidationHistory = []model.ValidationHistory{{
		EndTime:         stamp,
		ID:              0,
		ValidationError: ptrs.Float64Ptr(0.023),
	}}
	return details, nil
}
