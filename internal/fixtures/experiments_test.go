package fixtures

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"gotest.tools/assert"

	"github.com/determined-ai/trialview/pkg/model"
)

func TestGenerateExperiments(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2020, 5, 1, 10, 0, 0, 0, time.UTC))
	exps := GenerateExperiments(7, clock)
	require.Len(t, exps, 7)
	for i, e := range exps {
		require.Equal(t, i+1, e.ID)
		require.Len(t, strings.Split(e.Name, "-"), 3)
		require.Equal(t, clock.Now(), e.StartTime)
		require.NotNil(t, e.Progress)
		if e.State.IsTerminal() {
			require.NotNil(t, e.EndTime)
		}
	}
	require.Empty(t, GenerateExperiments(0, clock))
}

func TestExperimentInfoBoxSample(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2020, 5, 1, 10, 0, 0, 0, time.UTC))
	stamp := strconv.FormatInt(clock.Now().UnixMilli(), 10)

	e, err := ExperimentInfoBoxSample(clock)
	require.NoError(t, err)

	assert.Equal(t, e.ID, 1)
	assert.Equal(t, e.Username, "hamid")
	require.Len(t, e.Trials, 1)

	trial := e.Trials[0]
	assert.Equal(t, trial.ID, 1)
	assert.Equal(t, trial.State, model.CompletedState)
	assert.Equal(t, trial.NumBatches, 3400)
	assert.Equal(t, trial.NumSteps, 34)
	assert.Equal(t, len(trial.Hparams), 0)

	ckpt := trial.BestAvailableCheckpoint
	require.NotNil(t, ckpt)
	assert.Equal(t, ckpt.ID, 3)
	assert.Equal(t, ckpt.State, model.CheckpointCompleted)
	assert.Equal(t, ckpt.StepID, 34)
	assert.Equal(t, ckpt.TrialID, 3)
	assert.Equal(t, *ckpt.ValidationMetric, 0.023)
	assert.Equal(t, ckpt.StartTime, stamp)

	require.Equal(t, []model.ValidationHistory{{
		EndTime: stamp, ID: 0, ValidationError: ckpt.ValidationMetric,
	}}, e.ValidationHistory)
}

func TestExperimentInfoBoxSampleIsIndependent(t *testing.T) {
	clock := clockwork.NewFakeClock()
	a, err := ExperimentInfoBoxSample(clock)
	require.NoError(t, err)
	b, err := ExperimentInfoBoxSample(clock)
	require.NoError(t, err)

	a.Config.Labels[0] = "changed"
	a.Trials[0].Hparams["lr"] = 0.1
	require.Equal(t, "sample", b.Config.Labels[0])
	require.Empty(t, b.Trials[0].Hparams)
}
