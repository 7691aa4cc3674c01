package detapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/determined-ai/trialview/internal/api"
	"github.com/determined-ai/trialview/internal/config"
	"github.com/determined-ai/trialview/pkg/model"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return New(config.MasterConfig{
		URL:     ts.URL + "/",
		Token:   "s3cret",
		Timeout: config.Duration(5 * time.Second),
	})
}

func TestGetTrialDetails(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/trials/7", r.URL.Path)
		require.Equal(t, "Bearer s3cret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"trial": {"id": 7, "state": "COMPLETED", "hparams": {},
			"numBatches": 3400, "numSteps": 34, "startTime": "2020-05-01T10:00:00Z",
			"steps": []}}`))
	})

	trial, err := c.GetTrialDetails(context.Background(), model.TrialDetailsParams{ID: 7})
	require.NoError(t, err)
	require.Equal(t, 7, trial.ID)
	require.Equal(t, model.CompletedState, trial.State)
	require.Equal(t, 34, trial.NumSteps)
}

func TestGetTrialDetailsNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": "trial 5 not found", "code": 5}`))
	})

	_, err := c.GetTrialDetails(context.Background(), model.TrialDetailsParams{ID: 5})
	require.Error(t, err)
	require.True(t, IsNotFound(err))
	require.ErrorContains(t, err, "trial 5 not found")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestGetTrialDetailsOtherFailures(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "database is down", http.StatusInternalServerError)
	})
	_, err := c.GetTrialDetails(context.Background(), model.TrialDetailsParams{ID: 5})
	require.Error(t, err)
	require.False(t, IsNotFound(err))
	require.True(t, errors.Is(err, api.ErrUnavailable))
	require.ErrorContains(t, err, "database is down")

	c = newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	})
	_, err = c.GetTrialDetails(context.Background(), model.TrialDetailsParams{ID: 5})
	require.Error(t, err)
	require.False(t, IsNotFound(err))

	c = newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	_, err = c.GetTrialDetails(context.Background(), model.TrialDetailsParams{ID: 5})
	require.ErrorContains(t, err, "response carried no trial")
	require.True(t, errors.Is(err, api.ErrUpstream))
}

func TestGetTrialDetailsRespectsContext(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
	})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.GetTrialDetails(ctx, model.TrialDetailsParams{ID: 1})
	require.Error(t, err)
	require.False(t, IsNotFound(err))
}

func TestGetExperimentDetails(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/experiments/2", r.URL.Path)
		_, _ = w.Write([]byte(`{"experiment": {"id": 2, "name": "mnist", "state": "ACTIVE",
			"startTime": "2020-05-01T10:00:00Z", "trials": [{"id": 1, "state": "ACTIVE",
			"startTime": "2020-05-01T10:00:00Z"}], "validationHistory": []}}`))
	})
	exp, err := c.GetExperimentDetails(context.Background(), model.ExperimentDetailsParams{ID: 2})
	require.NoError(t, err)
	require.Equal(t, "mnist", exp.Name)
	require.Len(t, exp.Trials, 1)
}

func TestIsNotFound(t *testing.T) {
	require.False(t, IsNotFound(nil))
	require.False(t, IsNotFound(errors.New("boom")))
	require.True(t, IsNotFound(api.AsErrNotFound("trial %d", 1)))
	require.True(t, IsNotFound(errors.Wrap(&APIError{StatusCode: 404}, "fetching")))
	require.False(t, IsNotFound(&APIError{StatusCode: 403}))
}
