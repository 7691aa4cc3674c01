package detapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/determined-ai/trialview/internal/api"
	"github.com/determined-ai/trialview/internal/config"
	"github.com/determined-ai/trialview/internal/prom"
	"github.com/determined-ai/trialview/pkg/model"
)

const (
	trialsEndpoint      = "trials"
	experimentsEndpoint = "experiments"
	// maxErrorBody bounds how much of an error response we keep for the message.
	maxErrorBody = 4096
)

// Client fetches trial and experiment details from the Determined master's REST API.
type Client struct {
	log     *log.Entry
	baseURL string
	token   string
	timeout time.Duration
	cl      *http.Client
	limiter *rate.Limiter
}

// New returns a client for the master described by the config.
func New(c config.MasterConfig) *Client {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if c.MaxRequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(c.MaxRequestsPerSecond), 1)
	}
	return &Client{
		log:     log.WithFields(log.Fields{"component": "master-client", "master": c.URL}),
		baseURL: strings.TrimSuffix(c.URL, "/"),
		token:   c.Token,
		timeout: c.Timeout.D(),
		cl:      cleanhttp.DefaultPooledClient(),
		limiter: limiter,
	}
}

type getTrialResponse struct {
	Trial *model.TrialDetails `json:"trial"`
}

type getExperimentResponse struct {
	Experiment *model.ExperimentDetails `json:"experiment"`
}

// GetTrialDetails fetches one trial with its steps.
func (c *Client) GetTrialDetails(
	ctx context.Context, p model.TrialDetailsParams,
) (*model.TrialDetails, error) {
	var resp getTrialResponse
	if err := c.get(ctx, trialsEndpoint, fmt.Sprintf("/api/v1/trials/%d", p.ID), &resp); err != nil {
		return nil, errors.Wrapf(err, "fetching trial %d", p.ID)
	}
	if resp.Trial == nil {
		return nil, api.AsErrUpstream("fetching trial %d: response carried no trial", p.ID)
	}
	return resp.Trial, nil
}

// GetExperimentDetails fetches one experiment with its trials and validation history.
func (c *Client) GetExperimentDetails(
	ctx context.Context, p model.ExperimentDetailsParams,
) (*model.ExperimentDetails, error) {
	var resp getExperimentResponse
	path := fmt.Sprintf("/api/v1/experiments/%d", p.ID)
	if err := c.get(ctx, experimentsEndpoint, path, &resp); err != nil {
		return nil, errors.Wrapf(err, "fetching experiment %d", p.ID)
	}
	if resp.Experiment == nil {
		return nil, api.AsErrUpstream("fetching experiment %d: response carried no experiment", p.ID)
	}
	return resp.Experiment, nil
}

func (c *Client) get(ctx context.Context, endpoint, path string, out interface{}) (err error) {
	defer prom.Time(prom.FetchDuration.WithLabelValues(endpoint))()
	defer func() {
		if err != nil {
			prom.FetchErrors.WithLabelValues(endpoint, errorClass(err)).Inc()
		}
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		return errors.Wrap(err, "waiting for request budget")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.cl.Do(req)
	if err != nil {
		return errors.Wrap(err, "sending request")
	}
	defer func() {
		if cErr := resp.Body.Close(); cErr != nil {
			c.log.WithError(cErr).Warn("failed to close response body")
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.Body),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return api.AsErrUpstream("decoding response: %s", err)
	}
	return nil
}

// errorMessage extracts the "message" (or grpc-gateway "error") field of an error body, falling
// back to the raw text.
func errorMessage(body io.Reader) string {
	bs, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil || len(bs) == 0 {
		return ""
	}
	var parsed struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(bs, &parsed) == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		if parsed.Error != "" {
			return parsed.Error
		}
	}
	return strings.TrimSpace(string(bs))
}
