package config

import (
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/determined-ai/trialview/pkg/check"
	"github.com/determined-ai/trialview/pkg/logger"
)

const (
	// DefaultPollInterval matches the WebUI's default polling cadence.
	DefaultPollInterval = 5 * time.Second
	defaultPort         = 8081
	// MinIdleTimeout is the shortest allowed watchers idle_timeout.
	MinIdleTimeout = time.Second
)

// MasterConfig locates the Determined master whose REST API serves trial data.
type MasterConfig struct {
	URL     string   `json:"url"`
	Token   string   `json:"token"`
	Timeout Duration `json:"timeout"`
	// MaxRequestsPerSecond caps requests across all pollers; zero disables the limit.
	MaxRequestsPerSecond float64 `json:"max_requests_per_second"`
}

// Validate implements the check.Validatable interface.
func (m MasterConfig) Validate() []error {
	return []error{
		check.AbsoluteURL(m.URL, "master url"),
		check.PositiveDuration(m.Timeout.D(), "master timeout"),
		check.True(m.MaxRequestsPerSecond >= 0, "max_requests_per_second must be >= 0"),
	}
}

// PollingConfig configures how often mounted trials are refetched.
type PollingConfig struct {
	Interval Duration `json:"interval"`
}

// Validate implements the check.Validatable interface.
func (p PollingConfig) Validate() []error {
	return []error{check.PositiveDuration(p.Interval.D(), "polling interval")}
}

// WatchersConfig bounds the set of trials being polled at once.
type WatchersConfig struct {
	Capacity    int      `json:"capacity"`
	IdleTimeout Duration `json:"idle_timeout"`
	// A fetch failure escalates from debug to warn logging once it has repeated MaxRetries more
	// times, each within ErrorTimeout of the previous one.
	MaxRetries   int      `json:"max_retries"`
	ErrorTimeout Duration `json:"error_timeout"`
}

// Validate implements the check.Validatable interface.
func (w WatchersConfig) Validate() []error {
	return []error{
		check.GreaterThan(w.Capacity, 0, "watchers capacity"),
		check.True(w.IdleTimeout.D() >= MinIdleTimeout,
			"watchers idle_timeout must be at least %s, got %s", MinIdleTimeout, w.IdleTimeout.D()),
		check.GreaterThanOrEqualTo(w.MaxRetries, 0, "watchers max_retries"),
		check.PositiveDuration(w.ErrorTimeout.D(), "watchers error_timeout"),
	}
}

// ObservabilityConfig turns on metrics and tracing.
type ObservabilityConfig struct {
	EnablePrometheus bool   `json:"enable_prometheus"`
	EnableTracing    bool   `json:"enable_tracing"`
	OtlpEndpoint     string `json:"otlp_endpoint"`
	// TraceSampleRatio is the fraction of root spans kept; child spans follow their parent.
	TraceSampleRatio float64 `json:"trace_sample_ratio"`
}

// Validate implements the check.Validatable interface.
func (o ObservabilityConfig) Validate() []error {
	if !o.EnableTracing {
		return nil
	}
	return []error{
		check.NotEmpty(o.OtlpEndpoint, "otlp_endpoint is required for tracing"),
		check.True(o.TraceSampleRatio >= 0 && o.TraceSampleRatio <= 1,
			"trace_sample_ratio must be within [0, 1], got %v", o.TraceSampleRatio),
	}
}

// DefaultConfig returns the default configuration of the trial view server.
func DefaultConfig() *Config {
	return &Config{
		ConfigFile: "",
		Log:        *logger.DefaultConfig(),
		Port:       defaultPort,
		Master: MasterConfig{
			URL:     "http://localhost:8080",
			Timeout: Duration(30 * time.Second),
		},
		Polling: PollingConfig{
			Interval: Duration(DefaultPollInterval),
		},
		Watchers: WatchersConfig{
			Capacity:     256,
			IdleTimeout:  Duration(2 * time.Minute),
			MaxRetries:   3,
			ErrorTimeout: Duration(5 * time.Minute),
		},
		Observability: ObservabilityConfig{
			EnablePrometheus: true,
			OtlpEndpoint:     "localhost:4317",
			TraceSampleRatio: 1,
		},
		LogBufferSize: 25000,
	}
}

// Config is the configuration of the trial view server.
//
// It is populated, in the following order, by the configuration file, environment variables and
// command line arguments.
type Config struct {
	ConfigFile    string              `json:"config_file"`
	Log           logger.Config       `json:"log"`
	Port          int                 `json:"port"`
	Master        MasterConfig        `json:"master"`
	Polling       PollingConfig       `json:"polling"`
	Watchers      WatchersConfig      `json:"watchers"`
	Observability ObservabilityConfig `json:"observability"`
	EnableCors    bool                `json:"enable_cors"`
	LogBufferSize int                 `json:"log_buffer_size"`
}

// Validate implements the check.Validatable interface.
func (c Config) Validate() []error {
	return []error{
		check.InRange(c.Port, 1, 65535, "port"),
		check.GreaterThan(c.LogBufferSize, 0, "log_buffer_size"),
	}
}

// Printable returns a printable string.
func (c Config) Printable() ([]byte, error) {
	const hiddenValue = "********"
	if c.Master.Token != "" {
		c.Master.Token = hiddenValue
	}
	optJSON, err := json.Marshal(c)
	if err != nil {
		return nil, errors.Wrap(err, "unable to convert config to JSON")
	}
	return optJSON, nil
}

// Resolve normalizes values in the configuration.
func (c *Config) Resolve() error {
	u, err := url.Parse(c.Master.URL)
	if err != nil {
		return errors.Wrapf(err, "parsing master url %q", c.Master.URL)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	c.Master.URL = u.String()
	return nil
}
