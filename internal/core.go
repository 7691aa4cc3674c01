package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/jonboulle/clockwork"
	echoprom "github.com/labstack/echo-contrib/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/sync/errgroup"

	"github.com/determined-ai/trialview/internal/api"
	"github.com/determined-ai/trialview/internal/config"
	"github.com/determined-ai/trialview/internal/detapi"
	"github.com/determined-ai/trialview/internal/prom"
	"github.com/determined-ai/trialview/internal/stories"
	"github.com/determined-ai/trialview/internal/trials"
	"github.com/determined-ai/trialview/internal/webui"
	"github.com/determined-ai/trialview/pkg/logger"
)

const (
	metricsPath = "/prom/det-trialview-metrics"
	// shutdownTimeout bounds how long in-flight requests may take once the server is stopping.
	shutdownTimeout = 10 * time.Second
)

// echo-contrib registers its collectors with the default registry, so its middleware is built
// once per process and shared by every server.
var (
	echoPromOnce sync.Once
	echoProm     *echoprom.Prometheus
)

// Info describes the running server.
type Info struct {
	Version    string `json:"version"`
	InstanceID string `json:"instance_id"`
	MasterURL  string `json:"master_url"`
}

// TrialView is the trial view server.
type TrialView struct {
	InstanceID string
	Version    string

	config   *config.Config
	clock    clockwork.Clock
	logs     *logger.LogBuffer
	echo     *echo.Echo
	registry *trials.Registry
	tracer   *sdktrace.TracerProvider

	// cancelWatch stops every trial watcher; it is called when Run returns.
	cancelWatch context.CancelFunc
}

// New creates an instance of the trial view server.
func New(version string, logs *logger.LogBuffer, c *config.Config) (*TrialView, error) {
	return newWithClock(version, logs, c, clockwork.NewRealClock())
}

func newWithClock(
	version string, logs *logger.LogBuffer, c *config.Config, clock clockwork.Clock,
) (*TrialView, error) {
	watchCtx, cancel := context.WithCancel(context.Background())
	t := &TrialView{
		InstanceID:  uuid.New().String(),
		Version:     version,
		config:      c,
		clock:       clock,
		logs:        logs,
		cancelWatch: cancel,
	}

	client := detapi.New(c.Master)
	registry, err := trials.NewRegistry(
		watchCtx, client.GetTrialDetails, c.Polling, c.Watchers, clock,
	)
	if err != nil {
		cancel()
		return nil, err
	}
	t.registry = registry

	if err := t.setupEcho(); err != nil {
		cancel()
		return nil, err
	}
	return t, nil
}

func (t *TrialView) setupEcho() error {
	renderer, err := webui.NewRenderer()
	if err != nil {
		return err
	}

	t.echo = echo.New()
	t.echo.Use(middleware.Recover())
	if t.config.EnableCors {
		t.echo.Use(api.CORSWithTargetedOrigin)
	}
	t.echo.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		Skipper:            middleware.DefaultSkipper,
		XFrameOptions:      middleware.DefaultSecureConfig.XFrameOptions,
		ContentTypeNosniff: middleware.DefaultSecureConfig.ContentTypeNosniff,
		XSSProtection:      middleware.DefaultSecureConfig.XSSProtection,
	}))
	if t.config.Observability.EnableTracing {
		t.echo.Use(otelecho.Middleware(defaultServiceName))
	}
	if t.config.Observability.EnablePrometheus {
		if err := prom.Register(prometheus.DefaultRegisterer); err != nil {
			return errors.Wrap(err, "registering prometheus collectors")
		}
		echoPromOnce.Do(func() {
			echoProm = echoprom.NewPrometheus("det_trialview", nil)
			echoProm.MetricsPath = metricsPath
		})
		echoProm.Use(t.echo)
	}

	t.echo.Logger = logger.New()
	t.echo.HideBanner = true
	t.echo.Renderer = renderer
	t.echo.HTTPErrorHandler = api.JSONErrorHandler

	t.echo.GET("/config", api.Route(t.getConfig))
	t.echo.GET("/info", api.Route(t.getInfo))
	t.echo.GET("/logs", api.Route(t.getLogs))

	trials.NewHandler(t.registry, detapi.IsNotFound, t.config.Polling.Interval.D()).
		RegisterRoutes(t.echo)
	stories.RegisterRoutes(t.echo, t.clock)
	return nil
}

// ServeHTTP serves a request with the server's routes.
func (t *TrialView) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	t.echo.ServeHTTP(w, r)
}

func (t *TrialView) getConfig(echo.Context) (interface{}, error) {
	bs, err := t.config.Printable()
	if err != nil {
		return nil, err
	}
	return json.RawMessage(bs), nil
}

func (t *TrialView) getInfo(echo.Context) (interface{}, error) {
	return Info{
		Version:    t.Version,
		InstanceID: t.InstanceID,
		MasterURL:  t.config.Master.URL,
	}, nil
}

func (t *TrialView) getLogs(c echo.Context) (interface{}, error) {
	limit, endID, greaterThanID := -1, -1, -1
	var level, component string
	if err := echo.QueryParamsBinder(c).
		Int("tail", &limit).
		Int("less_than_id", &endID).
		Int("greater_than_id", &greaterThanID).
		String("level", &level).
		String("component", &component).
		BindError(); err != nil {
		return nil, api.AsValidationError("invalid log query: %s", err)
	}
	startID := -1
	if c.QueryParam("greater_than_id") != "" {
		startID = greaterThanID + 1
	}

	var entries []*logger.Entry
	if level != "" || component != "" {
		lvl := log.TraceLevel
		if level != "" {
			parsed, err := log.ParseLevel(level)
			if err != nil {
				return nil, api.AsValidationError("invalid level: %s", level)
			}
			lvl = parsed
		}
		entries = t.logs.Tail(limit, lvl, component)
	} else {
		entries = t.logs.Entries(startID, endID, limit)
	}
	if len(entries) == 0 {
		// Return a zero-length array here so the JSON encoding is `[]` rather than `null`.
		entries = make([]*logger.Entry, 0)
	}
	return entries, nil
}

// Run starts the server and blocks until ctx is canceled or the server fails. Trial watchers
// and the HTTP server are shut down before it returns.
func (t *TrialView) Run(ctx context.Context) error {
	defer t.cancelWatch()
	log.Infof("Determined trial view (%s) %s", t.InstanceID, t.Version)

	if t.config.Observability.EnableTracing {
		tp, err := startTracing(ctx, t.config.Observability, t.InstanceID)
		if err != nil {
			return err
		}
		t.tracer = tp
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return t.registry.Run(gctx)
	})
	g.Go(func() error {
		log.Infof("accepting incoming connections on port %d", t.config.Port)
		err := t.echo.Start(fmt.Sprintf(":%d", t.config.Port))
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "HTTP server failed")
	})
	g.Go(func() error {
		<-gctx.Done()
		return t.shutdown()
	})
	return g.Wait()
}

func (t *TrialView) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var result *multierror.Error
	if err := t.echo.Shutdown(ctx); err != nil {
		result = multierror.Append(result, errors.Wrap(err, "shutting down HTTP server"))
	}
	t.cancelWatch()
	t.registry.Close()
	if t.tracer != nil {
		if err := t.tracer.Shutdown(ctx); err != nil {
			result = multierror.Append(result, errors.Wrap(err, "shutting down tracer"))
		}
	}
	return result.ErrorOrNil()
}
