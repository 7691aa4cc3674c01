package prom

import (
	"github.com/prometheus/client_golang/prometheus"
)

// DeterminedNamespace is the prometheus namespace for Determined metrics.
const DeterminedNamespace = "determined"

// TrialViewSubsystem is the prometheus subsystem for metrics of this service.
const TrialViewSubsystem = "trialview"

// Time observes the elapsed time of the surrounding function, e.g.
// `defer prom.Time(histogram.WithLabelValues("GET"))()`. Note the trailing call: the timer
// starts when Time is evaluated and stops when the returned function runs.
func Time(o prometheus.Observer) func() {
	timer := prometheus.NewTimer(o)
	return func() { timer.ObserveDuration() }
}

var (
	// FetchDuration measures requests made to the master's REST API.
	FetchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: DeterminedNamespace,
		Subsystem: TrialViewSubsystem,
		Name:      "master_fetch_seconds",
		Help:      "Time spent on requests to the master REST API.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"endpoint"})

	// FetchErrors counts failed requests to the master's REST API.
	FetchErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: DeterminedNamespace,
		Subsystem: TrialViewSubsystem,
		Name:      "master_fetch_errors_total",
		Help:      "Failed requests to the master REST API, by endpoint and class.",
	}, []string{"endpoint", "class"})

	// MountedWatchers tracks how many trials are currently being polled.
	MountedWatchers = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: DeterminedNamespace,
		Subsystem: TrialViewSubsystem,
		Name:      "mounted_watchers",
		Help:      "Trials currently being polled.",
	})

	// ViewsRendered counts rendered trial views by kind.
	ViewsRendered = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: DeterminedNamespace,
		Subsystem: TrialViewSubsystem,
		Name:      "views_rendered_total",
		Help:      "Trial detail views served, by view kind.",
	}, []string{"kind"})
)

// Register adds this service's collectors to the registerer.
func Register(r prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		FetchDuration, FetchErrors, MountedWatchers, ViewsRendered,
	} {
		if err := r.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}
