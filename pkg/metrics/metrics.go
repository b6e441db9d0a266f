// Package metrics counts calls made to the management service and the
// outcome of sync runs.
package metrics

import (
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/agentstation/apisync/pkg/constants"
	"github.com/agentstation/apisync/pkg/errors"
)

// Outcome labels a finished call or run.
type Outcome string

const (
	// OutcomeSuccess indicates the call completed.
	OutcomeSuccess Outcome = "success"

	// OutcomeNotFound indicates the remote object did not exist.
	OutcomeNotFound Outcome = "not_found"

	// OutcomeError indicates any other failure.
	OutcomeError Outcome = "error"
)

// OutcomeOf classifies err.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.IsNotFound(err):
		return OutcomeNotFound
	default:
		return OutcomeError
	}
}

// Config configures a Recorder.
type Config struct {
	// Namespace is the Prometheus namespace for all metrics.
	// Default: "apisync"
	Namespace string

	// Buckets are the histogram buckets for call durations.
	Buckets []float64

	// Registry receives the metrics. Default: a fresh registry.
	Registry *prometheus.Registry
}

// DefaultConfig returns the default metrics configuration.
func DefaultConfig() *Config {
	return &Config{
		Namespace: "apisync",
		Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		Registry:  prometheus.NewRegistry(),
	}
}

// Recorder holds the collectors.
type Recorder struct {
	registry     *prometheus.Registry
	calls        *prometheus.CounterVec
	callDuration *prometheus.HistogramVec
	mutations    prometheus.Counter
	runs         *prometheus.CounterVec
}

// New creates a Recorder and registers its collectors.
func New(config *Config) (*Recorder, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Registry == nil {
		config.Registry = prometheus.NewRegistry()
	}

	r := &Recorder{
		registry: config.Registry,
		calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Subsystem: "gateway",
				Name:      "calls_total",
				Help:      "Total number of calls to the management service",
			},
			[]string{"operation", "outcome"},
		),
		callDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: config.Namespace,
				Subsystem: "gateway",
				Name:      "call_duration_seconds",
				Help:      "Duration of calls to the management service in seconds",
				Buckets:   config.Buckets,
			},
			[]string{"operation"},
		),
		mutations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Subsystem: "gateway",
				Name:      "mutations_total",
				Help:      "Total number of successful mutating calls",
			},
		),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Name:      "runs_total",
				Help:      "Total number of sync runs",
			},
			[]string{"command", "outcome"},
		),
	}

	for _, c := range []prometheus.Collector{r.calls, r.callDuration, r.mutations, r.runs} {
		if err := r.registry.Register(c); err != nil {
			return nil, errors.NewConfigError("metrics", "registering collector", err)
		}
	}
	return r, nil
}

// Registry returns the registry holding the collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// RecordCall records one call to the management service.
func (r *Recorder) RecordCall(operation string, mutating bool, duration time.Duration, err error) {
	r.calls.WithLabelValues(operation, string(OutcomeOf(err))).Inc()
	r.callDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if mutating && err == nil {
		r.mutations.Inc()
	}
}

// RecordRun records the outcome of a command.
func (r *Recorder) RecordRun(command string, err error) {
	r.runs.WithLabelValues(command, string(OutcomeOf(err))).Inc()
}

// WriteFile writes every gathered metric family to path in the Prometheus
// text exposition format.
func (r *Recorder) WriteFile(path string) error {
	families, err := r.registry.Gather()
	if err != nil {
		return errors.NewConfigError("metrics", "gathering metrics", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
			return errors.WrapIO("create", dir, err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, constants.FilePermissions)
	if err != nil {
		return errors.WrapIO("open", path, err)
	}
	defer func() { _ = f.Close() }()

	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(f, mf); err != nil {
			return errors.WrapIO("write", path, err)
		}
	}
	return f.Close()
}
