// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics counts pipeline progress in a private Prometheus registry
// and dumps it as a node-exporter textfile at the end of a batch run.
//
// A nil *Recorder is valid and records nothing, so stages can be built
// without metrics in tests.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "citereview"

// Recorder holds the pipeline's collectors.
type Recorder struct {
	registry *prometheus.Registry

	advanced       *prometheus.CounterVec
	failures       *prometheus.CounterVec
	calls          *prometheus.CounterVec
	parses         *prometheus.CounterVec
	items          *prometheus.GaugeVec
	lastRunSeconds prometheus.Gauge
}

// New registers every collector in a fresh registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		advanced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_advanced_total",
			Help:      "WorkItems that completed a stage.",
		}, []string{"stage"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_failures_total",
			Help:      "Per-item stage failures that left the item unadvanced.",
		}, []string{"stage"}),
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "external_calls_total",
			Help:      "Calls to external collaborators by outcome.",
		}, []string{"collaborator", "outcome"}),
		parses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_replies_total",
			Help:      "LLM replies by how their JSON payload was recovered.",
		}, []string{"result"}),
		items: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "items",
			Help:      "WorkItems in the corpus by status after the run.",
		}, []string{"status"}),
		lastRunSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_duration_seconds",
			Help:      "Wall time of the most recent batch run.",
		}),
	}
	r.registry.MustRegister(r.advanced, r.failures, r.calls, r.parses, r.items, r.lastRunSeconds)
	return r
}

// Registry exposes the underlying registry for tests and custom exporters.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Advanced counts a stage completion.
func (r *Recorder) Advanced(stage string) {
	if r == nil {
		return
	}
	r.advanced.WithLabelValues(stage).Inc()
}

// Failed counts a stage failure.
func (r *Recorder) Failed(stage string) {
	if r == nil {
		return
	}
	r.failures.WithLabelValues(stage).Inc()
}

// Call counts one external call; a non-nil err is recorded as an error outcome.
func (r *Recorder) Call(collaborator string, err error) {
	if r == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.calls.WithLabelValues(collaborator, outcome).Inc()
}

// Parsed counts an LLM reply by its parse result name.
func (r *Recorder) Parsed(result string) {
	if r == nil {
		return
	}
	r.parses.WithLabelValues(result).Inc()
}

// SetItems replaces the per-status item gauge.
func (r *Recorder) SetItems(counts map[string]int) {
	if r == nil {
		return
	}
	r.items.Reset()
	for status, n := range counts {
		r.items.WithLabelValues(status).Set(float64(n))
	}
}

// SetRunDuration records the wall time of the run in seconds.
func (r *Recorder) SetRunDuration(seconds float64) {
	if r == nil {
		return
	}
	r.lastRunSeconds.Set(seconds)
}

// WriteTextfile writes all metrics to path atomically in the text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
