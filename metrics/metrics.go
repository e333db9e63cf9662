// Package metrics exposes Prometheus collectors for analysis runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// Metrics owns a registry and the analysis collectors. A nil *Metrics
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	AnalysesTotal    *prometheus.CounterVec
	StageDuration    *prometheus.HistogramVec
	NeutralFallbacks *prometheus.CounterVec
	DTWFallbacks     prometheus.Counter
	CollaboratorErrs *prometheus.CounterVec
}

// New registers the collectors on a fresh registry.
func New(logger *logrus.Logger) *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.AnalysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vocal_eval_analyses_total",
			Help: "Total number of analysis runs by outcome",
		},
		[]string{"outcome"},
	)
	m.StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vocal_eval_stage_duration_seconds",
			Help:    "Time spent per pipeline stage",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"stage"},
	)
	m.NeutralFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vocal_eval_neutral_fallbacks_total",
			Help: "Categories scored neutral because the signal was insufficient",
		},
		[]string{"category"},
	)
	m.DTWFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vocal_eval_dtw_fallbacks_total",
			Help: "DTW alignments that fell back to interpolation",
		},
	)
	m.CollaboratorErrs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vocal_eval_collaborator_errors_total",
			Help: "Failed calls to external collaborators",
		},
		[]string{"collaborator"},
	)

	m.registry.MustRegister(
		m.AnalysesTotal,
		m.StageDuration,
		m.NeutralFallbacks,
		m.DTWFallbacks,
		m.CollaboratorErrs,
	)
	if logger != nil {
		logger.Debug("Prometheus metrics initialized")
	}
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordAnalysis counts a finished run.
func (m *Metrics) RecordAnalysis(outcome string) {
	if m != nil {
		m.AnalysesTotal.WithLabelValues(outcome).Inc()
	}
}

// ObserveStage starts a timer; call the returned func when the stage ends.
func (m *Metrics) ObserveStage(stage string) func() {
	if m == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		m.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	}
}

// RecordNeutral counts a category that degraded to neutral scores.
func (m *Metrics) RecordNeutral(category string) {
	if m != nil {
		m.NeutralFallbacks.WithLabelValues(category).Inc()
	}
}

// RecordDTWFallback counts an alignment fallback.
func (m *Metrics) RecordDTWFallback() {
	if m != nil {
		m.DTWFallbacks.Inc()
	}
}

// RecordCollaboratorError counts a failed external call.
func (m *Metrics) RecordCollaboratorError(name string) {
	if m != nil {
		m.CollaboratorErrs.WithLabelValues(name).Inc()
	}
}

// WriteTextfile writes the registry in the text exposition format, for the
// node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
