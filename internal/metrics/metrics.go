// Package metrics exposes Prometheus metrics for the trainer.
// A nil *Registry is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all trainer metrics on a private Prometheus registry.
type Registry struct {
	reg *prometheus.Registry

	Evaluations   prometheus.Counter
	SimulatedDays prometheus.Counter
	BestStreak    *prometheus.GaugeVec
	JobsFinished  *prometheus.CounterVec
	JobDuration   *prometheus.HistogramVec
	PeerFailures  *prometheus.CounterVec
	PeerCacheHits *prometheus.CounterVec
	ActiveJobs    prometheus.Gauge
}

// New creates a registry with every trainer metric registered.
func New() *Registry {
	m := &Registry{
		reg: prometheus.NewRegistry(),

		Evaluations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trainer_candidate_evaluations_total",
			Help: "Total number of candidate parameter vectors simulated",
		}),
		SimulatedDays: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trainer_simulated_days_total",
			Help: "Total number of prediction days simulated",
		}),
		BestStreak: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "trainer_best_streak_days",
			Help: "Best streak found in the current or last job, by algorithm",
		}, []string{"algorithm"}),
		JobsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trainer_jobs_finished_total",
			Help: "Total number of finished jobs by mode and terminal reason",
		}, []string{"mode", "reason"}),
		JobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "trainer_job_duration_seconds",
			Help:    "Wall-clock duration of optimization jobs",
			Buckets: []float64{1, 5, 15, 60, 300, 900, 3600, 4 * 3600, 12 * 3600},
		}, []string{"mode"}),
		PeerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trainer_peer_failures_total",
			Help: "Peer prediction failures treated as zero contribution",
		}, []string{"peer"}),
		PeerCacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trainer_peer_cache_lookups_total",
			Help: "Peer score cache lookups by result (memory, disk, miss)",
		}, []string{"result"}),
		ActiveJobs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trainer_active_jobs",
			Help: "Number of jobs currently running (0 or 1)",
		}),
	}

	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Evaluations,
		m.SimulatedDays,
		m.BestStreak,
		m.JobsFinished,
		m.JobDuration,
		m.PeerFailures,
		m.PeerCacheHits,
		m.ActiveJobs,
	)
	return m
}

// Gatherer returns the underlying registry for scraping and tests.
func (m *Registry) Gatherer() prometheus.Gatherer {
	return m.reg
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// RegisterGaugeFunc exposes a value computed at scrape time.
func (m *Registry) RegisterGaugeFunc(name, help string, fn func() float64) {
	if m == nil {
		return
	}
	m.reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{Name: name, Help: help}, fn))
}

// RecordEvaluation counts one simulated candidate.
func (m *Registry) RecordEvaluation() {
	if m == nil {
		return
	}
	m.Evaluations.Inc()
}

// RecordDay counts one simulated prediction day.
func (m *Registry) RecordDay() {
	if m == nil {
		return
	}
	m.SimulatedDays.Inc()
}

// SetBestStreak records the best streak for algorithm.
func (m *Registry) SetBestStreak(algorithm string, streak int) {
	if m == nil {
		return
	}
	m.BestStreak.WithLabelValues(algorithm).Set(float64(streak))
}

// RecordPeerFailure counts a failed peer prediction.
func (m *Registry) RecordPeerFailure(peer string) {
	if m == nil {
		return
	}
	m.PeerFailures.WithLabelValues(peer).Inc()
}

// RecordPeerCacheLookup counts a peer cache lookup by result.
func (m *Registry) RecordPeerCacheLookup(result string) {
	if m == nil {
		return
	}
	m.PeerCacheHits.WithLabelValues(result).Inc()
}

// JobStarted marks a job as running.
func (m *Registry) JobStarted() {
	if m == nil {
		return
	}
	m.ActiveJobs.Inc()
}

// JobFinished records the outcome and duration of a job.
func (m *Registry) JobFinished(mode, reason string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ActiveJobs.Dec()
	m.JobsFinished.WithLabelValues(mode, reason).Inc()
	m.JobDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
}
