// Package metrics exposes job execution metrics via the real Prometheus
// client library, replacing a hand-rolled text-format exporter.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/netresearch/ofelia/core"
)

// JobMetrics owns a Prometheus registry populated with the counters,
// gauge and histogram the scheduler's middleware chain updates on every
// job run.
type JobMetrics struct {
	registry *prometheus.Registry

	jobsTotal    *prometheus.CounterVec
	jobsFailed   *prometheus.CounterVec
	jobsRetried  *prometheus.CounterVec
	jobsRunning  prometheus.Gauge
	jobsDuration *prometheus.HistogramVec
}

// NewJobMetrics builds a JobMetrics registered against registry. A nil
// registry allocates a fresh, private one (the common case: one daemon
// process, one /metrics endpoint).
func NewJobMetrics(registry *prometheus.Registry) *JobMetrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	jm := &JobMetrics{
		registry: registry,
		jobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobber_jobs_total",
			Help: "Total number of job attempts started.",
		}, []string{"route"}),
		jobsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobber_jobs_failed_total",
			Help: "Total number of job attempts that ended in ERROR or TIMEOUT.",
		}, []string{"route"}),
		jobsRetried: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobber_job_retries_total",
			Help: "Total number of retry attempts the Retry middleware made.",
		}, []string{"route"}),
		jobsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "jobber_jobs_running",
			Help: "Number of job attempts currently executing.",
		}),
		jobsDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "jobber_job_duration_seconds",
			Help:    "Job attempt duration in seconds.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 300},
		}, []string{"route", "status"}),
	}

	registry.MustRegister(jm.jobsTotal, jm.jobsFailed, jm.jobsRetried, jm.jobsRunning, jm.jobsDuration)
	return jm
}

// Registry returns the backing registry, for mounting a /metrics
// endpoint via promhttp.HandlerFor.
func (jm *JobMetrics) Registry() *prometheus.Registry { return jm.registry }

// Middleware returns a core.Middleware that records one job run's
// outcome and latency. The scheduler's own RetryMiddleware runs inside
// this one, so a retried run is still a single jobsTotal sample and
// retries are not counted here; jobsRetried changes only through
// RecordRetry.
func (jm *JobMetrics) Middleware() core.Middleware {
	return core.MiddlewareFunc(func(next core.CallNext, jc *core.JobContext) (any, error) {
		route := jc.Job.RouteName()
		jm.jobsTotal.WithLabelValues(route).Inc()
		jm.jobsRunning.Inc()
		start := time.Now()

		result, err := next(jc)

		duration := time.Since(start).Seconds()
		jm.jobsRunning.Dec()

		status := "success"
		if err != nil {
			status = "error"
			jm.jobsFailed.WithLabelValues(route).Inc()
		}
		jm.jobsDuration.WithLabelValues(route, status).Observe(duration)

		return result, err
	})
}

// RecordRetry increments the retry counter for route. Exposed
// separately from Middleware because retries happen inside the chain
// Middleware wraps, not around it.
func (jm *JobMetrics) RecordRetry(route string) {
	jm.jobsRetried.WithLabelValues(route).Inc()
}
