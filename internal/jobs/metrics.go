package jobmetrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	statusSuccess = "success"
	statusFailure = "failure"
)

// Metrics holds the worker's per-task collectors. A nil *Metrics records nothing.
type Metrics struct {
	runs        *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	findings    *prometheus.CounterVec
	lastSuccess *prometheus.GaugeVec
	now         func() time.Time
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the collectors on registerer, or once on the default
// registerer when it is nil.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer != nil {
		return register(registerer)
	}
	defaultOnce.Do(func() { defaultMetrics = register(prometheus.DefaultRegisterer) })
	return defaultMetrics
}

func register(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "odyssey_jobs_total",
			Help: "Job executions by task type and status.",
		}, []string{"job", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "odyssey_job_duration_seconds",
			Help:    "Job execution time in seconds.",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		}, []string{"job"}),
		findings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "odyssey_job_findings_total",
			Help: "Products flagged by jobs, such as drifting or low stock items.",
		}, []string{"job"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "odyssey_job_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run per job.",
		}, []string{"job"}),
		now: time.Now,
	}
	registerer.MustRegister(m.runs, m.duration, m.findings, m.lastSuccess)
	return m
}

// Tracker times one job run.
type Tracker struct {
	metrics *Metrics
	job     string
	start   time.Time
}

// Track starts timing a run of job.
func (m *Metrics) Track(job string) *Tracker {
	t := &Tracker{metrics: m, job: job, start: time.Now()}
	if m != nil {
		t.start = m.now()
	}
	return t
}

// End records the run outcome and returns err unchanged, so handlers can
// write `defer func() { err = tracker.End(err) }()`.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil || t.job == "" {
		return err
	}
	m := t.metrics
	finished := m.now()
	m.duration.WithLabelValues(t.job).Observe(finished.Sub(t.start).Seconds())
	if err != nil {
		m.runs.WithLabelValues(t.job, statusFailure).Inc()
		return err
	}
	m.runs.WithLabelValues(t.job, statusSuccess).Inc()
	m.lastSuccess.WithLabelValues(t.job).Set(float64(finished.Unix()))
	return nil
}

// AddFindings counts products a run flagged.
func (m *Metrics) AddFindings(job string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.findings.WithLabelValues(job).Add(float64(count))
}
