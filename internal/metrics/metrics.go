// Package metrics exposes per-run pipeline counters to Prometheus.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "visahunt"

type Metrics struct {
	reg *prometheus.Registry

	Runs          *prometheus.CounterVec // result: ok | error
	RunDuration   prometheus.Histogram
	LastSuccess   prometheus.Gauge
	Tasks         *prometheus.CounterVec // source, outcome: ok | failed | skipped | extract_error
	FetchDuration *prometheus.HistogramVec
	Candidates    *prometheus.CounterVec // result: eligible | rejected | ineligible
	Postings      *prometheus.CounterVec // result: new | known | deduped
	Outreach      *prometheus.CounterVec // status: applied | failed
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "runs_total",
			Help: "Pipeline runs by result.",
		}, []string{"result"}),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "run_duration_seconds",
			Help:    "Wall time of a pipeline run.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		LastSuccess: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "last_success_timestamp_seconds",
			Help: "Unix time of the last completed run.",
		}),
		Tasks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "fetch_tasks_total",
			Help: "Fetch tasks by source and outcome.",
		}, []string{"source", "outcome"}),
		FetchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "fetch_duration_seconds",
			Help:    "Time spent fetching one task, retries included.",
			Buckets: prometheus.DefBuckets,
		}, []string{"source"}),
		Candidates: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "candidates_total",
			Help: "Extracted candidates by filter result.",
		}, []string{"result"}),
		Postings: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "postings_total",
			Help: "Postings by merge result.",
		}, []string{"result"}),
		Outreach: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "outreach_total",
			Help: "Outreach dispatches by resulting status.",
		}, []string{"status"}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRun(d time.Duration, ok bool, finished time.Time) {
	m.RunDuration.Observe(d.Seconds())
	if !ok {
		m.Runs.WithLabelValues("error").Inc()
		return
	}
	m.Runs.WithLabelValues("ok").Inc()
	m.LastSuccess.Set(float64(finished.Unix()))
}

// Push sends the current values to a Pushgateway. An empty url is a no-op.
func (m *Metrics) Push(ctx context.Context, url, job string) error {
	if url == "" {
		return nil
	}
	return push.New(url, job).Gatherer(m.reg).PushContext(ctx)
}
