// Package metrics owns the prometheus registry for the dispatcher counters
// and exposes it over HTTP.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/mailreminder/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mailreminder"

// Dispatch outcomes, one per reminder handled by a sweep.
const (
	OutcomeSent          = "sent"
	OutcomeSendFailed    = "send_failed"
	OutcomeDecryptFailed = "decrypt_failed"
	OutcomeOwnerMissing  = "owner_missing"
	OutcomeMarkFailed    = "mark_failed"
)

// Sweep results.
const (
	SweepOK         = "ok"
	SweepStoreError = "store_error"
)

type Metrics struct {
	registry *prometheus.Registry

	dispatched    *prometheus.CounterVec
	sweeps        *prometheus.CounterVec
	sweepDuration prometheus.Histogram
}

// New builds a registry with the dispatcher collectors plus the Go runtime
// and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		dispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_total",
			Help:      "Reminders handled by the dispatcher, by outcome.",
		}, []string{"outcome"}),
		sweeps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweeps_total",
			Help:      "Dispatcher sweeps, by result.",
		}, []string{"result"}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Wall time of a dispatcher sweep.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.dispatched,
		m.sweeps,
		m.sweepDuration,
	)

	// export zero values so dashboards see every series from the start
	for _, o := range []string{OutcomeSent, OutcomeSendFailed, OutcomeDecryptFailed, OutcomeOwnerMissing, OutcomeMarkFailed} {
		m.dispatched.WithLabelValues(o)
	}
	for _, r := range []string{SweepOK, SweepStoreError} {
		m.sweeps.WithLabelValues(r)
	}

	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Dispatched(outcome string) {
	m.dispatched.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Swept(result string, took time.Duration) {
	m.sweeps.WithLabelValues(result).Inc()
	m.sweepDuration.Observe(took.Seconds())
}

// Handler serves the registry in the prometheus text format. Collection
// errors are logged and the remaining metrics are still served.
func (m *Metrics) Handler(logger logging.Logger) http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog:      errorLog{logger: logger.With("module", "metrics")},
		ErrorHandling: promhttp.ContinueOnError,
	})
}

// errorLog adapts logging.Logger to promhttp.Logger.
type errorLog struct {
	logger logging.Logger
}

func (l errorLog) Println(v ...any) {
	l.logger.Error(context.Background(), fmt.Sprint(v...))
}
