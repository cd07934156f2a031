package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/core/domain"
)

// FilingMetrics implements ports.FilingObserver and tracks worker runs.
type FilingMetrics struct {
	registry *prometheus.Registry
	service  string

	finishedTotal      *prometheus.CounterVec
	automationDuration *prometheus.HistogramVec
	preflightRejected  *prometheus.CounterVec
	proxyAcquired      *prometheus.CounterVec
	reconciliations    *prometheus.CounterVec
	runsInFlight       prometheus.Gauge
	dispatchLag        *prometheus.HistogramVec
}

func NewFilingMetrics(service string) *FilingMetrics {
	registry := prometheus.NewRegistry()

	finishedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "conciliation",
			Subsystem: "filing",
			Name:      "finished_total",
			Help:      "Automated filings that reached a terminal status.",
		},
		[]string{"service", "status", "error_code"},
	)
	automationDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "conciliation",
			Subsystem: "filing",
			Name:      "automation_duration_seconds",
			Help:      "Duration of the browser automation step by terminal status.",
			Buckets:   []float64{5, 15, 30, 60, 90, 120, 180, 240, 300},
		},
		[]string{"service", "status"},
	)
	preflightRejected := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "conciliation",
			Subsystem: "filing",
			Name:      "preflight_rejections_total",
			Help:      "Automated filings that stayed in draft, by reason.",
		},
		[]string{"service", "reason"},
	)
	proxyAcquired := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "conciliation",
			Subsystem: "proxy",
			Name:      "acquisitions_total",
			Help:      "Proxy acquisitions by region.",
		},
		[]string{"service", "region"},
	)
	reconciliations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "conciliation",
			Subsystem: "ledger",
			Name:      "reconciliation_exceptions_total",
			Help:      "Completed filings whose credit could not be debited.",
		},
		[]string{"service"},
	)
	runsInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   "conciliation",
			Subsystem:   "worker",
			Name:        "runs_in_flight",
			Help:        "Number of filing runs currently executing.",
			ConstLabels: prometheus.Labels{"service": service},
		},
	)
	dispatchLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "conciliation",
			Subsystem: "worker",
			Name:      "dispatch_lag_seconds",
			Help:      "Delay between the last draft update and the start of its run.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)

	registry.MustRegister(finishedTotal, automationDuration, preflightRejected, proxyAcquired, reconciliations, runsInFlight, dispatchLag)

	return &FilingMetrics{
		registry:           registry,
		service:            service,
		finishedTotal:      finishedTotal,
		automationDuration: automationDuration,
		preflightRejected:  preflightRejected,
		proxyAcquired:      proxyAcquired,
		reconciliations:    reconciliations,
		runsInFlight:       runsInFlight,
		dispatchLag:        dispatchLag,
	}
}

func (m *FilingMetrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

func (m *FilingMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *FilingMetrics) PreflightRejected(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	m.preflightRejected.WithLabelValues(m.service, reason).Inc()
}

func (m *FilingMetrics) ProxyAcquired(regionKey string) {
	m.proxyAcquired.WithLabelValues(m.service, regionKey).Inc()
}

func (m *FilingMetrics) AutomationFinished(status domain.FilingStatus, errorCode string, duration time.Duration) {
	m.finishedTotal.WithLabelValues(m.service, string(status), errorCode).Inc()
	m.automationDuration.WithLabelValues(m.service, string(status)).Observe(duration.Seconds())
}

func (m *FilingMetrics) ReconciliationRaised() {
	m.reconciliations.WithLabelValues(m.service).Inc()
}

func (m *FilingMetrics) StartRun() {
	m.runsInFlight.Inc()
}

func (m *FilingMetrics) FinishRun() {
	m.runsInFlight.Dec()
}

func (m *FilingMetrics) ObserveDispatchLag(lag time.Duration) {
	if lag < 0 {
		return
	}
	m.dispatchLag.WithLabelValues(m.service).Observe(lag.Seconds())
}

// Handler serves several private registries on one endpoint.
func Handler(gatherers ...prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(prometheus.Gatherers(gatherers), promhttp.HandlerOpts{})
}
