// Package metrics собирает Prometheus-метрики сервиса заметок.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Значения метки result.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Manager хранит все метрики сервиса.
type Manager struct {
	// counters
	CounterRequests           *prometheus.CounterVec
	CounterAutosaves          *prometheus.CounterVec
	CounterSaves              *prometheus.CounterVec
	CounterAutosaveSuppressed prometheus.Counter
	CounterHandlePanic        prometheus.Counter

	// gauges
	GaugeActiveSessions prometheus.Gauge
	GaugeWorkspaces     prometheus.Gauge

	// histograms
	HistogramRequestDuration *prometheus.HistogramVec
	HistogramStoreWrite      *prometheus.HistogramVec
}

// NewTestManager создает Manager на отдельном реестре.
func NewTestManager() *Manager {
	return NewManager("notedesk", "test", prometheus.NewRegistry())
}

// NewTestManagerAndRegistry возвращает Manager вместе с его реестром.
func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager("notedesk", "test", reg), reg
}

// NewManager регистрирует метрики в reg.
func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	return &Manager{
		CounterRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "requests_total",
			Help:      "The total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		CounterAutosaves: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "autosaves_total",
			Help:      "The total number of debounced autosave writes",
		}, []string{"result"}),
		CounterSaves: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "saves_total",
			Help:      "The total number of explicit saves",
		}, []string{"result"}),
		CounterAutosaveSuppressed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "autosaves_suppressed_total",
			Help:      "Autosave timers that fired after the session left editing",
		}),
		CounterHandlePanic: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "handle_request_panic_total",
			Help:      "The total number of recovered handler panics",
		}),
		GaugeActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "active_edit_sessions",
			Help:      "Edit sessions currently in editing or saving state",
		}),
		GaugeWorkspaces: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "workspaces",
			Help:      "Loaded user workspaces",
		}),
		HistogramRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		HistogramStoreWrite: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "store_write_duration_seconds",
			Help:      "Note store write latency by kind",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"kind"}),
	}
}
