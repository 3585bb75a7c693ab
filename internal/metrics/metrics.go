package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the client's collectors on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	apiRequests  *prometheus.CounterVec
	apiDuration  *prometheus.HistogramVec
	syncRuns     *prometheus.CounterVec
	syncedEvents *prometheus.CounterVec
	lastSyncTS   prometheus.Gauge
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{Registry: prometheus.NewRegistry()}
	m.apiRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eventease",
		Name:      "api_requests_total",
		Help:      "Backend API requests by operation and status code (0 for transport failures)",
	}, []string{"op", "code"})
	m.apiDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "eventease",
		Name:      "api_request_duration_seconds",
		Help:      "Backend API request latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op"})
	m.syncRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eventease",
		Name:      "calendar_sync_runs_total",
		Help:      "Calendar sync cycles by result",
	}, []string{"result"})
	m.syncedEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eventease",
		Name:      "calendar_synced_events_total",
		Help:      "Events pushed to or removed from calendar targets",
	}, []string{"target", "action"})
	m.lastSyncTS = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "eventease",
		Name:      "calendar_last_sync_timestamp_seconds",
		Help:      "Unix time of the last successful sync cycle",
	})
	m.Registry.MustRegister(m.apiRequests, m.apiDuration, m.syncRuns, m.syncedEvents, m.lastSyncTS)
	return m
}

// ObserveRequest records one API call. code is 0 when the request never got a response.
func (m *Metrics) ObserveRequest(op string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.apiRequests.WithLabelValues(op, strconv.Itoa(code)).Inc()
	m.apiDuration.WithLabelValues(op).Observe(d.Seconds())
}

// ObserveSync records the outcome of a sync cycle.
func (m *Metrics) ObserveSync(err error, at time.Time) {
	if m == nil {
		return
	}
	if err != nil {
		m.syncRuns.WithLabelValues("error").Inc()
		return
	}
	m.syncRuns.WithLabelValues("ok").Inc()
	m.lastSyncTS.Set(float64(at.Unix()))
}

// ObserveSyncedEvent counts an "add", "update" or "remove" on a target.
func (m *Metrics) ObserveSyncedEvent(target, action string) {
	if m == nil {
		return
	}
	m.syncedEvents.WithLabelValues(target, action).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
