// Package metrics holds the daemon's Prometheus collectors. Every method is
// safe on a nil *Metrics so components can run without instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "lcchat"

// Metrics groups the collectors registered on one registry.
type Metrics struct {
	Registry *prometheus.Registry

	activeSubscriptions prometheus.Gauge
	deliveries          *prometheus.CounterVec
	lateDropped         *prometheus.CounterVec
	fetchErrors         *prometheus.CounterVec
	retries             *prometheus.CounterVec
	appended            prometheus.Counter
	published           prometheus.Counter
	expired             prometheus.Counter
	mediaBytes          prometheus.Counter
	rateLimited         *prometheus.CounterVec
	relayed             *prometheus.CounterVec
}

// New creates a registry with process/go collectors and the lcchat collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		activeSubscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "live", Name: "active_subscriptions",
			Help: "Live subscriptions currently registered.",
		}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "live", Name: "deliveries_total",
			Help: "Snapshots delivered to subscribers.",
		}, []string{"query"}),
		lateDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "live", Name: "late_snapshots_dropped_total",
			Help: "Snapshots discarded because the subscription was cancelled first.",
		}, []string{"query"}),
		fetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "live", Name: "fetch_errors_total",
			Help: "Snapshot fetches that failed.",
		}, []string{"query"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "store", Name: "retries_total",
			Help: "Backing store operations retried after a transient failure.",
		}, []string{"op"}),
		appended: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "messages", Name: "appended_total",
			Help: "Messages appended to chat logs.",
		}),
		published: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "statuses", Name: "published_total",
			Help: "Status posts published.",
		}),
		expired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "statuses", Name: "expired_total",
			Help: "Status posts removed by the sweeper.",
		}),
		mediaBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "media", Name: "uploaded_bytes_total",
			Help: "Bytes accepted by media ingestion.",
		}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "rate_limited_total",
			Help: "Requests rejected by a rate limiter.",
		}, []string{"scope"}),
		relayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "changefeed", Name: "events_total",
			Help: "Change events exchanged with other processes.",
		}, []string{"source"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.activeSubscriptions,
		m.deliveries,
		m.lateDropped,
		m.fetchErrors,
		m.retries,
		m.appended,
		m.published,
		m.expired,
		m.mediaBytes,
		m.rateLimited,
		m.relayed,
	)
	return m
}

func (m *Metrics) SubscriptionOpened() {
	if m != nil {
		m.activeSubscriptions.Inc()
	}
}

func (m *Metrics) SubscriptionClosed() {
	if m != nil {
		m.activeSubscriptions.Dec()
	}
}

func (m *Metrics) Delivered(query string) {
	if m != nil {
		m.deliveries.WithLabelValues(query).Inc()
	}
}

func (m *Metrics) LateSnapshotDropped(query string) {
	if m != nil {
		m.lateDropped.WithLabelValues(query).Inc()
	}
}

func (m *Metrics) FetchFailed(query string) {
	if m != nil {
		m.fetchErrors.WithLabelValues(query).Inc()
	}
}

func (m *Metrics) Retried(op string) {
	if m != nil {
		m.retries.WithLabelValues(op).Inc()
	}
}

func (m *Metrics) MessageAppended() {
	if m != nil {
		m.appended.Inc()
	}
}

func (m *Metrics) StatusPublished() {
	if m != nil {
		m.published.Inc()
	}
}

func (m *Metrics) StatusesExpired(n int) {
	if m != nil && n > 0 {
		m.expired.Add(float64(n))
	}
}

func (m *Metrics) MediaUploaded(bytes int64) {
	if m != nil && bytes > 0 {
		m.mediaBytes.Add(float64(bytes))
	}
}

func (m *Metrics) RateLimited(scope string) {
	if m != nil {
		m.rateLimited.WithLabelValues(scope).Inc()
	}
}

// Relayed counts change events by source: "poller", "redis_in" or "redis_out".
func (m *Metrics) Relayed(source string) {
	if m != nil {
		m.relayed.WithLabelValues(source).Inc()
	}
}
