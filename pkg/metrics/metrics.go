// Package metrics exposes Prometheus metrics for the chat server.
package metrics

import (
	"database/sql"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	Connections         prometheus.Gauge
	Rooms               prometheus.Gauge
	MessagesTotal       *prometheus.CounterVec
	DeliveryFailures    prometheus.Counter
	BroadcastDrops      prometheus.Counter
	HandshakeRejections *prometheus.CounterVec
	GenerationsTotal    *prometheus.CounterVec
	GenerationDuration  *prometheus.HistogramVec
	ArtifactSaves       *prometheus.CounterVec
	QueueAsync          prometheus.Gauge

	registry *prometheus.Registry
}

func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "codecraft_ws_connections",
			Help: "Number of joined websocket sessions.",
		}),
		Rooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "codecraft_rooms_active",
			Help: "Number of project rooms with at least one session.",
		}),
		MessagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codecraft_chat_messages_total",
			Help: "Chat messages persisted, by sender kind.",
		}, []string{"sender"}),
		DeliveryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "codecraft_chat_delivery_failures_total",
			Help: "Chat messages that could not be persisted.",
		}),
		BroadcastDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "codecraft_broadcast_drops_total",
			Help: "Events dropped because a session's send buffer was full.",
		}),
		HandshakeRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codecraft_handshake_rejections_total",
			Help: "Rejected websocket handshakes, by reason.",
		}, []string{"reason"}),
		GenerationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codecraft_ai_generations_total",
			Help: "AI generation attempts, by provider and outcome.",
		}, []string{"provider", "outcome"}),
		GenerationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "codecraft_ai_generation_duration_seconds",
			Help:    "AI generation latency, by provider.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
		}, []string{"provider"}),
		ArtifactSaves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codecraft_artifact_saves_total",
			Help: "File save requests against the current artifact, by result.",
		}, []string{"result"}),
		QueueAsync: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "codecraft_queue_async_enabled",
			Help: "Whether AI jobs run on the Redis queue (1) or in process (0).",
		}),
		registry: reg,
	}

	reg.MustRegister(
		m.Connections,
		m.Rooms,
		m.MessagesTotal,
		m.DeliveryFailures,
		m.BroadcastDrops,
		m.HandshakeRejections,
		m.GenerationsTotal,
		m.GenerationDuration,
		m.ArtifactSaves,
		m.QueueAsync,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// RegisterDB adds connection pool statistics for db.
func (m *Metrics) RegisterDB(db *sql.DB) {
	m.registry.MustRegister(collectors.NewDBStatsCollector(db, "codecraft"))
}

// Handler serves the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordMessage(sender string) {
	m.MessagesTotal.WithLabelValues(sender).Inc()
}

func (m *Metrics) RecordRejection(reason string) {
	m.HandshakeRejections.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordGeneration(provider, outcome string, seconds float64) {
	m.GenerationsTotal.WithLabelValues(provider, outcome).Inc()
	m.GenerationDuration.WithLabelValues(provider).Observe(seconds)
}

func (m *Metrics) RecordArtifactSave(result string) {
	m.ArtifactSaves.WithLabelValues(result).Inc()
}

func (m *Metrics) SetQueueAsync(async bool) {
	if async {
		m.QueueAsync.Set(1)
		return
	}
	m.QueueAsync.Set(0)
}
