package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hazardrun"

// Recorder implements service.Recorder and tracks websocket connections.
// Each Recorder owns its registry so tests and servers never collide.
type Recorder struct {
	registry       *prometheus.Registry
	eventsTotal    *prometheus.CounterVec
	activeSessions prometheus.Gauge
	gamesStarted   prometheus.Counter
	gamesCompleted prometheus.Counter
	connections    prometheus.Gauge
}

// New creates a Recorder with a fresh registry that also carries the Go
// runtime and process collectors.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		eventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Inbound events handled, by event name and result",
		}, []string{"event", "result"}),
		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Sessions currently registered",
		}),
		gamesStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_started_total",
			Help:      "Games that left the lobby",
		}),
		gamesCompleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_completed_total",
			Help:      "Games that reached game over",
		}),
		connections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Open websocket connections",
		}),
	}
}

func (r *Recorder) EventHandled(event, result string) {
	r.eventsTotal.WithLabelValues(event, result).Inc()
}

func (r *Recorder) SessionsActive(n int) {
	r.activeSessions.Set(float64(n))
}

func (r *Recorder) GameStarted() {
	r.gamesStarted.Inc()
}

func (r *Recorder) GameCompleted() {
	r.gamesCompleted.Inc()
}

func (r *Recorder) ConnectionOpened() {
	r.connections.Inc()
}

func (r *Recorder) ConnectionClosed() {
	r.connections.Dec()
}

// Registry exposes the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
