// Package metrics exposes presence transitions and relay outcomes as
// Prometheus series on a private registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Tyrowin/presencechat/internal/presence"
)

const namespace = "presencechat"

// Collector implements presence.Observer.
type Collector struct {
	registry    *prometheus.Registry
	transitions *prometheus.CounterVec
	relayed     *prometheus.CounterVec
}

var _ presence.Observer = (*Collector)(nil)

// New creates a Collector with Go runtime and process metrics registered.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "presence_transitions_total",
			Help:      "Presence announcements by status.",
		}, []string{"status"}),
		relayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relayed_events_total",
			Help:      "Unicast events by name and outcome.",
		}, []string{"event", "outcome"}),
	}

	c.registry.MustRegister(
		c.transitions,
		c.relayed,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// StatusChanged counts one presence announcement.
func (c *Collector) StatusChanged(_ presence.Identity, status presence.Status) {
	c.transitions.WithLabelValues(string(status)).Inc()
}

// Relayed counts one unicast attempt.
func (c *Collector) Relayed(event string, delivered bool) {
	outcome := "dropped"
	if delivered {
		outcome = "delivered"
	}
	c.relayed.WithLabelValues(event, outcome).Inc()
}

// Gauge registers a gauge sampled from fn at scrape time.
func (c *Collector) Gauge(name, help string, fn func() int) {
	c.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, func() float64 {
		return float64(fn())
	}))
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
