package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	registry *prometheus.Registry
	claims   prometheus.Counter
	replies  prometheus.Counter
}

// newMetrics builds a per-instance registry so test binaries can construct
// multiple APIs without duplicate registration panics.
func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	factory := promauto.With(reg)
	return &metrics{
		registry: reg,
		claims: factory.NewCounter(prometheus.CounterOpts{
			Name: "giftwrap_claims_total",
			Help: "Successful gift claim requests, including idempotent re-reads.",
		}),
		replies: factory.NewCounter(prometheus.CounterOpts{
			Name: "giftwrap_replies_total",
			Help: "Replies accepted by the reply handler.",
		}),
	}
}

// MetricsHandler exposes the API's prometheus registry.
func (a *API) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(a.metrics.registry, promhttp.HandlerOpts{})
}
