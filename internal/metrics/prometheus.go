package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewProcessRegistry returns a Registry backed by its own fresh
// prometheus.Registry (not Prometheus's default registerer), plus process
// and Go runtime collectors. This is the Collector cmd/serve.go wires into
// the Issuer and Verifier and exposes at ServerConfig.MetricsPath.
func NewProcessRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	reg.MustRegister(prometheus.NewGoCollector())
	return newRegistry(reg)
}

// Handler returns the http.Handler that serves r's metrics in the
// Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
