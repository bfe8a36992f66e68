package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry wraps a Prometheus registry with the application's metrics and
// implements Collector.
type Registry struct {
	registry *prometheus.Registry

	issuanceStartedTotal  *prometheus.CounterVec
	issuanceTotal         *prometheus.CounterVec
	issuanceDuration      *prometheus.HistogramVec
	issuanceFailuresTotal *prometheus.CounterVec

	verificationTotal    *prometheus.CounterVec
	verificationDuration *prometheus.HistogramVec

	revocationsTotal  *prometheus.CounterVec
	registryOccupied  *prometheus.GaugeVec
	registryCapacity  *prometheus.GaugeVec

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewRegistry creates a Registry backed by its own prometheus.Registry,
// isolated from the process-wide default registerer. Useful for tests and
// for embedding more than one Registry in the same process.
func NewRegistry() *Registry {
	return newRegistry(prometheus.NewRegistry())
}

func newRegistry(reg *prometheus.Registry) *Registry {
	r := &Registry{
		registry: reg,

		issuanceStartedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credential_hub_issuance_started_total",
				Help: "Total number of credential issuance attempts started, by schema.",
			},
			[]string{"schema_id"},
		),
		issuanceTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credential_hub_issuance_completed_total",
				Help: "Total number of credentials successfully issued, by schema.",
			},
			[]string{"schema_id"},
		),
		issuanceDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "credential_hub_issuance_duration_seconds",
				Help:    "Time to build and sign a credential, by schema.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"schema_id"},
		),
		issuanceFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credential_hub_issuance_failures_total",
				Help: "Total number of failed issuance attempts, by schema and reason.",
			},
			[]string{"schema_id", "reason"},
		),

		verificationTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credential_hub_verification_total",
				Help: "Total number of proof verifications, by schema and outcome.",
			},
			[]string{"schema_id", "status"},
		),
		verificationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "credential_hub_verification_duration_seconds",
				Help:    "Time to verify a proof presentation, by schema.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"schema_id"},
		),

		revocationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credential_hub_revocations_total",
				Help: "Total number of credentials revoked, by revocation registry.",
			},
			[]string{"registry_id"},
		),
		registryOccupied: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "credential_hub_revocation_registry_issued",
				Help: "Number of credential slots currently issued in a revocation registry.",
			},
			[]string{"registry_id"},
		),
		registryCapacity: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "credential_hub_revocation_registry_capacity",
				Help: "Configured maximum_credential_count of a revocation registry.",
			},
			[]string{"registry_id"},
		),

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credential_hub_http_requests_total",
				Help: "Total number of HTTP requests served.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "credential_hub_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
	}

	r.mustRegister()
	return r
}

func (r *Registry) mustRegister() {
	collectors := []prometheus.Collector{
		r.issuanceStartedTotal,
		r.issuanceTotal,
		r.issuanceDuration,
		r.issuanceFailuresTotal,
		r.verificationTotal,
		r.verificationDuration,
		r.revocationsTotal,
		r.registryOccupied,
		r.registryCapacity,
		r.httpRequestsTotal,
		r.httpRequestDuration,
	}
	for _, c := range collectors {
		r.registry.MustRegister(c)
	}
}

// Gatherer returns the underlying Prometheus registry for serving a
// /metrics endpoint.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

func (r *Registry) IssuanceStarted(schemaID string) {
	r.issuanceStartedTotal.WithLabelValues(schemaID).Inc()
}

func (r *Registry) IssuanceCompleted(schemaID string, duration time.Duration) {
	r.issuanceTotal.WithLabelValues(schemaID).Inc()
	r.issuanceDuration.WithLabelValues(schemaID).Observe(duration.Seconds())
}

func (r *Registry) IssuanceFailed(schemaID, reason string) {
	r.issuanceFailuresTotal.WithLabelValues(schemaID, reason).Inc()
}

func (r *Registry) VerificationCompleted(schemaID, status string, duration time.Duration) {
	r.verificationTotal.WithLabelValues(schemaID, status).Inc()
	r.verificationDuration.WithLabelValues(schemaID).Observe(duration.Seconds())
}

func (r *Registry) RevocationRecorded(registryID string) {
	r.revocationsTotal.WithLabelValues(registryID).Inc()
}

func (r *Registry) SetRegistryOccupancy(registryID string, issued, maximum uint32) {
	r.registryOccupied.WithLabelValues(registryID).Set(float64(issued))
	r.registryCapacity.WithLabelValues(registryID).Set(float64(maximum))
}

func (r *Registry) HTTPRequestCompleted(method, path, status string, duration time.Duration) {
	r.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	r.httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}
