package metrics

import "time"

// Collector records operational metrics for the credential exchange
// protocol: issuance latency, proof verification outcomes, revocation
// registry occupancy, and the HTTP transport around pkg/dispatch.
type Collector interface {
	// IssuanceStarted records that an issuer began building a credential
	// against schemaID.
	IssuanceStarted(schemaID string)

	// IssuanceCompleted records a successful IssueCredential call.
	IssuanceCompleted(schemaID string, duration time.Duration)

	// IssuanceFailed records an IssueCredential call that returned an
	// error, tagged with a short reason (an errorkit sentinel name).
	IssuanceFailed(schemaID, reason string)

	// VerificationCompleted records the outcome of a VerifyProof call.
	// status is "Verified" or "Rejected".
	VerificationCompleted(schemaID, status string, duration time.Duration)

	// RevocationRecorded records a RevokeCredential call against
	// registryID.
	RevocationRecorded(registryID string)

	// SetRegistryOccupancy reports the current issued count and
	// configured maximum_credential_count of a revocation registry.
	SetRegistryOccupancy(registryID string, issued, maximum uint32)

	// HTTPRequestCompleted records one request served by internal/server.
	HTTPRequestCompleted(method, path, status string, duration time.Duration)
}

// NoopCollector discards every metric. It satisfies Collector for
// callers that construct an Issuer/Verifier without a metrics backend.
type NoopCollector struct{}

func (NoopCollector) IssuanceStarted(schemaID string)                                      {}
func (NoopCollector) IssuanceCompleted(schemaID string, duration time.Duration)             {}
func (NoopCollector) IssuanceFailed(schemaID, reason string)                                {}
func (NoopCollector) VerificationCompleted(schemaID, status string, duration time.Duration) {}
func (NoopCollector) RevocationRecorded(registryID string)                                  {}
func (NoopCollector) SetRegistryOccupancy(registryID string, issued, maximum uint32)         {}
func (NoopCollector) HTTPRequestCompleted(method, path, status string, duration time.Duration) {
}

// NewNoopCollector returns a Collector that discards every metric.
func NewNoopCollector() Collector {
	return NoopCollector{}
}
