// Package verifier implements the Verifier role of spec.md §4.3: issuing a
// ProofRequest and verifying a ProofPresentation against it. Per-index
// pre-checks fan out across goroutines bounded by golang.org/x/sync/errgroup
// before any crypto call is made, so a malformed presentation never reaches
// the CryptoEngine.
package verifier

import (
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"credential-hub/internal/errorkit"
	"credential-hub/internal/metrics"
	"credential-hub/internal/signing"
	"credential-hub/pkg/credential"
	"credential-hub/pkg/crypto"
	"credential-hub/pkg/revocation"
	"credential-hub/pkg/schema"
)

// errStop signals a pre-check failure recorded in failureReason; its text
// is never surfaced, only its presence as the errgroup.Wait() error.
var errStop = errorkit.CryptoFailuref("proof presentation pre-check failed")

// Verifier wraps the CryptoEngine with the verification rules of §4.3.
// Signer authenticates each referenced artifact's proof block (§4.3 step 3);
// it must be the same Signer instance (or one sharing its identity
// registrations) the issuing party signed with.
type Verifier struct {
	Engine  crypto.Engine
	Signer  *signing.Signer
	Metrics metrics.Collector
}

// New returns a Verifier backed by engine and signer.
func New(engine crypto.Engine, signer *signing.Signer) *Verifier {
	return &Verifier{Engine: engine, Signer: signer, Metrics: metrics.NewNoopCollector()}
}

// RequestProof implements §4.3's request_proof: a fresh nonce binding the
// presentation that must answer it.
func (v *Verifier) RequestProof(verifierDID, proverDID string, subProofRequests []credential.SubProofRequest) (credential.ProofRequest, error) {
	nonce, err := v.Engine.IssueNonce()
	if err != nil {
		return credential.ProofRequest{}, err
	}
	return credential.ProofRequest{
		Verifier:         verifierDID,
		Prover:           proverDID,
		Nonce:            nonce,
		SubProofRequests: subProofRequests,
	}, nil
}

// VerificationInputs bundles the artifacts verify_proof resolves by schema
// id, mirroring present_proof's PresentationInputs on the prover side.
type VerificationInputs struct {
	Schemas               map[string]credential.CredentialSchema
	Definitions           map[string]credential.CredentialDefinition
	RevocationDefinitions map[string]credential.RevocationRegistryDefinition
}

// rejected builds a ProofVerification{Rejected, reason}; verify_proof never
// signals a crypto or pre-check failure as a Go error, per §7.
func rejected(reason string) credential.ProofVerification {
	return credential.ProofVerification{Status: credential.StatusRejected, Reason: reason}
}

// VerifyProof implements §4.3's verify_proof: pre-checks 1-4 run before any
// crypto call; a pre-check failure returns Rejected without calling the
// CryptoEngine. Pre-checks 2-4 are independent per index and fan out across
// goroutines bounded by errgroup.
func (v *Verifier) VerifyProof(presented credential.ProofPresentation, proofRequest credential.ProofRequest, inputs VerificationInputs) credential.ProofVerification {
	start := time.Now()
	outcome := v.verifyProof(presented, proofRequest, inputs)
	v.Metrics.VerificationCompleted(verificationSchemaLabel(proofRequest), string(outcome.Status), time.Since(start))
	return outcome
}

// verificationSchemaLabel collapses a possibly multi-schema proof request
// into one metric label: the sole schema id, or "multi" for an aggregated
// presentation spanning more than one.
func verificationSchemaLabel(proofRequest credential.ProofRequest) string {
	switch len(proofRequest.SubProofRequests) {
	case 0:
		return "none"
	case 1:
		return proofRequest.SubProofRequests[0].SchemaID
	default:
		return "multi"
	}
}

func (v *Verifier) verifyProof(presented credential.ProofPresentation, proofRequest credential.ProofRequest, inputs VerificationInputs) credential.ProofVerification {
	if len(presented.VerifiableCredential) != len(proofRequest.SubProofRequests) {
		return rejected("verifiable credential count does not match sub-proof request count")
	}

	checks := make([]crypto.VerificationInput, len(proofRequest.SubProofRequests))
	var failureReason atomic.Value

	g := new(errgroup.Group)
	for idx, sub := range proofRequest.SubProofRequests {
		idx, sub := idx, sub
		g.Go(func() error {
			entry := presented.VerifiableCredential[idx]

			if entry.SchemaID != sub.SchemaID {
				failureReason.Store("verifiable credential at index does not reference the requested schema")
				return errStop
			}
			if !sameAttributeSet(entry.RevealedValues, sub.RevealedAttributes) {
				failureReason.Store("revealed attribute set does not match the sub-proof request")
				return errStop
			}
			for name, value := range entry.RevealedValues {
				if crypto.EncodeAttribute(value.Raw) != value.Encoded {
					failureReason.Store("revealed raw value does not match its encoded value for attribute " + name)
					return errStop
				}
			}

			s, ok := inputs.Schemas[sub.SchemaID]
			if !ok {
				failureReason.Store("schema " + sub.SchemaID + " does not resolve")
				return errStop
			}
			def, ok := inputs.Definitions[sub.SchemaID]
			if !ok {
				failureReason.Store("credential definition for schema " + sub.SchemaID + " does not resolve")
				return errStop
			}
			rrDef, ok := inputs.RevocationDefinitions[sub.SchemaID]
			if !ok {
				failureReason.Store("revocation registry definition for schema " + sub.SchemaID + " does not resolve")
				return errStop
			}
			if entry.CredentialDefinitionID != def.ID || entry.RevocationRegistryDefinitionID != rrDef.ID {
				failureReason.Store("verifiable credential references a different definition or revocation registry than resolved")
				return errStop
			}

			if v.Signer != nil {
				if err := v.Signer.VerifyDocument(unsignedSchema(s), s.Proof); err != nil {
					failureReason.Store("schema " + s.ID + " proof does not verify: " + err.Error())
					return errStop
				}
				if err := v.Signer.VerifyDocument(unsignedDefinition(def), def.Proof); err != nil {
					failureReason.Store("credential definition " + def.ID + " proof does not verify: " + err.Error())
					return errStop
				}
				if err := v.Signer.VerifyDocument(unsignedRevocationDefinition(rrDef), rrDef.Proof); err != nil {
					failureReason.Store("revocation registry definition " + rrDef.ID + " proof does not verify: " + err.Error())
					return errStop
				}
			}

			revocationID := entry.RevocationID

			checks[idx] = crypto.VerificationInput{
				Descriptor: crypto.CredentialSchemaDescriptor{
					Attributes:              schema.SortedAttributeNames(s.Properties),
					NonCredentialAttributes: []string{schema.NonCredentialSchemaAttribute},
				},
				Revealed:       encodedRevealed(entry.RevealedValues),
				PublicKey:      def.PublicKey,
				AccumPublicKey: rrDef.RevocationPublicKey,
				PinnedAccum:    rrDef.Registry.Accum,
				RevocationID:   revocationID,
			}

			if !revocation.IsActive(rrDef, revocationID) {
				failureReason.Store("credential's revocation id is not active in the current accumulator")
				return errStop
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		reason, _ := failureReason.Load().(string)
		return rejected(reason)
	}

	subProofs := make([]string, len(presented.VerifiableCredential))
	for i, entry := range presented.VerifiableCredential {
		subProofs[i] = entry.SubProof
	}

	if err := v.Engine.VerifyAggregatedProof(presented.Proof.AggregatedProof, subProofs, proofRequest.Nonce, checks); err != nil {
		return rejected(err.Error())
	}

	return credential.ProofVerification{Status: credential.StatusVerified}
}

func sameAttributeSet(revealed map[string]credential.AttributeValue, names []string) bool {
	if len(revealed) != len(names) {
		return false
	}
	for _, name := range names {
		if _, ok := revealed[name]; !ok {
			return false
		}
	}
	return true
}

// unsignedSchema, unsignedDefinition and unsignedRevocationDefinition strip
// the proof field before canonicalisation, mirroring the document shape the
// issuer signed over in internal/signing.Signer.Sign.
func unsignedSchema(s credential.CredentialSchema) credential.CredentialSchema {
	s.Proof = nil
	return s
}

func unsignedDefinition(d credential.CredentialDefinition) credential.CredentialDefinition {
	d.Proof = nil
	return d
}

func unsignedRevocationDefinition(r credential.RevocationRegistryDefinition) credential.RevocationRegistryDefinition {
	r.Proof = nil
	return r
}

func encodedRevealed(revealed map[string]credential.AttributeValue) map[string]string {
	out := make(map[string]string, len(revealed))
	for name, v := range revealed {
		out[name] = v.Encoded
	}
	return out
}
