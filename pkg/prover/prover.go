// Package prover implements the Prover role of spec.md §4.2: proposing a
// credential, requesting one against an offer, and presenting an aggregated
// proof over held credentials. Per-credential sub-proof construction fans
// out across goroutines bounded by golang.org/x/sync/errgroup, since
// resolving and validating each credential's artifacts is independent of
// the others.
package prover

import (
	"golang.org/x/sync/errgroup"

	"credential-hub/internal/errorkit"
	"credential-hub/pkg/credential"
	"credential-hub/pkg/crypto"
	"credential-hub/pkg/schema"
)

// Prover wraps the CryptoEngine with the composition rules of §4.2. It holds
// no protocol state; master secrets and blinding factors are threaded
// through call arguments by the caller, never retained.
type Prover struct {
	Engine crypto.Engine
}

// New returns a Prover backed by engine.
func New(engine crypto.Engine) *Prover {
	return &Prover{Engine: engine}
}

// ProposeCredential builds metadata-only proposal; it carries no
// cryptographic material.
func (p *Prover) ProposeCredential(issuer, subject, schemaID string) credential.CredentialProposal {
	return credential.CredentialProposal{Issuer: issuer, Subject: subject, Schema: schemaID}
}

// RequestResult bundles request_credential's public and private outputs.
type RequestResult struct {
	Request         credential.CredentialRequest
	BlindingFactors credential.CredentialSecretsBlindingFactors
}

// RequestCredential implements §4.2's request_credential: validates that
// values carries exactly def's schema properties, encodes each value, and
// blinds the master secret plus encoded values under the credential
// definition's public key, bound to the offer's nonce.
func (p *Prover) RequestCredential(offer credential.CredentialOffer, def credential.CredentialDefinition, s credential.CredentialSchema, masterSecret credential.MasterSecret, values map[string]string) (RequestResult, error) {
	if err := schema.ValidateValueKeys(s.Properties, values); err != nil {
		return RequestResult{}, err
	}

	encoded := crypto.EncodeAttributes(values)
	descriptor := crypto.CredentialSchemaDescriptor{
		Attributes:              schema.SortedAttributeNames(s.Properties),
		NonCredentialAttributes: []string{schema.NonCredentialSchemaAttribute},
	}

	blind, err := p.Engine.Blind(def.PublicKey, descriptor, masterSecret.Value, encoded, offer.Nonce)
	if err != nil {
		return RequestResult{}, err
	}

	req := credential.CredentialRequest{
		Subject:                                  offer.Subject,
		CredentialDefinition:                     def.ID,
		BlindedCredentialSecrets:                 blind.BlindedCredentialSecrets,
		BlindedCredentialSecretsCorrectnessProof: blind.BlindedCredentialSecretsCorrectnessProof,
		Nonce: offer.Nonce,
	}
	factors := credential.CredentialSecretsBlindingFactors{
		Subject:  offer.Subject,
		Blinding: blind.BlindingFactors,
	}
	return RequestResult{Request: req, BlindingFactors: factors}, nil
}

// PresentationInputs bundles the per-schema artifacts present_proof needs
// to resolve, keyed by schema id, mirroring §4.2 step 1's resolution.
type PresentationInputs struct {
	Schemas              map[string]credential.CredentialSchema
	Definitions          map[string]credential.CredentialDefinition
	RevocationDefinitions map[string]credential.RevocationRegistryDefinition
	Credentials          map[string]credential.Credential
	Witnesses            map[string]credential.Witness
}

// resolvedSubProof is one sub_proof_request's resolved material, produced by
// one goroutine in PresentProof's fan-out and later registered with the
// ProofBuilder sequentially, in index order.
type resolvedSubProof struct {
	descriptor    crypto.CredentialSchemaDescriptor
	revealedNames []string
	encodedValues map[string]string
	publicKey     string
	signature     string
	witness       string
	pinnedAccum   string
	revocationID  uint32
	entry         credential.VerifiableCredentialEntry
}

// PresentProof implements §4.2's present_proof. Resolving each
// sub_proof_request's artifacts and validating its revealed-attribute
// subset is fanned out across goroutines bounded by errgroup, since those
// steps are independent per credential; registering the resolved material
// with the ProofBuilder and finalising happen afterward, sequentially and
// in index order, so the returned presentation stays index-aligned with
// proofRequest's sub_proof_requests per the ordering invariant — a
// ProofBuilder's registration order is part of its contract and must not
// depend on goroutine scheduling.
func (p *Prover) PresentProof(proofRequest credential.ProofRequest, inputs PresentationInputs, masterSecret credential.MasterSecret) (credential.ProofPresentation, error) {
	resolved := make([]resolvedSubProof, len(proofRequest.SubProofRequests))

	g := new(errgroup.Group)
	for idx, sub := range proofRequest.SubProofRequests {
		idx, sub := idx, sub
		g.Go(func() error {
			s, ok := inputs.Schemas[sub.SchemaID]
			if !ok {
				return errorkit.MissingArtifactf("schema %q not found for sub-proof request", sub.SchemaID)
			}
			def, ok := inputs.Definitions[sub.SchemaID]
			if !ok {
				return errorkit.MissingArtifactf("credential definition for schema %q not found", sub.SchemaID)
			}
			rrDef, ok := inputs.RevocationDefinitions[sub.SchemaID]
			if !ok {
				return errorkit.MissingArtifactf("revocation registry definition for schema %q not found", sub.SchemaID)
			}
			cred, ok := inputs.Credentials[sub.SchemaID]
			if !ok {
				return errorkit.MissingArtifactf("credential for schema %q not found", sub.SchemaID)
			}
			witness, ok := inputs.Witnesses[sub.SchemaID]
			if !ok {
				return errorkit.MissingArtifactf("witness for schema %q not found", sub.SchemaID)
			}

			if err := schema.ValidateRevealedSubset(s.Properties, sub.RevealedAttributes); err != nil {
				return err
			}

			encodedValues := make(map[string]string, len(cred.Values))
			for name, v := range cred.Values {
				encodedValues[name] = v.Encoded
			}

			revealed := make(map[string]credential.AttributeValue, len(sub.RevealedAttributes))
			for _, name := range sub.RevealedAttributes {
				revealed[name] = cred.Values[name]
			}

			resolved[idx] = resolvedSubProof{
				descriptor: crypto.CredentialSchemaDescriptor{
					Attributes:              schema.SortedAttributeNames(s.Properties),
					NonCredentialAttributes: []string{schema.NonCredentialSchemaAttribute},
				},
				revealedNames: sub.RevealedAttributes,
				encodedValues: encodedValues,
				publicKey:     def.PublicKey,
				signature:     cred.Signature.Signature,
				witness:       witness.Value,
				pinnedAccum:   witness.PinnedAccum,
				revocationID:  cred.Signature.RevocationID,
				entry: credential.VerifiableCredentialEntry{
					SchemaID:                       s.ID,
					CredentialDefinitionID:         def.ID,
					RevocationRegistryDefinitionID: rrDef.ID,
					RevocationID:                   cred.Signature.RevocationID,
					RevealedValues:                 revealed,
				},
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return credential.ProofPresentation{}, err
	}

	builder := p.Engine.NewProofBuilder()
	for _, r := range resolved {
		if err := builder.AddSubProof(r.descriptor, r.revealedNames, r.encodedValues, r.publicKey, r.signature, r.witness, r.pinnedAccum, r.revocationID); err != nil {
			return credential.ProofPresentation{}, err
		}
	}

	aggregated, subProofs, err := builder.Finalize(proofRequest.Nonce, masterSecret.Value)
	if err != nil {
		return credential.ProofPresentation{}, err
	}

	entries := make([]credential.VerifiableCredentialEntry, len(resolved))
	for i, r := range resolved {
		entry := r.entry
		entry.SubProof = subProofs[i]
		entries[i] = entry
	}

	return credential.ProofPresentation{
		Proof:                credential.AggregatedProof{Nonce: proofRequest.Nonce, AggregatedProof: aggregated},
		VerifiableCredential: entries,
	}, nil
}
