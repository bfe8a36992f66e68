// Package credential defines the wire-level entities exchanged between
// issuer, prover and verifier roles. Types here are serialisable documents,
// not storage layouts: every cross-entity reference is a string DID resolved
// through a Registry at use time, never an in-memory pointer.
package credential

// AttributeType names the declared type of a schema attribute. The protocol
// only ever reveals or withholds values; it does not interpret this field.
type AttributeType string

const (
	AttributeTypeString AttributeType = "string"
	AttributeTypeNumber AttributeType = "number"
)

// AttributeSchema describes a single property of a CredentialSchema.
type AttributeSchema struct {
	Type AttributeType `json:"type"`
}

// CredentialSchema is an immutable, Registry-resolvable descriptor of a
// credential's attribute set.
type CredentialSchema struct {
	ID                  string                     `json:"id"`
	Author              string                     `json:"author"`
	Name                string                     `json:"name"`
	Description         string                     `json:"description"`
	Properties          map[string]AttributeSchema `json:"properties"`
	Required            []string                   `json:"required"`
	AdditionalProperties bool                      `json:"additionalProperties"`
	Proof               *ProofBlock                `json:"proof,omitempty"`
}

// ProofBlock is the opaque authentication envelope carried by every public
// artifact. The core never inspects its contents; it only includes or strips
// it at the documented position before canonicalising for signing.
type ProofBlock struct {
	Type           string `json:"type"`
	Created        string `json:"created"`
	VerificationMethod string `json:"verificationMethod"`
	JWS            string `json:"jws"`
}

// CredentialDefinition binds an issuer to a schema via a CL public key.
type CredentialDefinition struct {
	ID                        string      `json:"id"`
	Issuer                    string      `json:"issuer"`
	SchemaID                  string      `json:"schemaId"`
	PublicKey                 string      `json:"publicKey"`
	PublicKeyCorrectnessProof string      `json:"publicKeyCorrectnessProof"`
	Proof                     *ProofBlock `json:"proof,omitempty"`
}

// CredentialPrivateKey is the issuer-private counterpart of a
// CredentialDefinition. It never crosses the message interface.
type CredentialPrivateKey struct {
	DefinitionID string `json:"definitionId"`
	PrivateKey   string `json:"privateKey"`
}

// RevocationDelta describes the transition in an accumulator's membership
// set since its previously published value.
type RevocationDelta struct {
	Accum   string   `json:"accum"`
	Issued  []uint32 `json:"issued"`
	Revoked []uint32 `json:"revoked"`
}

// RevocationRegistryDefinition is the public, Registry-stored state of one
// issuer's revocation accumulator for one CredentialDefinition.
type RevocationRegistryDefinition struct {
	ID                     string          `json:"id"`
	CredentialDefinitionID string          `json:"credentialDefinitionId"`
	Registry               AccumulatorState `json:"registry"`
	Delta                  RevocationDelta `json:"delta"`
	Tails                  string          `json:"tails"`
	RevocationPublicKey    string          `json:"revocationPublicKey"`
	MaximumCredentialCount uint32          `json:"maximumCredentialCount"`
	UpdatedAt              string          `json:"updatedAt"`
	Proof                  *ProofBlock     `json:"proof,omitempty"`
}

// AccumulatorState holds the current accumulator group-element, passed
// through verbatim in the CryptoEngine's native hex encoding.
type AccumulatorState struct {
	Accum string `json:"accum"`
}

// RevocationKeyPrivate is the issuer-private half of the accumulator keypair.
type RevocationKeyPrivate struct {
	DefinitionID string `json:"definitionId"`
	PrivateKey   string `json:"privateKey"`
}

// RevocationIdInformation is the issuer-private monotonic allocator state for
// one RevocationRegistryDefinition.
type RevocationIdInformation struct {
	DefinitionID  string   `json:"definitionId"`
	NextUnusedID  uint32   `json:"nextUnusedId"`
	UsedIDs       []uint32 `json:"usedIds"`
}

// MasterSecret is a prover-private scalar shared by every credential held by
// one logical identity. It never leaves the prover.
type MasterSecret struct {
	Value string `json:"value"`
}

// CredentialProposal is metadata-only; it carries no cryptographic material.
type CredentialProposal struct {
	Issuer  string `json:"issuer"`
	Subject string `json:"subject"`
	Schema  string `json:"schema"`
}

// CredentialOffer binds a subsequent CredentialRequest to a fresh nonce.
type CredentialOffer struct {
	Issuer               string `json:"issuer"`
	Subject              string `json:"subject"`
	Schema               string `json:"schema"`
	CredentialDefinition string `json:"credentialDefinition"`
	Nonce                string `json:"nonce"`
}

// CredentialRequest carries the prover's blinded secrets toward issuance. It
// must echo the nonce of the CredentialOffer it answers.
type CredentialRequest struct {
	Subject                               string `json:"subject"`
	CredentialDefinition                   string `json:"credentialDefinition"`
	BlindedCredentialSecrets               string `json:"blindedCredentialSecrets"`
	BlindedCredentialSecretsCorrectnessProof string `json:"blindedCredentialSecretsCorrectnessProof"`
	Nonce                                  string `json:"nonce"`
}

// CredentialSecretsBlindingFactors is the prover-private counterpart of a
// CredentialRequest; it never crosses the message interface.
type CredentialSecretsBlindingFactors struct {
	Subject    string `json:"subject"`
	Blinding   string `json:"blinding"`
}

// AttributeValue carries both representations of a disclosed attribute: the
// original string and its CL-integer encoding. Both are always retained;
// verifiers recompute Encoded from Raw and compare rather than attempting to
// invert a hashed encoding.
type AttributeValue struct {
	Raw     string `json:"raw"`
	Encoded string `json:"encoded"`
}

// CredentialSignature is the issuer's CL signature over one credential's
// blinded secrets, pinned to the accumulator state it was issued against.
type CredentialSignature struct {
	Signature                  string `json:"signature"`
	CorrectnessProof           string `json:"correctnessProof"`
	IssuanceNonce               string `json:"issuanceNonce"`
	CredentialDefinition        string `json:"credentialDefinition"`
	RevocationRegistryDefinition string `json:"revocationRegistryDefinition"`
	RevocationID                 uint32 `json:"revocationId"`
}

// Credential is the prover-held, signed artifact issued by one Issuer
// operation. It is never registered as a whole; only its referenced public
// artifacts (schema, definition, revocation registry definition) live in the
// Registry.
type Credential struct {
	Schema  string                    `json:"schema"`
	Issuer  string                    `json:"issuer"`
	Subject string                    `json:"subject"`
	Values  map[string]AttributeValue `json:"values"`
	Signature CredentialSignature     `json:"signature"`
}

// Witness is the prover-side accumulator membership witness for one
// credential. It is private and must be refreshed via WitnessUpdate whenever
// the accumulator advances past the witness's pinned state.
type Witness struct {
	RevocationRegistryDefinition string `json:"revocationRegistryDefinition"`
	RevocationID                 uint32 `json:"revocationId"`
	Value                        string `json:"value"`
	PinnedAccum                  string `json:"pinnedAccum"`
}

// SubProofRequest is one element of a ProofRequest: which schema, and which
// of its attributes must be revealed.
type SubProofRequest struct {
	SchemaID          string   `json:"schemaId"`
	RevealedAttributes []string `json:"revealedAttributes"`
}

// ProofRequest is the verifier's challenge: a fresh nonce plus an ordered
// list of per-credential disclosure requirements.
type ProofRequest struct {
	Verifier         string            `json:"verifier"`
	Prover           string            `json:"prover"`
	Nonce            string            `json:"nonce"`
	SubProofRequests []SubProofRequest `json:"subProofRequests"`
}

// AggregatedProof is the opaque, CryptoEngine-produced multi-credential ZK
// proof object, keyed by the ProofRequest's nonce.
type AggregatedProof struct {
	Nonce           string `json:"nonce"`
	AggregatedProof string `json:"aggregatedProof"`
}

// VerifiableCredentialEntry is one index-aligned element of a
// ProofPresentation, carrying the revealed values and the three identifiers
// needed to resolve the credential's public artifacts.
type VerifiableCredentialEntry struct {
	SchemaID                     string                    `json:"schemaId"`
	CredentialDefinitionID        string                    `json:"credentialDefinitionId"`
	RevocationRegistryDefinitionID string                   `json:"revocationRegistryDefinitionId"`
	RevocationID                   uint32                    `json:"revocationId"`
	RevealedValues                map[string]AttributeValue `json:"revealedValues"`
	SubProof                      string                    `json:"subProof"`
}

// ProofPresentation is the prover's answer to a ProofRequest.
// VerifiableCredential is index-aligned with the originating ProofRequest's
// SubProofRequests; verifiers depend on this alignment.
type ProofPresentation struct {
	Proof                 AggregatedProof             `json:"proof"`
	VerifiableCredential   []VerifiableCredentialEntry `json:"verifiableCredential"`
}

// VerificationStatus is the outcome of verify_proof.
type VerificationStatus string

const (
	StatusVerified VerificationStatus = "Verified"
	StatusRejected VerificationStatus = "Rejected"
)

// ProofVerification is the result returned by the verifier; it never signals
// failure through the error channel.
type ProofVerification struct {
	Status VerificationStatus `json:"status"`
	Reason string              `json:"reason,omitempty"`
}
