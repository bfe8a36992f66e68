// Package crypto declares the CryptoEngine contract: the opaque CL-signature
// and accumulator primitives that the issuer, prover and verifier roles
// compose but never implement directly. Composition rules live in pkg/issuer,
// pkg/prover and pkg/verifier; this package only fixes the shape of the
// primitives those rules call.
package crypto

// CredentialSchemaDescriptor is the CL-level schema handed to KeyGen and the
// proof builders: the sorted attribute names of a credential.Schema plus the
// fixed non-credential-schema attribute (master_secret).
type CredentialSchemaDescriptor struct {
	Attributes             []string
	NonCredentialAttributes []string
}

// KeyGenResult is the output of generating a fresh CL issuer keypair for one
// CredentialSchemaDescriptor.
type KeyGenResult struct {
	PublicKey                 string
	PrivateKey                string
	PublicKeyCorrectnessProof string
}

// AccumulatorInit is the output of provisioning a fresh revocation
// accumulator for up to maxCredentials members.
type AccumulatorInit struct {
	PublicKey      string
	Tails          string
	InitialAccum   string
}

// BlindResult is the prover-side output of blinding a master secret and a
// credential's encoded attribute values under an issuer's public key.
type BlindResult struct {
	BlindedCredentialSecrets               string
	BlindedCredentialSecretsCorrectnessProof string
	BlindingFactors                         string
}

// SignResult is the issuer-side output of signing a blinded credential
// request against the current accumulator and a freshly allocated
// revocation id.
type SignResult struct {
	Signature        string
	CorrectnessProof string
	Witness          string
	UpdatedAccum     string
	Delta            string
}

// ProofBuilder accumulates per-credential sub-proofs for a single
// presentation before being finalised into an AggregatedProof.
type ProofBuilder interface {
	// AddSubProof registers one credential's disclosure against its
	// schema descriptor, revealed attribute names, full attribute value
	// set, the issuer public key and signature it was issued under, its
	// non-revocation witness and the accumulator it was pinned against,
	// and its allocated revocation id. publicKey must be the same encoded
	// credential definition public key the verifier resolves for this
	// sub-proof's schema, since the disclosure proof is bound to it.
	AddSubProof(descriptor CredentialSchemaDescriptor, revealed []string, values map[string]string, publicKey string, signature string, witness string, pinnedAccum string, revocationID uint32) error

	// Finalize produces the aggregated ZK proof keyed by nonce, plus the
	// serialised per-credential sub-proofs in registration order.
	Finalize(nonce string, masterSecret string) (aggregated string, subProofs []string, err error)
}

// Engine is the CL + accumulator primitive surface. All operations are
// synchronous compute; no suspension points.
type Engine interface {
	// GenerateCredentialKeyPair produces a fresh CL issuer keypair bound
	// to descriptor's attribute ordering.
	GenerateCredentialKeyPair(descriptor CredentialSchemaDescriptor) (KeyGenResult, error)

	// InitAccumulator provisions a fresh revocation accumulator holding
	// up to maxCredentials members.
	InitAccumulator(maxCredentials uint32) (AccumulatorInit, error)

	// IssueNonce returns a fresh, cryptographically random nonce for an
	// offer or proof request.
	IssueNonce() (string, error)

	// Blind produces blinded credential secrets for masterSecret and
	// encodedValues under publicKey, bound to offerNonce.
	Blind(publicKey string, descriptor CredentialSchemaDescriptor, masterSecret string, encodedValues map[string]string, offerNonce string) (BlindResult, error)

	// VerifyBlindingCorrectness checks a BlindResult's correctness proof
	// against the nonce it was built for.
	VerifyBlindingCorrectness(publicKey string, blindedSecrets string, correctnessProof string, nonce string) error

	// Sign consumes blinded secrets plus the revealed-at-issuance
	// attribute encoding and the current accumulator state, allocating
	// revocationID's membership, and returns the signature plus updated
	// accumulator.
	Sign(privateKey string, descriptor CredentialSchemaDescriptor, blindedSecrets string, encodedValues map[string]string, accumPublicKey string, tails string, currentAccum string, revocationID uint32) (SignResult, error)

	// Revoke recomputes the accumulator excluding revocationID.
	Revoke(accumPublicKey string, tails string, currentAccum string, issued []uint32, revocationID uint32) (updatedAccum string, delta string, err error)

	// NewProofBuilder returns a fresh builder for one presentation.
	NewProofBuilder() ProofBuilder

	// VerifyAggregatedProof verifies aggregated against the reconstructed
	// schema descriptors / revealed-attribute sets (one per sub-proof, in
	// order) and the pinned public keys / accumulator states, keyed by
	// nonce. Returns nil iff the proof verifies.
	VerifyAggregatedProof(aggregated string, subProofs []string, nonce string, checks []VerificationInput) error

	// UpdateWitness refreshes a stale witness to the current accumulator
	// using the deltas accumulated since the witness's pinned state.
	UpdateWitness(witness string, accumPublicKey string, tails string, issuedSince []uint32, revokedSince []uint32) (string, error)
}

// VerificationInput is the per-index material the verifier reconstructs
// identically to the prover before calling VerifyAggregatedProof.
type VerificationInput struct {
	Descriptor     CredentialSchemaDescriptor
	Revealed       map[string]string
	PublicKey      string
	AccumPublicKey string
	PinnedAccum    string
	RevocationID   uint32
}
