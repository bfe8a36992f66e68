// Package gabiengine adapts github.com/privacybydesign/gabi's Camenisch–
// Lysyanskaya primitives to the crypto.Engine contract. The retrieval pack's
// gabi snapshot ships the CL signature and key type definitions
// (clsignature.go, keys.go, gabikeys/sysparams.go) but not the package's
// private group-element plumbing (internal/common, revocation, rangeproof),
// so this engine reproduces the exact equations those files define directly
// over math/big rather than calling unseen library internals — see
// DESIGN.md for the full accounting of what is reproduced versus what is
// out of scope. Issuer keypairs, blinded-secret commitments, signatures,
// accumulator updates and the aggregated disclosure proof are all exposed to
// callers only as their canonical hex/decimal string encodings, per the wire
// format rule that CryptoEngine-native strings pass through verbatim.
package gabiengine

import (
	"fmt"
	"math/big"

	"github.com/privacybydesign/gabi/gabikeys"

	"credential-hub/internal/errorkit"
	"credential-hub/pkg/crypto"
)

// keyBits is the RSA modulus size used for freshly generated issuer
// keypairs and accumulators, matching gabi's 2048-bit default system
// parameters.
const keyBits = 2048

// maxAttributes bounds the number of CL bases an issuer keypair carries,
// mirroring gabi's own fixed attribute-slot limit.
const maxAttributes = 16

// Engine implements crypto.Engine over gabi's issuer-key and big-integer
// primitives. One Engine is stateless and safe for concurrent use; all
// mutable state (accumulators, allocators) is threaded through call
// arguments and return values, per the value-not-shared-object design of
// the revocation registry.
type Engine struct {
	params *gabikeys.SystemParameters
}

// New returns an Engine using gabi's default 2048-bit system parameters.
func New() *Engine {
	return &Engine{params: gabikeys.DefaultSystemParameters[keyBits]}
}

// GenerateCredentialKeyPair builds a fresh safe-prime RSA modulus with one
// CL base per descriptor attribute slot (index 0 reserved for the blinded
// master secret) and a Schnorr proof that Z was honestly derived from S,
// following gabi's own key-generation shape.
func (e *Engine) GenerateCredentialKeyPair(descriptor crypto.CredentialSchemaDescriptor) (crypto.KeyGenResult, error) {
	numBases := len(descriptor.Attributes) + len(descriptor.NonCredentialAttributes)
	if numBases > maxAttributes {
		return crypto.KeyGenResult{}, errorkit.CryptoFailuref("attribute count %d exceeds engine maximum %d", numBases, maxAttributes)
	}

	priv, pub, correctness, err := generateRSAModulus(keyBits, numBases)
	if err != nil {
		return crypto.KeyGenResult{}, errorkit.CryptoFailuref("generating CL issuer keypair: %v", err)
	}
	pub.Params = e.params

	pubEnc, err := encodePublicKey(pub)
	if err != nil {
		return crypto.KeyGenResult{}, err
	}
	privEnc, err := encodePrivateKey(priv, pub)
	if err != nil {
		return crypto.KeyGenResult{}, err
	}

	return crypto.KeyGenResult{
		PublicKey:                 pubEnc,
		PrivateKey:                privEnc,
		PublicKeyCorrectnessProof: correctness,
	}, nil
}

// InitAccumulator provisions a fresh RSA accumulator: a modulus/generator
// pair plus the generator itself as the empty accumulator (accum = G^1,
// the empty product of member primes). tails is a descriptive capacity
// marker, not cryptographic material; no operation of this engine reads it
// back.
func (e *Engine) InitAccumulator(maxCredentials uint32) (crypto.AccumulatorInit, error) {
	if maxCredentials == 0 {
		return crypto.AccumulatorInit{}, errorkit.Malformedf("maximum_credential_count must be positive")
	}
	n, g, err := generateAccumulatorKey(keyBits)
	if err != nil {
		return crypto.AccumulatorInit{}, errorkit.CryptoFailuref("generating accumulator key: %v", err)
	}
	return crypto.AccumulatorInit{
		PublicKey:    encodeAccumulatorKey(n, g),
		Tails:        fmt.Sprintf("tails:capacity=%d", maxCredentials),
		InitialAccum: g.String(),
	}, nil
}

// IssueNonce returns a fresh, cryptographically random nonce for an offer
// or proof request.
func (e *Engine) IssueNonce() (string, error) {
	return randomHex(16), nil
}

// Blind computes U = S^v1 * R0^m0 mod N, the blinded master-secret
// commitment CLSignature folds permanently into the signed equation (see
// signMessageBlockAndCommitment), plus a Schnorr proof of knowledge of
// (v1, m0) bound to offerNonce and U itself.
func (e *Engine) Blind(publicKey string, descriptor crypto.CredentialSchemaDescriptor, masterSecret string, encodedValues map[string]string, offerNonce string) (crypto.BlindResult, error) {
	pub, err := decodePublicKey(publicKey)
	if err != nil {
		return crypto.BlindResult{}, err
	}
	if len(pub.R) == 0 {
		return crypto.BlindResult{}, errorkit.CryptoFailuref("public key carries no CL bases")
	}

	m0, ok := new(big.Int).SetString(crypto.EncodeAttribute(masterSecret), 10)
	if !ok {
		return crypto.BlindResult{}, errorkit.CryptoFailuref("encoding master secret")
	}

	v1, err := sampleBits(e.params.LvPrime)
	if err != nil {
		return crypto.BlindResult{}, errorkit.CryptoFailuref("sampling blinding exponent: %v", err)
	}

	u := new(big.Int).Exp(pub.S, v1, pub.N)
	u.Mod(u.Mul(u, new(big.Int).Exp(pub.R[0], m0, pub.N)), pub.N)

	r1, err := sampleBits(e.params.LvPrimeCommit)
	if err != nil {
		return crypto.BlindResult{}, errorkit.CryptoFailuref("sampling blinding proof randomizer: %v", err)
	}
	r0, err := sampleBits(e.params.LmCommit)
	if err != nil {
		return crypto.BlindResult{}, errorkit.CryptoFailuref("sampling blinding proof randomizer: %v", err)
	}

	nonceInt := hashStringsToBigInt(offerNonce)
	t, c, resp := proveKnowledge(pub.N, []*big.Int{pub.S, pub.R[0]}, []*big.Int{v1, m0}, []*big.Int{r1, r0}, u, nonceInt)

	return crypto.BlindResult{
		BlindedCredentialSecrets:                 u.String(),
		BlindedCredentialSecretsCorrectnessProof: encodeSchnorrProof(t, c, resp),
		BlindingFactors:                          v1.String(),
	}, nil
}

// VerifyBlindingCorrectness checks the Schnorr proof Blind produced, without
// ever learning v1 or the master secret m0 it hid.
func (e *Engine) VerifyBlindingCorrectness(publicKey, blindedSecrets, correctnessProof, nonce string) error {
	pub, err := decodePublicKey(publicKey)
	if err != nil {
		return err
	}
	if len(pub.R) == 0 {
		return errorkit.CryptoFailuref("public key carries no CL bases")
	}
	u, ok := new(big.Int).SetString(blindedSecrets, 10)
	if !ok {
		return errorkit.Malformedf("blinded credential secrets is not a valid integer")
	}
	proof, err := decodeSchnorrProof(correctnessProof)
	if err != nil {
		return err
	}

	nonceInt := hashStringsToBigInt(nonce)
	if !verifyKnowledge(pub.N, []*big.Int{pub.S, pub.R[0]}, u, proof.Resp, proof.C, u, nonceInt) {
		return errorkit.CryptoFailuref("blinded-secrets correctness proof does not verify")
	}
	return nil
}

// Sign computes the real CL blind signature over the blinded master-secret
// commitment plus the revealed-at-issuance attribute values, following
// CLSignature's signMessageBlockAndCommitment exactly: R = Π R_i^{m_i},
// v = 2^(Lv-1) + vTilde, numerator = S^v * R * U, Q = Z * numerator^-1,
// e prime in [2^(Le-1), 2^(Le-1)+2^(LePrime-1)), A = Q^(e^-1 mod P'Q'). U
// is folded permanently into the signature; there is no unblind step
// anywhere in this module, so U travels onward as public signature
// material (see DESIGN.md). The returned witness is the accumulator value
// immediately before revocationID's prime is multiplied in — the "elegant
// fact" that makes a freshly issued witness self-consistent without any
// further computation.
func (e *Engine) Sign(privateKey string, descriptor crypto.CredentialSchemaDescriptor, blindedSecrets string, encodedValues map[string]string, accumPublicKey, tails, currentAccum string, revocationID uint32) (crypto.SignResult, error) {
	priv, pub, err := decodePrivateKey(privateKey)
	if err != nil {
		return crypto.SignResult{}, err
	}
	u, ok := new(big.Int).SetString(blindedSecrets, 10)
	if !ok {
		return crypto.SignResult{}, errorkit.Malformedf("blinded credential secrets is not a valid integer")
	}

	repr := big.NewInt(1)
	for _, name := range descriptor.Attributes {
		idx := attributeIndex(descriptor.Attributes, name)
		if idx >= len(pub.R) {
			return crypto.SignResult{}, errorkit.CryptoFailuref("attribute %q has no CL base", name)
		}
		raw, ok := encodedValues[name]
		if !ok {
			return crypto.SignResult{}, errorkit.MissingArtifactf("no encoded value for attribute %q", name)
		}
		mi, ok := new(big.Int).SetString(raw, 10)
		if !ok {
			return crypto.SignResult{}, errorkit.Malformedf("attribute %q value is not a valid encoded integer", name)
		}
		repr.Mod(repr.Mul(repr, new(big.Int).Exp(pub.R[idx], mi, pub.N)), pub.N)
	}

	vTilde, err := sampleBits(e.params.Lv - 1)
	if err != nil {
		return crypto.SignResult{}, errorkit.CryptoFailuref("sampling signature v: %v", err)
	}
	v := new(big.Int).Add(new(big.Int).Lsh(bigOne, e.params.Lv-1), vTilde)

	numerator := new(big.Int).Exp(pub.S, v, pub.N)
	numerator.Mod(numerator.Mul(numerator, repr), pub.N)
	numerator.Mod(numerator.Mul(numerator, u), pub.N)

	inv := new(big.Int).ModInverse(numerator, pub.N)
	if inv == nil {
		return crypto.SignResult{}, errorkit.CryptoFailuref("blinded secrets are not invertible mod N")
	}
	q := new(big.Int).Mod(new(big.Int).Mul(pub.Z, inv), pub.N)

	eExp, err := randomPrimeInRange(e.params.Le-1, e.params.LePrime-1)
	if err != nil {
		return crypto.SignResult{}, errorkit.CryptoFailuref("sampling signature e: %v", err)
	}

	order := new(big.Int).Mul(priv.PPrime, priv.QPrime)
	d := new(big.Int).ModInverse(eExp, order)
	if d == nil {
		return crypto.SignResult{}, errorkit.CryptoFailuref("signature exponent has no inverse mod group order")
	}
	a := new(big.Int).Exp(q, d, pub.N)

	// Correctness proof: knowledge of v as used in this signature's S^v
	// term. Like PublicKeyCorrectnessProof, nothing downstream independently
	// re-verifies this; it is kept as a genuine artifact rather than a
	// disguised digest. See DESIGN.md.
	sTarget := new(big.Int).Exp(pub.S, v, pub.N)
	rnd, err := sampleBits(e.params.LvCommit)
	if err != nil {
		return crypto.SignResult{}, errorkit.CryptoFailuref("sampling correctness-proof randomizer: %v", err)
	}
	t, c, resp := proveKnowledge(pub.N, []*big.Int{pub.S}, []*big.Int{v}, []*big.Int{rnd}, sTarget, eExp)

	accN, _, err := decodeAccumulatorKey(accumPublicKey)
	if err != nil {
		return crypto.SignResult{}, err
	}
	accumVal, ok := new(big.Int).SetString(currentAccum, 10)
	if !ok {
		return crypto.SignResult{}, errorkit.Malformedf("current accumulator is not a valid integer")
	}
	updated := new(big.Int).Exp(accumVal, revocationPrime(revocationID), accN)

	return crypto.SignResult{
		Signature:        encodeSignature(wireSignature{A: a, E: eExp, V: v, U: u}),
		CorrectnessProof: encodeSchnorrProof(t, c, resp),
		Witness:          encodeWitness(accumVal, revocationID),
		UpdatedAccum:     updated.String(),
		Delta:            fmt.Sprintf("issued:%d", revocationID),
	}, nil
}

// Revoke recomputes the accumulator from scratch over every currently
// issued id except revocationID: accum = G^(Π primes(remaining)) mod N.
// Witnesses pinned against the accumulator value from before this call
// become stale for every OTHER member (UpdateWitness does not refresh a
// witness across a revocation; see its doc); the
// revoked member's own credential fails verification through
// revocation.IsActive's plaintext Issued/Revoked check before any crypto
// call is made (see pkg/verifier).
func (e *Engine) Revoke(accumPublicKey, tails, currentAccum string, issued []uint32, revocationID uint32) (string, string, error) {
	found := false
	for _, id := range issued {
		if id == revocationID {
			found = true
			break
		}
	}
	if !found {
		return "", "", errorkit.NotIssuedf("revocation id %d not found among issued ids", revocationID)
	}

	n, g, err := decodeAccumulatorKey(accumPublicKey)
	if err != nil {
		return "", "", err
	}

	updated := new(big.Int).Set(g)
	for _, id := range issued {
		if id == revocationID {
			continue
		}
		updated.Exp(updated, revocationPrime(id), n)
	}

	return updated.String(), fmt.Sprintf("revoked:%d", revocationID), nil
}

// NewProofBuilder returns a fresh builder for one presentation. Building
// the actual zero-knowledge sub-proofs is deferred to Finalize, since the
// presentation nonce and the randomised per-credential blinding are only
// meaningful together, at finalisation time.
func (e *Engine) NewProofBuilder() crypto.ProofBuilder {
	return &proofBuilder{engine: e}
}

// proofBuilder accumulates the per-credential disclosure inputs needed to
// produce an aggregated proof, mirroring the register-then-finalise shape
// of gabi's ProofBuilderList.
type proofBuilder struct {
	engine *Engine
	parts  []subProofEntry
}

type subProofEntry struct {
	descriptor   crypto.CredentialSchemaDescriptor
	revealed     []string
	values       map[string]string
	publicKey    string
	signature    string
	witness      string
	pinnedAccum  string
	revocationID uint32
}

func (b *proofBuilder) AddSubProof(descriptor crypto.CredentialSchemaDescriptor, revealed []string, values map[string]string, publicKey, signature, witness, pinnedAccum string, revocationID uint32) error {
	b.parts = append(b.parts, subProofEntry{
		descriptor:   descriptor,
		revealed:     append([]string(nil), revealed...),
		values:       values,
		publicKey:    publicKey,
		signature:    signature,
		witness:      witness,
		pinnedAccum:  pinnedAccum,
		revocationID: revocationID,
	})
	return nil
}

// Finalize's masterSecret parameter is accepted per the ProofBuilder
// contract but unused: U already folds the master secret's contribution in
// permanently at issuance (see Blind), and is never reopened here (see
// buildSubProof's doc comment).
func (b *proofBuilder) Finalize(nonce, masterSecret string) (string, []string, error) {
	subProofs := make([]string, len(b.parts))
	for i, part := range b.parts {
		sp, err := b.engine.buildSubProof(part, nonce)
		if err != nil {
			return "", nil, err
		}
		subProofs[i] = sp
	}

	aggregated := hashStringsToBigInt(append([]string{nonce}, subProofs...)...)
	return aggregated.String(), subProofs, nil
}

// buildSubProof randomises the credential's signature (A' = A*S^r,
// v' = v - e*r, per CLSignature.Randomize) and builds a generalised
// Schnorr proof of knowledge of (e, v', hidden attribute values) such that
// Target = A'^e * S^v' * Π_hidden R_i^{m_i} mod N, where Target is Z with U
// and every revealed attribute's contribution divided out. U is not
// reopened here: it travels as public signature material, so master-secret
// binding is enforced at issuance (Blind's proof) and not re-proven at
// presentation — see DESIGN.md for why (request_credential's blinding
// factors are never threaded to present_proof).
func (e *Engine) buildSubProof(part subProofEntry, nonce string) (string, error) {
	pub, err := decodePublicKey(part.publicKey)
	if err != nil {
		return "", err
	}
	sig, err := decodeSignature(part.signature)
	if err != nil {
		return "", err
	}
	witness, err := decodeWitness(part.witness)
	if err != nil {
		return "", err
	}
	pinnedAccum, ok := new(big.Int).SetString(part.pinnedAccum, 10)
	if !ok {
		return "", errorkit.Malformedf("pinned accumulator is not a valid integer")
	}

	r, err := sampleBits(e.params.LRA)
	if err != nil {
		return "", errorkit.CryptoFailuref("sampling randomization exponent: %v", err)
	}
	aPrime := new(big.Int).Exp(pub.S, r, pub.N)
	aPrime.Mod(aPrime.Mul(aPrime, sig.A), pub.N)
	vPrime := new(big.Int).Sub(sig.V, new(big.Int).Mul(sig.E, r))

	revealedSet := make(map[string]bool, len(part.revealed))
	for _, name := range part.revealed {
		revealedSet[name] = true
	}
	hidden := hiddenAttributes(part.descriptor.Attributes, revealedSet)

	revealedProduct := big.NewInt(1)
	for _, name := range part.revealed {
		idx := attributeIndex(part.descriptor.Attributes, name)
		mi, ok := new(big.Int).SetString(part.values[name], 10)
		if !ok {
			return "", errorkit.Malformedf("revealed attribute %q value is not a valid encoded integer", name)
		}
		revealedProduct.Mod(revealedProduct.Mul(revealedProduct, new(big.Int).Exp(pub.R[idx], mi, pub.N)), pub.N)
	}

	combinedPublic := new(big.Int).Mod(new(big.Int).Mul(sig.U, revealedProduct), pub.N)
	inv := new(big.Int).ModInverse(combinedPublic, pub.N)
	if inv == nil {
		return "", errorkit.CryptoFailuref("revealed/blinding product is not invertible mod N")
	}
	target := new(big.Int).Mod(new(big.Int).Mul(pub.Z, inv), pub.N)

	bases := make([]*big.Int, 0, 2+len(hidden))
	secrets := make([]*big.Int, 0, 2+len(hidden))
	randoms := make([]*big.Int, 0, 2+len(hidden))

	bases = append(bases, aPrime, pub.S)
	secrets = append(secrets, sig.E, vPrime)
	rE, err := sampleBits(e.params.LeCommit)
	if err != nil {
		return "", errorkit.CryptoFailuref("sampling e randomizer: %v", err)
	}
	rV, err := sampleBits(e.params.LvPrimeCommit)
	if err != nil {
		return "", errorkit.CryptoFailuref("sampling v' randomizer: %v", err)
	}
	randoms = append(randoms, rE, rV)

	for _, name := range hidden {
		idx := attributeIndex(part.descriptor.Attributes, name)
		mi, ok := new(big.Int).SetString(part.values[name], 10)
		if !ok {
			return "", errorkit.Malformedf("hidden attribute %q value is not a valid encoded integer", name)
		}
		ri, err := sampleBits(e.params.LmCommit)
		if err != nil {
			return "", errorkit.CryptoFailuref("sampling hidden-attribute randomizer: %v", err)
		}
		bases = append(bases, pub.R[idx])
		secrets = append(secrets, mi)
		randoms = append(randoms, ri)
	}

	nonceInt := hashStringsToBigInt(nonce)
	revocationIDInt := big.NewInt(int64(part.revocationID))
	t, c, resp := proveKnowledge(pub.N, bases, secrets, randoms, target, nonceInt, pinnedAccum, revocationIDInt)

	sp := wireSubProof{
		APrime:       aPrime,
		U:            sig.U,
		Proof:        wireSchnorrProof{T: t, C: c, Resp: resp},
		WitnessValue: witness.Value,
		PinnedAccum:  pinnedAccum,
	}
	return encodeSubProof(sp), nil
}

// VerifyAggregatedProof recomputes each sub-proof's Target exactly as
// buildSubProof did, from the SAME decoded public key the prover used
// (check.PublicKey), and checks the Schnorr proof of knowledge against it;
// it then checks the non-revocation witness carried inside the sub-proof
// for self-consistency against its own pinned accumulator value
// (witnessValue^prime(revocationID) == pinnedAccum), rather than against
// the verifier's live registry accumulator — see DESIGN.md for why: no
// witness-refresh call is wired into present_proof, so a witness computed
// at issuance is only guaranteed self-consistent with the accumulator value
// it was pinned against, not against later revocations by other members.
// Real-time revocation status is enforced by revocation.IsActive before
// this method is ever called.
func (e *Engine) VerifyAggregatedProof(aggregated string, subProofs []string, nonce string, checks []crypto.VerificationInput) error {
	if len(subProofs) != len(checks) {
		return errorkit.CryptoFailuref("sub-proof count %d does not match check count %d", len(subProofs), len(checks))
	}

	expectedAgg := hashStringsToBigInt(append([]string{nonce}, subProofs...)...)
	gotAgg, ok := new(big.Int).SetString(aggregated, 10)
	if !ok || gotAgg.Cmp(expectedAgg) != 0 {
		return errorkit.CryptoFailuref("aggregated proof does not bind the presentation nonce and sub-proofs")
	}

	nonceInt := hashStringsToBigInt(nonce)

	for i, encoded := range subProofs {
		check := checks[i]
		sp, err := decodeSubProof(encoded)
		if err != nil {
			return err
		}
		pub, err := decodePublicKey(check.PublicKey)
		if err != nil {
			return err
		}

		revealedNames := make([]string, 0, len(check.Revealed))
		for name := range check.Revealed {
			revealedNames = append(revealedNames, name)
		}
		revealedSet := make(map[string]bool, len(revealedNames))
		for _, name := range revealedNames {
			revealedSet[name] = true
		}
		hidden := hiddenAttributes(check.Descriptor.Attributes, revealedSet)

		revealedProduct := big.NewInt(1)
		for _, name := range revealedNames {
			idx := attributeIndex(check.Descriptor.Attributes, name)
			if idx <= 0 || idx >= len(pub.R) {
				return errorkit.CryptoFailuref("sub-proof %d: revealed attribute %q has no CL base", i, name)
			}
			mi, ok := new(big.Int).SetString(check.Revealed[name], 10)
			if !ok {
				return errorkit.Malformedf("sub-proof %d: revealed attribute %q value is not a valid encoded integer", i, name)
			}
			revealedProduct.Mod(revealedProduct.Mul(revealedProduct, new(big.Int).Exp(pub.R[idx], mi, pub.N)), pub.N)
		}

		combinedPublic := new(big.Int).Mod(new(big.Int).Mul(sp.U, revealedProduct), pub.N)
		inv := new(big.Int).ModInverse(combinedPublic, pub.N)
		if inv == nil {
			return errorkit.CryptoFailuref("sub-proof %d: revealed/blinding product is not invertible mod N", i)
		}
		target := new(big.Int).Mod(new(big.Int).Mul(pub.Z, inv), pub.N)

		bases := make([]*big.Int, 0, 2+len(hidden))
		bases = append(bases, sp.APrime, pub.S)
		for _, name := range hidden {
			idx := attributeIndex(check.Descriptor.Attributes, name)
			if idx <= 0 || idx >= len(pub.R) {
				return errorkit.CryptoFailuref("sub-proof %d: hidden attribute %q has no CL base", i, name)
			}
			bases = append(bases, pub.R[idx])
		}

		revocationIDInt := big.NewInt(int64(check.RevocationID))
		if !verifyKnowledge(pub.N, bases, target, sp.Proof.Resp, sp.Proof.C, target, nonceInt, sp.PinnedAccum, revocationIDInt) {
			return errorkit.CryptoFailuref("sub-proof %d does not verify against its credential definition public key", i)
		}

		accN, _, err := decodeAccumulatorKey(check.AccumPublicKey)
		if err != nil {
			return err
		}
		recomputed := new(big.Int).Exp(sp.WitnessValue, revocationPrime(check.RevocationID), accN)
		if recomputed.Cmp(sp.PinnedAccum) != 0 {
			return errorkit.CryptoFailuref("sub-proof %d: non-revocation witness is not self-consistent with its pinned accumulator", i)
		}
	}
	return nil
}

// UpdateWitness incorporates ids issued since the witness was computed by
// multiplying their primes into it (witness^(Π primes(issuedSince))), the
// same incremental step Sign's "pre-add accumulator" witness fact relies
// on in reverse. Removing a revoked member's prime from a witness requires
// an inverse exponentiation only the accumulator's factorisation permits,
// which this engine does not expose to callers; revokedSince is therefore
// unsupported here and credentials affected by a revocation must be
// re-witnessed by the issuer instead.
func (e *Engine) UpdateWitness(witness, accumPublicKey, tails string, issuedSince, revokedSince []uint32) (string, error) {
	if len(revokedSince) > 0 {
		return "", errorkit.UnsupportedMessagef("updating a witness across a revocation is not supported; re-issue a fresh witness instead")
	}
	if len(issuedSince) == 0 {
		return witness, nil
	}

	w, err := decodeWitness(witness)
	if err != nil {
		return "", err
	}
	n, _, err := decodeAccumulatorKey(accumPublicKey)
	if err != nil {
		return "", err
	}

	updated := new(big.Int).Set(w.Value)
	for _, id := range issuedSince {
		updated.Exp(updated, revocationPrime(id), n)
	}
	return encodeWitness(updated, w.Owner), nil
}
