package gabiengine

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"math/big"

	"github.com/privacybydesign/gabi/gabikeys"

	"credential-hub/internal/errorkit"
)

var bigOne = big.NewInt(1)
var bigTwo = big.NewInt(2)

// wirePrivateKey is the JSON shape of an issuer's secret key material.
// crypto.Engine.Sign is handed only the encoded private key, with no
// separate public-key parameter, so the bases Sign needs to build a
// signature (N, Z, S, R) travel alongside P, Q rather than being
// re-derived — exactly what an issuer would persist internally as its one
// secret keypair record, even though only P and Q are secret in the
// cryptographic sense. PPrime/QPrime are not carried on the wire; they are
// re-derived from P, Q on decode, exactly as gabi's own NewPrivateKey
// constructor does.
type wirePrivateKey struct {
	P *big.Int   `json:"p"`
	Q *big.Int   `json:"q"`
	N *big.Int   `json:"n"`
	Z *big.Int   `json:"z"`
	S *big.Int   `json:"s"`
	R []*big.Int `json:"r"`
}

type wirePublicKey struct {
	N *big.Int   `json:"n"`
	Z *big.Int   `json:"z"`
	S *big.Int   `json:"s"`
	R []*big.Int `json:"r"`
}

// wireAccumulatorKey is the RSA-accumulator analogue of wirePublicKey: a
// modulus N and generator G, independent of any credential definition's CL
// key, since InitAccumulator is handed only a maximum member count.
type wireAccumulatorKey struct {
	N *big.Int `json:"n"`
	G *big.Int `json:"g"`
}

// wireSignature is the CL signature triple (A, e, v) plus U, the blinded
// master-secret commitment Blind produced and Sign folded permanently into
// the signed equation Z = A^e * S^v * U * Π R_i^{m_i} mod N, in place of a
// separately disclosable R_0^{masterSecret} term. There is no unblinding
// step anywhere in this module's issuance flow (request_credential's
// blinding factors are never threaded to a later step), so U travels with
// the signature from issuance onward as public signature material; see
// DESIGN.md for what that does and does not bind at presentation time.
type wireSignature struct {
	A *big.Int `json:"a"`
	E *big.Int `json:"e"`
	V *big.Int `json:"v"`
	U *big.Int `json:"u"`
}

// wireWitness pairs a non-revocation witness value with the revocation id
// it was computed for, letting UpdateWitness and VerifyAggregatedProof work
// from the witness alone without a separate owner parameter.
type wireWitness struct {
	Value *big.Int `json:"value"`
	Owner uint32    `json:"owner"`
}

// wireSchnorrProof is a generalised Schnorr proof of knowledge of the
// exponents (secrets) of a product-of-powers target, relative to however
// many bases the caller used: one base and secret for a key-correctness
// proof, two for a blinding commitment, 2+k for a disclosure proof over k
// hidden attributes.
type wireSchnorrProof struct {
	T    *big.Int   `json:"t"`
	C    *big.Int   `json:"c"`
	Resp []*big.Int `json:"resp"`
}

// wireSubProof is one credential's disclosure proof within an aggregated
// presentation: A' (the randomised signature base), U (the signature's
// blinded master-secret commitment, travelling here as public signature
// material), the Schnorr proof of knowledge of (e, v', hidden attribute
// values) binding it to the credential definition's public key and the
// presentation nonce, and the non-revocation witness value together with
// the accumulator value it was pinned against. VerifyAggregatedProof checks
// the witness against this carried PinnedAccum, not the verifier's
// registry accumulator.
type wireSubProof struct {
	APrime       *big.Int         `json:"aPrime"`
	U            *big.Int         `json:"u"`
	Proof        wireSchnorrProof `json:"proof"`
	WitnessValue *big.Int         `json:"witnessValue"`
	PinnedAccum  *big.Int         `json:"pinnedAccum"`
}

// derivePrivateKey computes p', q' from p, q following gabi's own
// NewPrivateKey: p' = (p-1)/2, q' = (q-1)/2, valid since p, q are safe
// primes.
func derivePrivateKey(p, q *big.Int) *gabikeys.PrivateKey {
	pPrime := new(big.Int).Rsh(new(big.Int).Sub(p, bigOne), 1)
	qPrime := new(big.Int).Rsh(new(big.Int).Sub(q, bigOne), 1)
	return &gabikeys.PrivateKey{P: p, Q: q, PPrime: pPrime, QPrime: qPrime}
}

// generateRSAModulus produces a fresh issuer keypair following the same
// safe-prime construction gabi's own key generator uses: N = P*Q for two
// safe primes, S a quadratic residue mod both, Z derived from S, and one
// CL base R_i per attribute slot (index 0 reserved for the blinded master
// secret, 1..numBases-1 for the schema's credential attributes). It also
// returns a Schnorr proof of knowledge of Z's discrete log base S,
// demonstrating Z was honestly derived rather than chosen independently.
func generateRSAModulus(bits int, numBases int) (*gabikeys.PrivateKey, *gabikeys.PublicKey, string, error) {
	p, err := randomSafePrime(bits / 2)
	if err != nil {
		return nil, nil, "", err
	}
	q, err := randomSafePrime(bits / 2)
	if err != nil {
		return nil, nil, "", err
	}

	priv := derivePrivateKey(p, q)

	n := new(big.Int).Mul(p, q)
	s, err := randomQuadraticResidue(n, p, q)
	if err != nil {
		return nil, nil, "", err
	}
	x, err := rand.Int(rand.Reader, n)
	if err != nil {
		return nil, nil, "", err
	}
	z := new(big.Int).Exp(s, x, n)

	bases := make([]*big.Int, numBases)
	for i := range bases {
		xi, err := rand.Int(rand.Reader, n)
		if err != nil {
			return nil, nil, "", err
		}
		bases[i] = new(big.Int).Exp(s, xi, n)
	}

	pub := &gabikeys.PublicKey{N: n, Z: z, S: s, R: bases}

	r, err := sampleBits(uint(n.BitLen()) + 128)
	if err != nil {
		return nil, nil, "", err
	}
	t, c, resp := proveKnowledge(n, []*big.Int{s}, []*big.Int{x}, []*big.Int{r}, n)

	return priv, pub, encodeSchnorrProof(t, c, resp), nil
}

// generateAccumulatorKey produces a fresh RSA-accumulator modulus and
// generator, independent of any credential definition's CL key.
func generateAccumulatorKey(bits int) (*big.Int, *big.Int, error) {
	p, err := randomSafePrime(bits / 2)
	if err != nil {
		return nil, nil, err
	}
	q, err := randomSafePrime(bits / 2)
	if err != nil {
		return nil, nil, err
	}
	n := new(big.Int).Mul(p, q)
	g, err := randomQuadraticResidue(n, p, q)
	if err != nil {
		return nil, nil, err
	}
	return n, g, nil
}

func randomSafePrime(bits int) (*big.Int, error) {
	for {
		p, err := rand.Prime(rand.Reader, bits)
		if err != nil {
			return nil, err
		}
		half := new(big.Int).Rsh(p, 1)
		if half.ProbablyPrime(20) {
			return p, nil
		}
	}
}

func randomQuadraticResidue(n, p, q *big.Int) (*big.Int, error) {
	for {
		s, err := rand.Int(rand.Reader, n)
		if err != nil {
			return nil, err
		}
		if legendreSymbol(s, p) == 1 && legendreSymbol(s, q) == 1 {
			return s, nil
		}
	}
}

func legendreSymbol(a, p *big.Int) int {
	exp := new(big.Int).Rsh(new(big.Int).Sub(p, bigOne), 1)
	r := new(big.Int).Exp(a, exp, p)
	if r.Cmp(bigOne) == 0 {
		return 1
	}
	return -1
}

// revocationPrime deterministically maps a revocation id to a distinct
// prime used as its accumulator exponent. Ids are spaced 2^64 apart before
// searching upward for a prime, so the search ranges for distinct ids never
// overlap (prime gaps near numbers of this size are many orders of
// magnitude smaller than 2^64).
func revocationPrime(id uint32) *big.Int {
	candidate := new(big.Int).Lsh(big.NewInt(int64(id)+1), 64)
	candidate.Or(candidate, bigOne)
	for !candidate.ProbablyPrime(20) {
		candidate.Add(candidate, bigTwo)
	}
	return candidate
}

// sampleBits draws a uniform random non-negative integer with the given bit
// width, for use both as a genuine secret exponent (v1, v) and as a Schnorr
// commitment randomizer.
func sampleBits(bits uint) (*big.Int, error) {
	bound := new(big.Int).Lsh(bigOne, bits)
	return rand.Int(rand.Reader, bound)
}

// expSigned computes base^exponent mod m for a possibly negative exponent,
// via modular inverse. gabi's real CL disclosure math produces a negative
// v' = v - e*r after signature randomization; this is the standard way to
// evaluate S^v' mod N in that case.
func expSigned(base, exponent, m *big.Int) (*big.Int, error) {
	if exponent.Sign() >= 0 {
		return new(big.Int).Exp(base, exponent, m), nil
	}
	inv := new(big.Int).ModInverse(base, m)
	if inv == nil {
		return nil, errorkit.CryptoFailuref("base has no inverse mod modulus")
	}
	return new(big.Int).Exp(inv, new(big.Int).Neg(exponent), m), nil
}

// randomPrimeInRange draws a random prime in [2^startBits, 2^startBits +
// 2^widthBits], following the range CLSignature.Verify checks E against:
// a random offset of widthBits is added to the fixed floor 2^startBits and
// the search walks upward (by two, staying odd) for the next prime, retrying
// with a fresh offset if it would run past the range's ceiling.
func randomPrimeInRange(startBits, widthBits uint) (*big.Int, error) {
	floor := new(big.Int).Lsh(bigOne, startBits)
	ceil := new(big.Int).Add(floor, new(big.Int).Lsh(bigOne, widthBits))
	for {
		offset, err := sampleBits(widthBits)
		if err != nil {
			return nil, err
		}
		candidate := new(big.Int).Add(floor, offset)
		if candidate.Bit(0) == 0 {
			candidate.Add(candidate, bigOne)
		}
		for candidate.Cmp(ceil) <= 0 {
			if candidate.ProbablyPrime(20) {
				return candidate, nil
			}
			candidate.Add(candidate, bigTwo)
		}
	}
}

// attributeIndex returns name's position among attrs offset by one, since
// index 0 of a public key's R bases is reserved for the blinded master
// secret and indices 1..len(attrs) carry the schema's attributes in attrs'
// order. Returns -1 if name is not in attrs.
func attributeIndex(attrs []string, name string) int {
	for i, a := range attrs {
		if a == name {
			return i + 1
		}
	}
	return -1
}

// hiddenAttributes returns attrs minus the names present in revealed,
// preserving attrs' order, so both the prover and verifier derive the same
// hidden-attribute base ordering independently.
func hiddenAttributes(attrs []string, revealed map[string]bool) []string {
	hidden := make([]string, 0, len(attrs))
	for _, name := range attrs {
		if !revealed[name] {
			hidden = append(hidden, name)
		}
	}
	return hidden
}

// hashToBigInt is the Fiat-Shamir transform shared by every proof of
// knowledge below: a SHA-256 digest of the transcript, reinterpreted as a
// non-negative integer challenge. This is the standard way to make a
// Schnorr-style sigma protocol non-interactive; it is not a substitute for
// the modular-exponentiation checks that verify the proof itself.
func hashToBigInt(parts ...*big.Int) *big.Int {
	h := sha256.New()
	for _, p := range parts {
		if p == nil {
			h.Write([]byte{0})
			continue
		}
		h.Write(p.Bytes())
		h.Write([]byte{0})
	}
	return new(big.Int).SetBytes(h.Sum(nil))
}

func hashStringsToBigInt(parts ...string) *big.Int {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return new(big.Int).SetBytes(h.Sum(nil))
}

// proveKnowledge is a generalised Schnorr proof of knowledge of secrets
// such that target = Π bases[i]^secrets[i] mod n. randoms must be sampled
// by the caller with a bit width comfortably larger than the corresponding
// secret's, so the response statistically hides it; gabi's *Commit system
// parameters (LeCommit, LvCommit, LmCommit, ...) are exactly calibrated for
// this and are what this engine's callers use. secrets may be negative (a
// disclosure proof's v' is, after signature randomization), so responses
// are exponentiated via expSigned rather than assumed non-negative.
func proveKnowledge(n *big.Int, bases, secrets, randoms []*big.Int, context ...*big.Int) (t, c *big.Int, resp []*big.Int) {
	t = big.NewInt(1)
	for i := range bases {
		t.Mod(t.Mul(t, new(big.Int).Exp(bases[i], randoms[i], n)), n)
	}
	c = hashToBigInt(append([]*big.Int{t}, context...)...)
	resp = make([]*big.Int, len(bases))
	for i := range bases {
		resp[i] = new(big.Int).Add(randoms[i], new(big.Int).Mul(c, secrets[i]))
	}
	return t, c, resp
}

// verifyKnowledge checks a proveKnowledge transcript against the claimed
// target, recomputing T from the responses and the claimed challenge and
// checking the challenge was honestly derived from it. resp entries may be
// negative (see proveKnowledge); expSigned evaluates those via modular
// inverse instead of relying on undefined behaviour for negative exponents.
func verifyKnowledge(n *big.Int, bases []*big.Int, target *big.Int, resp []*big.Int, c *big.Int, context ...*big.Int) bool {
	if len(bases) != len(resp) {
		return false
	}
	lhs := big.NewInt(1)
	for i := range bases {
		p, err := expSigned(bases[i], resp[i], n)
		if err != nil {
			return false
		}
		lhs.Mod(lhs.Mul(lhs, p), n)
	}
	targetToC := new(big.Int).Exp(target, c, n)
	inv := new(big.Int).ModInverse(targetToC, n)
	if inv == nil {
		return false
	}
	tRecomputed := new(big.Int).Mod(new(big.Int).Mul(lhs, inv), n)
	cRecomputed := hashToBigInt(append([]*big.Int{tRecomputed}, context...)...)
	return cRecomputed.Cmp(c) == 0
}

func encodePublicKey(pub *gabikeys.PublicKey) (string, error) {
	b, err := json.Marshal(wirePublicKey{N: pub.N, Z: pub.Z, S: pub.S, R: pub.R})
	if err != nil {
		return "", errorkit.CryptoFailuref("encoding public key: %v", err)
	}
	return hex.EncodeToString(b), nil
}

func decodePublicKey(encoded string) (*gabikeys.PublicKey, error) {
	raw, err := hex.DecodeString(encoded)
	if err != nil {
		return nil, errorkit.Malformedf("public key is not valid hex: %v", err)
	}
	var w wirePublicKey
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, errorkit.Malformedf("public key payload malformed: %v", err)
	}
	return &gabikeys.PublicKey{N: w.N, Z: w.Z, S: w.S, R: w.R, Params: gabikeys.DefaultSystemParameters[keyBits]}, nil
}

func encodePrivateKey(priv *gabikeys.PrivateKey, pub *gabikeys.PublicKey) (string, error) {
	b, err := json.Marshal(wirePrivateKey{P: priv.P, Q: priv.Q, N: pub.N, Z: pub.Z, S: pub.S, R: pub.R})
	if err != nil {
		return "", errorkit.CryptoFailuref("encoding private key: %v", err)
	}
	return hex.EncodeToString(b), nil
}

// decodePrivateKey returns both halves of the issuer's keypair: the secret
// P, Q (with PPrime/QPrime re-derived) and the public bases Sign needs to
// build a signature without a separate public-key parameter.
func decodePrivateKey(encoded string) (*gabikeys.PrivateKey, *gabikeys.PublicKey, error) {
	raw, err := hex.DecodeString(encoded)
	if err != nil {
		return nil, nil, errorkit.Malformedf("private key is not valid hex: %v", err)
	}
	var w wirePrivateKey
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, nil, errorkit.Malformedf("private key payload malformed: %v", err)
	}
	priv := derivePrivateKey(w.P, w.Q)
	pub := &gabikeys.PublicKey{N: w.N, Z: w.Z, S: w.S, R: w.R, Params: gabikeys.DefaultSystemParameters[keyBits]}
	return priv, pub, nil
}

func encodeAccumulatorKey(n, g *big.Int) string {
	b, _ := json.Marshal(wireAccumulatorKey{N: n, G: g})
	return hex.EncodeToString(b)
}

func decodeAccumulatorKey(encoded string) (*big.Int, *big.Int, error) {
	raw, err := hex.DecodeString(encoded)
	if err != nil {
		return nil, nil, errorkit.Malformedf("accumulator public key is not valid hex: %v", err)
	}
	var w wireAccumulatorKey
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, nil, errorkit.Malformedf("accumulator public key payload malformed: %v", err)
	}
	return w.N, w.G, nil
}

func encodeSignature(sig wireSignature) string {
	b, _ := json.Marshal(sig)
	return hex.EncodeToString(b)
}

func decodeSignature(encoded string) (wireSignature, error) {
	var sig wireSignature
	raw, err := hex.DecodeString(encoded)
	if err != nil {
		return sig, errorkit.Malformedf("signature is not valid hex: %v", err)
	}
	if err := json.Unmarshal(raw, &sig); err != nil {
		return sig, errorkit.Malformedf("signature payload malformed: %v", err)
	}
	return sig, nil
}

func encodeWitness(value *big.Int, owner uint32) string {
	b, _ := json.Marshal(wireWitness{Value: value, Owner: owner})
	return hex.EncodeToString(b)
}

func decodeWitness(encoded string) (wireWitness, error) {
	var w wireWitness
	raw, err := hex.DecodeString(encoded)
	if err != nil {
		return w, errorkit.Malformedf("witness is not valid hex: %v", err)
	}
	if err := json.Unmarshal(raw, &w); err != nil {
		return w, errorkit.Malformedf("witness payload malformed: %v", err)
	}
	return w, nil
}

func encodeSchnorrProof(t, c *big.Int, resp []*big.Int) string {
	b, _ := json.Marshal(wireSchnorrProof{T: t, C: c, Resp: resp})
	return hex.EncodeToString(b)
}

func decodeSchnorrProof(encoded string) (wireSchnorrProof, error) {
	var w wireSchnorrProof
	raw, err := hex.DecodeString(encoded)
	if err != nil {
		return w, errorkit.Malformedf("correctness proof is not valid hex: %v", err)
	}
	if err := json.Unmarshal(raw, &w); err != nil {
		return w, errorkit.Malformedf("correctness proof payload malformed: %v", err)
	}
	return w, nil
}

func encodeSubProof(sp wireSubProof) string {
	b, _ := json.Marshal(sp)
	return hex.EncodeToString(b)
}

func decodeSubProof(encoded string) (wireSubProof, error) {
	var sp wireSubProof
	raw, err := hex.DecodeString(encoded)
	if err != nil {
		return sp, errorkit.Malformedf("sub-proof is not valid hex: %v", err)
	}
	if err := json.Unmarshal(raw, &sp); err != nil {
		return sp, errorkit.Malformedf("sub-proof payload malformed: %v", err)
	}
	return sp, nil
}

func randomHex(n int) string {
	buf := make([]byte, n)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
