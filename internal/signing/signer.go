// Package signing provides the Signer collaborator referenced by spec §3
// invariant 5: ECDSA signing and verification of a canonicalised document,
// carried as a compact-JWS proof block.
package signing

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/sigstore/sigstore/pkg/cryptoutils"
	"github.com/sigstore/sigstore/pkg/signature"

	"credential-hub/internal/errorkit"
	"credential-hub/pkg/credential"
)

func bytesReader(b []byte) io.Reader {
	return bytes.NewReader(b)
}

// jwsHeader is the compact-JWS protected header: ES256 over P-256, per
// original_source's proof.jws wire shape.
type jwsHeader struct {
	Alg string `json:"alg"`
	Typ string `json:"typ"`
}

// KeyRef names a signing key by an opaque reference the caller resolves to
// an actual keypair; the core never inspects key material directly.
type KeyRef string

// Signer signs and verifies proof blocks over canonicalised documents using
// ECDSA P-256, built on sigstore/sigstore's signature primitives.
type Signer struct {
	keys       map[KeyRef]*ecdsa.PrivateKey
	identities map[string]KeyRef
}

// NewSigner returns an empty Signer; keys are registered via GenerateKey.
func NewSigner() *Signer {
	return &Signer{
		keys:       make(map[KeyRef]*ecdsa.PrivateKey),
		identities: make(map[string]KeyRef),
	}
}

// GenerateKey creates and registers a fresh P-256 signing key under ref,
// which callers then pass as a signer_key_ref. The key itself stays inside
// the Signer and is not returned.
func (s *Signer) GenerateKey(ref KeyRef) error {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return errorkit.CryptoFailuref("generating signing key for %q: %v", ref, err)
	}
	s.keys[ref] = key
	return nil
}

// Sign canonicalises payload (any JSON-marshalable document with its proof
// field already stripped) and returns a ProofBlock authenticating it under
// ref's key.
func (s *Signer) Sign(ref KeyRef, verificationMethod string, payload interface{}, now time.Time) (*credential.ProofBlock, error) {
	key, ok := s.keys[ref]
	if !ok {
		return nil, errorkit.MissingArtifactf("signing key %q not found", ref)
	}

	canonical, err := canonicalize(payload)
	if err != nil {
		return nil, err
	}

	signer, err := signature.LoadECDSASigner(key, nil)
	if err != nil {
		return nil, errorkit.CryptoFailuref("loading ECDSA signer: %v", err)
	}

	header := base64.RawURLEncoding.EncodeToString(mustJSON(jwsHeader{Alg: "ES256", Typ: "JWT"}))
	body := base64.RawURLEncoding.EncodeToString(canonical)
	signingInput := []byte(header + "." + body)

	sig, err := signer.SignMessage(bytesReader(signingInput))
	if err != nil {
		return nil, errorkit.CryptoFailuref("signing document: %v", err)
	}

	jws := header + "." + body + "." + base64.RawURLEncoding.EncodeToString(sig)

	s.identities[verificationMethod] = ref

	return &credential.ProofBlock{
		Type:               "EcdsaSecp256r1Signature",
		Created:            now.UTC().Format(time.RFC3339),
		VerificationMethod: verificationMethod,
		JWS:                jws,
	}, nil
}

// Verify checks proof's compact JWS against payload (with proof already
// stripped) using ref's public key.
func (s *Signer) Verify(ref KeyRef, payload interface{}, proof *credential.ProofBlock) error {
	if proof == nil {
		return errorkit.CryptoFailuref("document carries no proof block")
	}
	key, ok := s.keys[ref]
	if !ok {
		return errorkit.MissingArtifactf("signing key %q not found", ref)
	}

	parts, err := splitJWS(proof.JWS)
	if err != nil {
		return err
	}

	canonical, err := canonicalize(payload)
	if err != nil {
		return err
	}
	expectedBody := base64.RawURLEncoding.EncodeToString(canonical)
	if parts[1] != expectedBody {
		return errorkit.CryptoFailuref("proof body does not match canonicalised document")
	}

	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return errorkit.Malformedf("proof signature is not valid base64url: %v", err)
	}

	verifier, err := signature.LoadECDSAVerifier(&key.PublicKey, nil)
	if err != nil {
		return errorkit.CryptoFailuref("loading ECDSA verifier: %v", err)
	}

	signingInput := []byte(parts[0] + "." + parts[1])
	if err := verifier.VerifySignature(bytesReader(sig), bytesReader(signingInput)); err != nil {
		return errorkit.CryptoFailuref("proof signature does not verify: %v", err)
	}
	return nil
}

// VerifyDocument checks proof against payload (with proof already stripped)
// under whichever key last signed proof.VerificationMethod. This lets a
// Verifier role that never held the signing key itself authenticate an
// artifact's proof block, per spec.md §4.3 step 3, as long as it shares a
// Signer instance with the issuer that produced it.
func (s *Signer) VerifyDocument(payload interface{}, proof *credential.ProofBlock) error {
	if proof == nil {
		return errorkit.CryptoFailuref("document carries no proof block")
	}
	ref, ok := s.identities[proof.VerificationMethod]
	if !ok {
		return errorkit.MissingArtifactf("no signing key registered for verification method %q", proof.VerificationMethod)
	}
	return s.Verify(ref, payload, proof)
}

// PublicKeyPEM returns ref's public key in PEM form, for Registry-side
// publication of a DID document's verification method.
func (s *Signer) PublicKeyPEM(ref KeyRef) (string, error) {
	key, ok := s.keys[ref]
	if !ok {
		return "", errorkit.MissingArtifactf("signing key %q not found", ref)
	}
	pemBytes, err := cryptoutils.MarshalPublicKeyToPEM(&key.PublicKey)
	if err != nil {
		return "", errorkit.CryptoFailuref("marshalling public key: %v", err)
	}
	return string(pemBytes), nil
}

func canonicalize(payload interface{}) ([]byte, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, errorkit.Malformedf("canonicalising document for signing: %v", err)
	}
	return b, nil
}

func splitJWS(jws string) ([3]string, error) {
	var parts [3]string
	n := 0
	start := 0
	for i := 0; i < len(jws); i++ {
		if jws[i] == '.' {
			if n >= 2 {
				return parts, errorkit.Malformedf("proof.jws has too many segments")
			}
			parts[n] = jws[start:i]
			n++
			start = i + 1
		}
	}
	if n != 2 {
		return parts, errorkit.Malformedf("proof.jws must have exactly three dot-separated segments")
	}
	parts[2] = jws[start:]
	return parts, nil
}

func mustJSON(v interface{}) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("signing: marshalling constant header: %v", err))
	}
	return b
}
