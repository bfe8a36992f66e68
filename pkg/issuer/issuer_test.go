package issuer

import (
	"context"
	"testing"
	"time"

	"credential-hub/internal/registry"
	"credential-hub/internal/signing"
	"credential-hub/pkg/credential"
	"credential-hub/pkg/crypto"
	"credential-hub/pkg/crypto/gabiengine"
	"credential-hub/pkg/schema"
)

func testDescriptor(s credential.CredentialSchema) crypto.CredentialSchemaDescriptor {
	return crypto.CredentialSchemaDescriptor{
		Attributes:              schema.SortedAttributeNames(s.Properties),
		NonCredentialAttributes: []string{schema.NonCredentialSchemaAttribute},
	}
}

func newTestIssuer(t *testing.T) *Issuer {
	t.Helper()
	signer := signing.NewSigner()
	if err := signer.GenerateKey("issuer-key-1"); err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	reg := registry.New(registry.NewMemoryBackend(), nil)
	return New(gabiengine.New(), signer, reg)
}

func testSchemaProperties() map[string]credential.AttributeSchema {
	return map[string]credential.AttributeSchema{
		"name": {Type: credential.AttributeTypeString},
	}
}

func TestCreateCredentialSchemaRejectsUnknownRequired(t *testing.T) {
	iss := newTestIssuer(t)
	now := time.Unix(0, 0)
	_, err := iss.CreateCredentialSchema(context.Background(), "did:x:s1", "did:x:issuer1", "name schema", "", testSchemaProperties(), []string{"age"}, false, "issuer-key-1", now)
	if err == nil {
		t.Fatal("expected AttributeMismatch when required is not a subset of properties")
	}
}

func TestIssueAndRevokeFlow(t *testing.T) {
	iss := newTestIssuer(t)
	now := time.Unix(0, 0)
	ctx := context.Background()

	s, err := iss.CreateCredentialSchema(ctx, "did:x:s1", "did:x:issuer1", "name schema", "", testSchemaProperties(), []string{"name"}, false, "issuer-key-1", now)
	if err != nil {
		t.Fatalf("CreateCredentialSchema: %v", err)
	}

	def, privKey, err := iss.CreateCredentialDefinition(ctx, "did:x:cd1", "did:x:issuer1", s, "issuer-key-1", now)
	if err != nil {
		t.Fatalf("CreateCredentialDefinition: %v", err)
	}

	rrDef, _, allocator, err := iss.CreateRevocationRegistryDefinition(ctx, "did:x:rr1", def, 2, "issuer-key-1", now)
	if err != nil {
		t.Fatalf("CreateRevocationRegistryDefinition: %v", err)
	}

	offer, err := iss.OfferCredential("did:x:issuer1", "did:x:subject1", s, def)
	if err != nil {
		t.Fatalf("OfferCredential: %v", err)
	}

	blind, err := iss.Engine.Blind(def.PublicKey, testDescriptor(s), "master-secret-value", map[string]string{"name": "42"}, offer.Nonce)
	if err != nil {
		t.Fatalf("Blind: %v", err)
	}
	req := credential.CredentialRequest{
		Subject:                                  "did:x:subject1",
		CredentialDefinition:                     def.ID,
		BlindedCredentialSecrets:                 blind.BlindedCredentialSecrets,
		BlindedCredentialSecretsCorrectnessProof: blind.BlindedCredentialSecretsCorrectnessProof,
		Nonce: offer.Nonce,
	}

	values := map[string]string{"name": "Alice"}
	result, err := iss.IssueCredential(ctx, "did:x:issuer1", "did:x:subject1", req, def, privKey, s, rrDef, allocator, offer.Nonce, values, "issuer-key-1", now)
	if err != nil {
		t.Fatalf("IssueCredential: %v", err)
	}
	if result.Credential.Signature.RevocationID != 1 {
		t.Fatalf("RevocationID = %d, want 1", result.Credential.Signature.RevocationID)
	}
	if result.Witness.RevocationID != 1 {
		t.Fatalf("Witness.RevocationID = %d, want 1", result.Witness.RevocationID)
	}

	revoked, err := iss.RevokeCredential(ctx, "did:x:issuer1", result.RevocationDefinition, 1, "issuer-key-1", now)
	if err != nil {
		t.Fatalf("RevokeCredential: %v", err)
	}
	found := false
	for _, id := range revoked.Delta.Revoked {
		if id == 1 {
			found = true
		}
	}
	if !found {
		t.Fatal("expected id 1 in revoked set after RevokeCredential")
	}
}

func TestIssueCredentialRejectsWrongNonce(t *testing.T) {
	iss := newTestIssuer(t)
	now := time.Unix(0, 0)
	ctx := context.Background()

	s, _ := iss.CreateCredentialSchema(ctx, "did:x:s1", "did:x:issuer1", "name schema", "", testSchemaProperties(), []string{"name"}, false, "issuer-key-1", now)
	def, privKey, _ := iss.CreateCredentialDefinition(ctx, "did:x:cd1", "did:x:issuer1", s, "issuer-key-1", now)
	rrDef, _, allocator, _ := iss.CreateRevocationRegistryDefinition(ctx, "did:x:rr1", def, 2, "issuer-key-1", now)
	offer, _ := iss.OfferCredential("did:x:issuer1", "did:x:subject1", s, def)

	blind, _ := iss.Engine.Blind(def.PublicKey, testDescriptor(s), "master-secret-value", map[string]string{"name": "42"}, offer.Nonce)
	req := credential.CredentialRequest{
		Subject:                                  "did:x:subject1",
		CredentialDefinition:                     def.ID,
		BlindedCredentialSecrets:                 blind.BlindedCredentialSecrets,
		BlindedCredentialSecretsCorrectnessProof: blind.BlindedCredentialSecretsCorrectnessProof,
		Nonce: "wrong-nonce",
	}

	if _, err := iss.IssueCredential(ctx, "did:x:issuer1", "did:x:subject1", req, def, privKey, s, rrDef, allocator, offer.Nonce, map[string]string{"name": "Alice"}, "issuer-key-1", now); err == nil {
		t.Fatal("expected CryptoFailure when request nonce mismatches offer nonce")
	}
}

func TestIssueCredentialCapacityExhausted(t *testing.T) {
	iss := newTestIssuer(t)
	now := time.Unix(0, 0)
	ctx := context.Background()

	s, _ := iss.CreateCredentialSchema(ctx, "did:x:s1", "did:x:issuer1", "name schema", "", testSchemaProperties(), []string{"name"}, false, "issuer-key-1", now)
	def, privKey, _ := iss.CreateCredentialDefinition(ctx, "did:x:cd1", "did:x:issuer1", s, "issuer-key-1", now)
	rrDef, _, allocator, _ := iss.CreateRevocationRegistryDefinition(ctx, "did:x:rr1", def, 2, "issuer-key-1", now)

	issueOne := func(rrDef credential.RevocationRegistryDefinition, allocator credential.RevocationIdInformation) (IssueResult, error) {
		offer, err := iss.OfferCredential("did:x:issuer1", "did:x:subject1", s, def)
		if err != nil {
			return IssueResult{}, err
		}
		blind, err := iss.Engine.Blind(def.PublicKey, testDescriptor(s), "master-secret-value", map[string]string{"name": "42"}, offer.Nonce)
		if err != nil {
			return IssueResult{}, err
		}
		req := credential.CredentialRequest{
			Subject:                                  "did:x:subject1",
			CredentialDefinition:                     def.ID,
			BlindedCredentialSecrets:                 blind.BlindedCredentialSecrets,
			BlindedCredentialSecretsCorrectnessProof: blind.BlindedCredentialSecretsCorrectnessProof,
			Nonce: offer.Nonce,
		}
		return iss.IssueCredential(ctx, "did:x:issuer1", "did:x:subject1", req, def, privKey, s, rrDef, allocator, offer.Nonce, map[string]string{"name": "Alice"}, "issuer-key-1", now)
	}

	r1, err := issueOne(rrDef, allocator)
	if err != nil {
		t.Fatalf("issue #1: %v", err)
	}
	r2, err := issueOne(r1.RevocationDefinition, r1.Allocator)
	if err != nil {
		t.Fatalf("issue #2: %v", err)
	}
	if _, err := issueOne(r2.RevocationDefinition, r2.Allocator); err == nil {
		t.Fatal("expected CapacityExhausted issuing a third credential against maximum_credential_count=2")
	}
}
