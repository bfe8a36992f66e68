package revocation

import (
	"testing"
	"time"

	"credential-hub/pkg/credential"
	"credential-hub/pkg/crypto"
	"credential-hub/pkg/crypto/gabiengine"
)

func descriptorFor() crypto.CredentialSchemaDescriptor {
	return crypto.CredentialSchemaDescriptor{Attributes: []string{"name"}, NonCredentialAttributes: []string{"master_secret"}}
}

func TestAllocateMonotonic(t *testing.T) {
	allocator := credential.RevocationIdInformation{DefinitionID: "def1", NextUnusedID: 1}

	id1, allocator, err := Allocate(allocator, 2)
	if err != nil || id1 != 1 {
		t.Fatalf("Allocate #1 = (%d, %v), want (1, nil)", id1, err)
	}
	id2, allocator, err := Allocate(allocator, 2)
	if err != nil || id2 != 2 {
		t.Fatalf("Allocate #2 = (%d, %v), want (2, nil)", id2, err)
	}
	if _, _, err := Allocate(allocator, 2); err == nil {
		t.Fatal("expected CapacityExhausted on third allocation against max=2")
	}
}

func TestInitAndIssueAndRevoke(t *testing.T) {
	m := New(gabiengine.New())
	now := time.Unix(0, 0)

	def, _, allocator, err := m.Init("did:x:rr1", "did:x:cd1", 2, now)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	id, allocator, err := Allocate(allocator, def.MaximumCredentialCount)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	signResult, err := m.Engine.Sign("priv", descriptorFor(), "blinded", map[string]string{"name": "42"}, def.RevocationPublicKey, def.Tails, def.Registry.Accum, id)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	def, witness := ApplyIssuance(def, id, signResult, now)
	if !IsActive(def, id) {
		t.Fatal("expected id to be active after issuance")
	}
	if witness.RevocationID != id {
		t.Errorf("witness.RevocationID = %d, want %d", witness.RevocationID, id)
	}

	def, err = m.Revoke(def, id, now)
	if err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if IsActive(def, id) {
		t.Fatal("expected id to be inactive after revocation")
	}

	if _, err := m.Revoke(def, id, now); err == nil {
		t.Fatal("expected AlreadyRevoked revoking twice")
	}
	if _, err := m.Revoke(def, 99, now); err == nil {
		t.Fatal("expected NotIssued revoking an id that was never allocated")
	}
	_ = allocator
}
