// Package revocation implements the revocation accumulator manager of §4.4:
// issue-time index allocation, witness creation, and revocation delta
// computation. It holds no global state of its own; all state lives in the
// caller's RevocationRegistryDefinition and RevocationIdInformation values,
// which the caller re-persists through the Registry after each call.
package revocation

import (
	"time"

	"credential-hub/internal/errorkit"
	"credential-hub/pkg/credential"
	"credential-hub/pkg/crypto"
)

// Manager wraps a crypto.Engine with the allocation and accumulator-update
// rules of the revocation subsystem.
type Manager struct {
	Engine crypto.Engine
}

// New returns a Manager backed by engine.
func New(engine crypto.Engine) *Manager {
	return &Manager{Engine: engine}
}

// Init provisions a fresh RevocationRegistryDefinition plus a
// RevocationKeyPrivate and allocator state, per
// create_revocation_registry_definition. The engine yields no separate
// accumulator private key, so the RevocationKeyPrivate's PrivateKey field
// carries the accumulator public key.
func (m *Manager) Init(id, credentialDefinitionID string, maxCredentials uint32, now time.Time) (credential.RevocationRegistryDefinition, credential.RevocationKeyPrivate, credential.RevocationIdInformation, error) {
	accum, err := m.Engine.InitAccumulator(maxCredentials)
	if err != nil {
		return credential.RevocationRegistryDefinition{}, credential.RevocationKeyPrivate{}, credential.RevocationIdInformation{}, err
	}

	def := credential.RevocationRegistryDefinition{
		ID:                     id,
		CredentialDefinitionID: credentialDefinitionID,
		Registry:               credential.AccumulatorState{Accum: accum.InitialAccum},
		Delta: credential.RevocationDelta{
			Accum:   accum.InitialAccum,
			Issued:  []uint32{},
			Revoked: []uint32{},
		},
		Tails:                  accum.Tails,
		RevocationPublicKey:    accum.PublicKey,
		MaximumCredentialCount: maxCredentials,
		UpdatedAt:              now.UTC().Format(time.RFC3339),
	}
	privKey := credential.RevocationKeyPrivate{DefinitionID: id, PrivateKey: accum.PublicKey}
	allocator := credential.RevocationIdInformation{DefinitionID: id, NextUnusedID: 1, UsedIDs: []uint32{}}

	return def, privKey, allocator, nil
}

// Allocate returns the next unused revocation id and the allocator state
// advanced past it, per §4.4's allocate(). Fails CapacityExhausted once the
// definition's maximum_credential_count is exceeded.
func Allocate(allocator credential.RevocationIdInformation, maxCredentials uint32) (uint32, credential.RevocationIdInformation, error) {
	if allocator.NextUnusedID > maxCredentials {
		return 0, allocator, errorkit.CapacityExhaustedf("revocation registry %s is at capacity (%d)", allocator.DefinitionID, maxCredentials)
	}
	id := allocator.NextUnusedID
	next := credential.RevocationIdInformation{
		DefinitionID: allocator.DefinitionID,
		NextUnusedID: id + 1,
		UsedIDs:      append(append([]uint32{}, allocator.UsedIDs...), id),
	}
	return id, next, nil
}

// ApplyIssuance folds an already-computed crypto.SignResult into def: id
// joins the issued set, the accumulator advances, and a fresh witness is
// returned for the holder. The Engine.Sign call itself belongs to the
// issuer (it consumes the blinded secrets); this step only applies its
// accumulator side effect, keeping definitions immutable values per §9.
func ApplyIssuance(def credential.RevocationRegistryDefinition, id uint32, result crypto.SignResult, now time.Time) (credential.RevocationRegistryDefinition, credential.Witness) {
	next := def
	next.Registry = credential.AccumulatorState{Accum: result.UpdatedAccum}
	next.Delta = credential.RevocationDelta{
		Accum:   result.UpdatedAccum,
		Issued:  append(append([]uint32{}, def.Delta.Issued...), id),
		Revoked: append([]uint32{}, def.Delta.Revoked...),
	}
	next.UpdatedAt = now.UTC().Format(time.RFC3339)

	witness := credential.Witness{
		RevocationRegistryDefinition: def.ID,
		RevocationID:                 id,
		Value:                        result.Witness,
		PinnedAccum:                  result.UpdatedAccum,
	}
	return next, witness
}

// Revoke adds id to revoked (it stays listed in issued) and recomputes the
// accumulator over the ids still active, per §4.4's revoke(). Fails
// NotIssued / AlreadyRevoked per spec §4.1.
func (m *Manager) Revoke(def credential.RevocationRegistryDefinition, id uint32, now time.Time) (credential.RevocationRegistryDefinition, error) {
	if !contains(def.Delta.Issued, id) {
		return credential.RevocationRegistryDefinition{}, errorkit.NotIssuedf("revocation id %d was never issued in %s", id, def.ID)
	}
	if contains(def.Delta.Revoked, id) {
		return credential.RevocationRegistryDefinition{}, errorkit.AlreadyRevokedf("revocation id %d already revoked in %s", id, def.ID)
	}

	active := make([]uint32, 0, len(def.Delta.Issued))
	for _, issuedID := range def.Delta.Issued {
		if !contains(def.Delta.Revoked, issuedID) {
			active = append(active, issuedID)
		}
	}

	updatedAccum, _, err := m.Engine.Revoke(def.RevocationPublicKey, def.Tails, def.Registry.Accum, active, id)
	if err != nil {
		return credential.RevocationRegistryDefinition{}, err
	}

	next := def
	next.Registry = credential.AccumulatorState{Accum: updatedAccum}
	next.Delta = credential.RevocationDelta{
		Accum:   updatedAccum,
		Issued:  append([]uint32{}, def.Delta.Issued...),
		Revoked: append(append([]uint32{}, def.Delta.Revoked...), id),
	}
	next.UpdatedAt = now.UTC().Format(time.RFC3339)
	return next, nil
}

// IsActive reports whether id is currently a member of issued \ revoked.
func IsActive(def credential.RevocationRegistryDefinition, id uint32) bool {
	return contains(def.Delta.Issued, id) && !contains(def.Delta.Revoked, id)
}

func contains(ids []uint32, target uint32) bool {
	for _, id := range ids {
		if id == target {
			return true
		}
	}
	return false
}
