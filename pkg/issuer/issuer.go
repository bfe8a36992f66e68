// Package issuer implements the Issuer role of spec.md §4.1: credential
// schema/definition/revocation-registry creation, offer and issuance, and
// revocation. Every operation is a pure function of its inputs plus
// CryptoEngine calls; Issuer only adds the signing and registry persistence
// that wrap those pure computations.
package issuer

import (
	"context"
	"time"

	"credential-hub/internal/errorkit"
	"credential-hub/internal/metrics"
	"credential-hub/internal/registry"
	"credential-hub/internal/signing"
	"credential-hub/pkg/credential"
	"credential-hub/pkg/crypto"
	"credential-hub/pkg/revocation"
	"credential-hub/pkg/schema"
)

// Issuer wires a CryptoEngine, a Signer and a Registry together behind the
// role's operations. It holds no credential-protocol state of its own.
type Issuer struct {
	Engine     crypto.Engine
	Signer     *signing.Signer
	Registry   registry.RegistryClient
	Revocation *revocation.Manager
	Metrics    metrics.Collector
}

// New returns an Issuer backed by engine, signer and reg. reg may be nil if
// the caller only wants the pure operations without persistence.
func New(engine crypto.Engine, signer *signing.Signer, reg registry.RegistryClient) *Issuer {
	return &Issuer{
		Engine:     engine,
		Signer:     signer,
		Registry:   reg,
		Revocation: revocation.New(engine),
		Metrics:    metrics.NewNoopCollector(),
	}
}

// CreateCredentialSchema builds, signs and (if a Registry is configured)
// publishes a CredentialSchema. Fails AttributeMismatch if required is not a
// subset of properties' keys.
func (i *Issuer) CreateCredentialSchema(ctx context.Context, generatedDID, author, name, description string, properties map[string]credential.AttributeSchema, required []string, allowAdditional bool, signerKeyRef signing.KeyRef, now time.Time) (credential.CredentialSchema, error) {
	if err := schema.ValidateRequired(properties, required); err != nil {
		return credential.CredentialSchema{}, err
	}

	doc := credential.CredentialSchema{
		ID:                   generatedDID,
		Author:               author,
		Name:                 name,
		Description:          description,
		Properties:           properties,
		Required:             required,
		AdditionalProperties: allowAdditional,
	}

	proof, err := i.Signer.Sign(signerKeyRef, author, doc, now)
	if err != nil {
		return credential.CredentialSchema{}, err
	}
	doc.Proof = proof

	if err := i.publish(ctx, generatedDID, doc, author); err != nil {
		return credential.CredentialSchema{}, err
	}
	return doc, nil
}

// CreateCredentialDefinition generates a fresh CL issuer keypair bound to
// schema's sorted attribute names plus the fixed master_secret
// non-credential-schema attribute, per §4.1.
func (i *Issuer) CreateCredentialDefinition(ctx context.Context, generatedDID, issuerDID string, s credential.CredentialSchema, signerKeyRef signing.KeyRef, now time.Time) (credential.CredentialDefinition, credential.CredentialPrivateKey, error) {
	descriptor := crypto.CredentialSchemaDescriptor{
		Attributes:              schema.SortedAttributeNames(s.Properties),
		NonCredentialAttributes: []string{schema.NonCredentialSchemaAttribute},
	}

	keys, err := i.Engine.GenerateCredentialKeyPair(descriptor)
	if err != nil {
		return credential.CredentialDefinition{}, credential.CredentialPrivateKey{}, err
	}

	def := credential.CredentialDefinition{
		ID:                        generatedDID,
		Issuer:                    issuerDID,
		SchemaID:                  s.ID,
		PublicKey:                 keys.PublicKey,
		PublicKeyCorrectnessProof: keys.PublicKeyCorrectnessProof,
	}

	proof, err := i.Signer.Sign(signerKeyRef, issuerDID, def, now)
	if err != nil {
		return credential.CredentialDefinition{}, credential.CredentialPrivateKey{}, err
	}
	def.Proof = proof

	if err := i.publish(ctx, generatedDID, def, issuerDID); err != nil {
		return credential.CredentialDefinition{}, credential.CredentialPrivateKey{}, err
	}

	return def, credential.CredentialPrivateKey{DefinitionID: generatedDID, PrivateKey: keys.PrivateKey}, nil
}

// CreateRevocationRegistryDefinition provisions a fresh accumulator for up
// to maxCredentials members, per §4.1.
func (i *Issuer) CreateRevocationRegistryDefinition(ctx context.Context, generatedDID string, def credential.CredentialDefinition, maxCredentials uint32, signerKeyRef signing.KeyRef, now time.Time) (credential.RevocationRegistryDefinition, credential.RevocationKeyPrivate, credential.RevocationIdInformation, error) {
	rrDef, privKey, allocator, err := i.Revocation.Init(generatedDID, def.ID, maxCredentials, now)
	if err != nil {
		return credential.RevocationRegistryDefinition{}, credential.RevocationKeyPrivate{}, credential.RevocationIdInformation{}, err
	}

	proof, err := i.Signer.Sign(signerKeyRef, def.Issuer, rrDef, now)
	if err != nil {
		return credential.RevocationRegistryDefinition{}, credential.RevocationKeyPrivate{}, credential.RevocationIdInformation{}, err
	}
	rrDef.Proof = proof

	if err := i.publish(ctx, generatedDID, rrDef, def.Issuer); err != nil {
		return credential.RevocationRegistryDefinition{}, credential.RevocationKeyPrivate{}, credential.RevocationIdInformation{}, err
	}

	return rrDef, privKey, allocator, nil
}

// OfferCredential generates a fresh issuance nonce binding the subsequent
// CredentialRequest to this offer, per §4.1.
func (i *Issuer) OfferCredential(issuer, subject string, s credential.CredentialSchema, def credential.CredentialDefinition) (credential.CredentialOffer, error) {
	nonce, err := i.Engine.IssueNonce()
	if err != nil {
		return credential.CredentialOffer{}, err
	}
	return credential.CredentialOffer{
		Issuer:               issuer,
		Subject:              subject,
		Schema:               s.ID,
		CredentialDefinition: def.ID,
		Nonce:                nonce,
	}, nil
}

// IssueResult bundles issue_credential's three persisted return values so
// the caller persists all three atomically: the holder's Credential, the
// advanced RevocationRegistryDefinition, and the advanced
// RevocationIdInformation. It also carries the holder's initial Witness.
type IssueResult struct {
	Credential   credential.Credential
	RevocationDefinition credential.RevocationRegistryDefinition
	Allocator    credential.RevocationIdInformation
	Witness      credential.Witness
}

// IssueCredential implements §4.1's issue_credential flow. offerNonce is the
// nonce the CredentialOffer that produced req was built with; req.Nonce
// must echo it. The caller must hold def's exclusive lock
// (registry.Registry.AcquireDefinitionLock) for the duration of this call,
// per §5's concurrency model.
func (i *Issuer) IssueCredential(
	ctx context.Context,
	issuerDID, subjectDID string,
	req credential.CredentialRequest,
	def credential.CredentialDefinition,
	privKey credential.CredentialPrivateKey,
	s credential.CredentialSchema,
	rrDef credential.RevocationRegistryDefinition,
	allocator credential.RevocationIdInformation,
	offerNonce string,
	values map[string]string,
	signerKeyRef signing.KeyRef,
	now time.Time,
) (IssueResult, error) {
	i.Metrics.IssuanceStarted(s.ID)
	result, err := i.issueCredential(ctx, issuerDID, subjectDID, req, def, privKey, s, rrDef, allocator, offerNonce, values, signerKeyRef, now)
	if err != nil {
		i.Metrics.IssuanceFailed(s.ID, errorkit.Reason(err))
		return result, err
	}
	i.Metrics.IssuanceCompleted(s.ID, time.Since(now))
	i.Metrics.SetRegistryOccupancy(result.RevocationDefinition.ID, uint32(len(result.RevocationDefinition.Registry.Issued)), rrDef.MaximumCredentialCount)
	return result, nil
}

func (i *Issuer) issueCredential(
	ctx context.Context,
	issuerDID, subjectDID string,
	req credential.CredentialRequest,
	def credential.CredentialDefinition,
	privKey credential.CredentialPrivateKey,
	s credential.CredentialSchema,
	rrDef credential.RevocationRegistryDefinition,
	allocator credential.RevocationIdInformation,
	offerNonce string,
	values map[string]string,
	signerKeyRef signing.KeyRef,
	now time.Time,
) (IssueResult, error) {
	if req.Nonce != offerNonce {
		return IssueResult{}, errorkit.CryptoFailuref("credential request nonce %q does not match offer nonce %q", req.Nonce, offerNonce)
	}
	if err := i.Engine.VerifyBlindingCorrectness(def.PublicKey, req.BlindedCredentialSecrets, req.BlindedCredentialSecretsCorrectnessProof, offerNonce); err != nil {
		return IssueResult{}, err
	}
	if err := schema.ValidateValueKeys(s.Properties, values); err != nil {
		return IssueResult{}, err
	}

	id, allocator, err := revocation.Allocate(allocator, rrDef.MaximumCredentialCount)
	if err != nil {
		return IssueResult{}, err
	}

	encoded := crypto.EncodeAttributes(values)
	descriptor := crypto.CredentialSchemaDescriptor{
		Attributes:              schema.SortedAttributeNames(s.Properties),
		NonCredentialAttributes: []string{schema.NonCredentialSchemaAttribute},
	}

	signResult, err := i.Engine.Sign(privKey.PrivateKey, descriptor, req.BlindedCredentialSecrets, encoded, rrDef.RevocationPublicKey, rrDef.Tails, rrDef.Registry.Accum, id)
	if err != nil {
		return IssueResult{}, err
	}

	nextDef, witness := revocation.ApplyIssuance(rrDef, id, signResult, now)

	proof, err := i.Signer.Sign(signerKeyRef, issuerDID, nextDef, now)
	if err != nil {
		return IssueResult{}, err
	}
	nextDef.Proof = proof

	if err := i.publish(ctx, nextDef.ID, nextDef, issuerDID); err != nil {
		return IssueResult{}, err
	}

	cred := credential.Credential{
		Schema:  s.ID,
		Issuer:  issuerDID,
		Subject: subjectDID,
		Values:  toAttributeValues(values, encoded),
		Signature: credential.CredentialSignature{
			Signature:                    signResult.Signature,
			CorrectnessProof:             signResult.CorrectnessProof,
			IssuanceNonce:                offerNonce,
			CredentialDefinition:         def.ID,
			RevocationRegistryDefinition: nextDef.ID,
			RevocationID:                 id,
		},
	}

	return IssueResult{
		Credential:           cred,
		RevocationDefinition: nextDef,
		Allocator:            allocator,
		Witness:              witness,
	}, nil
}

// RevokeCredential implements §4.1's revoke_credential. The caller must hold
// def's exclusive lock for the duration of this call.
func (i *Issuer) RevokeCredential(ctx context.Context, issuerDID string, def credential.RevocationRegistryDefinition, revocationID uint32, signerKeyRef signing.KeyRef, now time.Time) (credential.RevocationRegistryDefinition, error) {
	next, err := i.Revocation.Revoke(def, revocationID, now)
	if err != nil {
		return credential.RevocationRegistryDefinition{}, err
	}

	proof, err := i.Signer.Sign(signerKeyRef, issuerDID, next, now)
	if err != nil {
		return credential.RevocationRegistryDefinition{}, err
	}
	next.Proof = proof

	if err := i.publish(ctx, next.ID, next, issuerDID); err != nil {
		return credential.RevocationRegistryDefinition{}, err
	}
	return next, nil
}

// publish is a no-op when no Registry is configured, otherwise it ensures
// identity is whitelisted (per original_source's defensive ensureWhitelisted
// sequencing) and stores doc under did.
func (i *Issuer) publish(ctx context.Context, did string, doc interface{}, identity string) error {
	if i.Registry == nil {
		return nil
	}
	i.Registry.EnsureWhitelisted(identity)
	data, err := marshalDoc(doc)
	if err != nil {
		return err
	}
	return i.Registry.Store(ctx, did, data, registry.SigningContext{Identity: identity})
}

func toAttributeValues(raw, encoded map[string]string) map[string]credential.AttributeValue {
	out := make(map[string]credential.AttributeValue, len(raw))
	for name, v := range raw {
		out[name] = credential.AttributeValue{Raw: v, Encoded: encoded[name]}
	}
	return out
}
