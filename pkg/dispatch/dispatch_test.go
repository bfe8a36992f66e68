package dispatch

import (
	"context"
	"encoding/json"
	"testing"

	"credential-hub/internal/log"
	"credential-hub/internal/registry"
	"credential-hub/internal/signing"
	"credential-hub/pkg/credential"
	"credential-hub/pkg/crypto/gabiengine"
	"credential-hub/pkg/issuer"
	"credential-hub/pkg/prover"
	"credential-hub/pkg/verifier"
)

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	signer := signing.NewSigner()
	if err := signer.GenerateKey("issuer-key-1"); err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	engine := gabiengine.New()
	reg := registry.New(registry.NewMemoryBackend(), log.NewBasicLogger(log.ErrorLevel))
	iss := issuer.New(engine, signer, reg)
	return New(iss, prover.New(engine), verifier.New(engine, signer), reg, log.NewBasicLogger(log.ErrorLevel))
}

func call(t *testing.T, d *Dispatcher, msgType string, req interface{}) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal request for %s: %v", msgType, err)
	}
	out, err := d.Dispatch(context.Background(), Message{Type: msgType, Data: data})
	if err != nil {
		t.Fatalf("Dispatch(%s): %v", msgType, err)
	}
	return out
}

// TestDispatchHappyPathEndToEnd drives the full offer/request/issue/present/
// verify chain through the message dispatcher, mirroring S1 of spec.md §8.
func TestDispatchHappyPathEndToEnd(t *testing.T) {
	d := newTestDispatcher(t)

	schemaOut := call(t, d, "createCredentialSchema", createCredentialSchemaRequest{
		GeneratedDID: "did:x:s1",
		Author:       "did:x:issuer1",
		Name:         "name schema",
		Properties:   map[string]credential.AttributeSchema{"name": {Type: credential.AttributeTypeString}},
		Required:     []string{"name"},
		SignerKeyRef: "issuer-key-1",
	})
	var s credential.CredentialSchema
	if err := json.Unmarshal(schemaOut, &s); err != nil {
		t.Fatalf("unmarshal schema: %v", err)
	}

	defOut := call(t, d, "createCredentialDefinition", createCredentialDefinitionRequest{
		GeneratedDID: "did:x:cd1",
		IssuerDID:    "did:x:issuer1",
		Schema:       s,
		SignerKeyRef: "issuer-key-1",
	})
	var defResp createCredentialDefinitionResponse
	if err := json.Unmarshal(defOut, &defResp); err != nil {
		t.Fatalf("unmarshal definition: %v", err)
	}

	rrOut := call(t, d, "createRevocationRegistryDefinition", createRevocationRegistryDefinitionRequest{
		GeneratedDID:   "did:x:rr1",
		Definition:     defResp.Definition,
		MaxCredentials: 2,
		SignerKeyRef:   "issuer-key-1",
	})
	var rrResp createRevocationRegistryDefinitionResponse
	if err := json.Unmarshal(rrOut, &rrResp); err != nil {
		t.Fatalf("unmarshal revocation registry: %v", err)
	}

	offerOut := call(t, d, "createCredentialOffer", createCredentialOfferRequest{
		Issuer:     "did:x:issuer1",
		Subject:    "did:x:subject1",
		Schema:     s,
		Definition: defResp.Definition,
	})
	var offer credential.CredentialOffer
	if err := json.Unmarshal(offerOut, &offer); err != nil {
		t.Fatalf("unmarshal offer: %v", err)
	}

	masterSecret := credential.MasterSecret{Value: "master-secret-value"}
	reqOut := call(t, d, "requestCredential", requestCredentialRequest{
		Offer:        offer,
		Definition:   defResp.Definition,
		Schema:       s,
		MasterSecret: masterSecret,
		Values:       map[string]string{"name": "Alice"},
	})
	var reqResult prover.RequestResult
	if err := json.Unmarshal(reqOut, &reqResult); err != nil {
		t.Fatalf("unmarshal request result: %v", err)
	}

	issueOut := call(t, d, "issueCredential", issueCredentialRequest{
		IssuerDID:            "did:x:issuer1",
		SubjectDID:           "did:x:subject1",
		Request:              reqResult.Request,
		Definition:           defResp.Definition,
		PrivateKey:           defResp.PrivateKey,
		Schema:               s,
		RevocationDefinition: rrResp.RevocationDefinition,
		Allocator:            rrResp.Allocator,
		OfferNonce:           offer.Nonce,
		Values:               map[string]string{"name": "Alice"},
		SignerKeyRef:         "issuer-key-1",
	})
	var issueResult issuer.IssueResult
	if err := json.Unmarshal(issueOut, &issueResult); err != nil {
		t.Fatalf("unmarshal issue result: %v", err)
	}

	proofReqOut := call(t, d, "requestProof", requestProofRequest{
		VerifierDID: "did:x:verifier1",
		ProverDID:   "did:x:subject1",
		SubProofRequests: []credential.SubProofRequest{
			{SchemaID: s.ID, RevealedAttributes: []string{"name"}},
		},
	})
	var proofRequest credential.ProofRequest
	if err := json.Unmarshal(proofReqOut, &proofRequest); err != nil {
		t.Fatalf("unmarshal proof request: %v", err)
	}

	presentOut := call(t, d, "presentProof", presentProofRequest{
		ProofRequest: proofRequest,
		Inputs: prover.PresentationInputs{
			Schemas:               map[string]credential.CredentialSchema{s.ID: s},
			Definitions:           map[string]credential.CredentialDefinition{s.ID: defResp.Definition},
			RevocationDefinitions: map[string]credential.RevocationRegistryDefinition{s.ID: issueResult.RevocationDefinition},
			Credentials:           map[string]credential.Credential{s.ID: issueResult.Credential},
			Witnesses:             map[string]credential.Witness{s.ID: issueResult.Witness},
		},
		MasterSecret: masterSecret,
	})
	var presentation credential.ProofPresentation
	if err := json.Unmarshal(presentOut, &presentation); err != nil {
		t.Fatalf("unmarshal presentation: %v", err)
	}
	if presentation.VerifiableCredential[0].RevealedValues["name"].Raw != "Alice" {
		t.Fatalf("revealed name = %q, want Alice", presentation.VerifiableCredential[0].RevealedValues["name"].Raw)
	}

	verifyOut := call(t, d, "verifyProof", verifyProofRequest{
		Presentation: presentation,
		ProofRequest: proofRequest,
		Inputs: verifier.VerificationInputs{
			Schemas:               map[string]credential.CredentialSchema{s.ID: s},
			Definitions:           map[string]credential.CredentialDefinition{s.ID: defResp.Definition},
			RevocationDefinitions: map[string]credential.RevocationRegistryDefinition{s.ID: issueResult.RevocationDefinition},
		},
	})
	var outcome credential.ProofVerification
	if err := json.Unmarshal(verifyOut, &outcome); err != nil {
		t.Fatalf("unmarshal verification: %v", err)
	}
	if outcome.Status != credential.StatusVerified {
		t.Fatalf("verification status = %v, reason = %q, want Verified", outcome.Status, outcome.Reason)
	}
}

func TestDispatchUnknownTypeIsUnsupported(t *testing.T) {
	d := newTestDispatcher(t)
	_, err := d.Dispatch(context.Background(), Message{Type: "doSomethingElse", Data: json.RawMessage(`{}`)})
	if err == nil {
		t.Fatal("expected UnsupportedMessage for an unrecognised type")
	}
}

func TestDispatchWhitelistIdentityPassThrough(t *testing.T) {
	d := newTestDispatcher(t)
	call(t, d, "whitelistIdentity", whitelistIdentityRequest{Identity: "did:x:issuer1"})
	if !d.Registry.IsWhitelisted("did:x:issuer1") {
		t.Fatal("expected did:x:issuer1 to be whitelisted after dispatch")
	}
}

func TestDispatchMalformedPayloadRejected(t *testing.T) {
	d := newTestDispatcher(t)
	_, err := d.Dispatch(context.Background(), Message{Type: "createCredentialSchema", Data: json.RawMessage(`{not-json}`)})
	if err == nil {
		t.Fatal("expected Malformed error for invalid JSON payload")
	}
}
