// Package dispatch implements the typed message router of spec.md §6: a
// closed sum of message kinds, each decoded into its operation's input
// struct and routed to the matching Issuer, Prover or Verifier method.
// Unknown types yield UnsupportedMessage. The dispatcher is a thin shell;
// all protocol logic lives in pkg/issuer, pkg/prover and pkg/verifier.
package dispatch

import (
	"context"
	"encoding/json"
	"time"

	"credential-hub/internal/errorkit"
	"credential-hub/internal/log"
	"credential-hub/internal/registry"
	"credential-hub/internal/signing"
	"credential-hub/pkg/credential"
	"credential-hub/pkg/issuer"
	"credential-hub/pkg/prover"
	"credential-hub/pkg/verifier"
)

// Message is the dispatcher's wire envelope: a self-describing type tag plus
// its opaque payload, per §6.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Dispatcher wires an Issuer, Prover and Verifier behind the message
// dispatcher surface. now is injected so operations that stamp timestamps
// stay deterministic under test; callers typically pass time.Now.
type Dispatcher struct {
	Issuer   *issuer.Issuer
	Prover   *prover.Prover
	Verifier *verifier.Verifier
	Registry *registry.Registry
	Logger   log.Logger
	Now      func() time.Time
}

// New returns a Dispatcher wired to the given role collaborators.
func New(iss *issuer.Issuer, p *prover.Prover, v *verifier.Verifier, reg *registry.Registry, logger log.Logger) *Dispatcher {
	return &Dispatcher{Issuer: iss, Prover: p, Verifier: v, Registry: reg, Logger: logger, Now: time.Now}
}

// Dispatch decodes msg.Data against the input struct for msg.Type, invokes
// the corresponding operation, and returns its output document serialised
// back to JSON. Fails UnsupportedMessage for any type not in §6's table.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) (json.RawMessage, error) {
	handler, ok := handlers[msg.Type]
	if !ok {
		return nil, errorkit.UnsupportedMessagef("unrecognised message type %q", msg.Type)
	}
	out, err := handler(ctx, d, msg.Data)
	if err != nil {
		if d.Logger != nil {
			d.Logger.WithFields(map[string]interface{}{
				"type":  msg.Type,
				"error": err.Error(),
			}).Error("dispatch failed", err)
		}
		return nil, err
	}
	return json.Marshal(out)
}

type handlerFunc func(ctx context.Context, d *Dispatcher, data json.RawMessage) (interface{}, error)

var handlers = map[string]handlerFunc{
	"createCredentialSchema":             handleCreateCredentialSchema,
	"createCredentialDefinition":         handleCreateCredentialDefinition,
	"createRevocationRegistryDefinition": handleCreateRevocationRegistryDefinition,
	"createCredentialOffer":              handleCreateCredentialOffer,
	"createCredentialProposal":           handleCreateCredentialProposal,
	"requestCredential":                  handleRequestCredential,
	"issueCredential":                    handleIssueCredential,
	"revokeCredential":                   handleRevokeCredential,
	"requestProof":                       handleRequestProof,
	"presentProof":                       handlePresentProof,
	"verifyProof":                        handleVerifyProof,
	"whitelistIdentity":                  handleWhitelistIdentity,
}

func decode(data json.RawMessage, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		return errorkit.Malformedf("decoding message payload: %v", err)
	}
	return nil
}

// --- Issuer ---

type createCredentialSchemaRequest struct {
	GeneratedDID        string                                `json:"generatedDid"`
	Author               string                                `json:"author"`
	Name                 string                                `json:"name"`
	Description          string                                `json:"description"`
	Properties           map[string]credential.AttributeSchema `json:"properties"`
	Required             []string                              `json:"required"`
	AllowAdditional      bool                                  `json:"allowAdditional"`
	SignerKeyRef         signing.KeyRef                        `json:"signerKeyRef"`
}

func handleCreateCredentialSchema(ctx context.Context, d *Dispatcher, data json.RawMessage) (interface{}, error) {
	var req createCredentialSchemaRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	return d.Issuer.CreateCredentialSchema(ctx, req.GeneratedDID, req.Author, req.Name, req.Description, req.Properties, req.Required, req.AllowAdditional, req.SignerKeyRef, d.Now())
}

type createCredentialDefinitionRequest struct {
	GeneratedDID string                      `json:"generatedDid"`
	IssuerDID    string                      `json:"issuerDid"`
	Schema       credential.CredentialSchema `json:"schema"`
	SignerKeyRef signing.KeyRef              `json:"signerKeyRef"`
}

type createCredentialDefinitionResponse struct {
	Definition credential.CredentialDefinition `json:"definition"`
	PrivateKey credential.CredentialPrivateKey `json:"privateKey"`
}

func handleCreateCredentialDefinition(ctx context.Context, d *Dispatcher, data json.RawMessage) (interface{}, error) {
	var req createCredentialDefinitionRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	def, privKey, err := d.Issuer.CreateCredentialDefinition(ctx, req.GeneratedDID, req.IssuerDID, req.Schema, req.SignerKeyRef, d.Now())
	if err != nil {
		return nil, err
	}
	return createCredentialDefinitionResponse{Definition: def, PrivateKey: privKey}, nil
}

type createRevocationRegistryDefinitionRequest struct {
	GeneratedDID   string                           `json:"generatedDid"`
	Definition     credential.CredentialDefinition `json:"definition"`
	MaxCredentials uint32                           `json:"maxCredentials"`
	SignerKeyRef   signing.KeyRef                   `json:"signerKeyRef"`
}

type createRevocationRegistryDefinitionResponse struct {
	RevocationDefinition credential.RevocationRegistryDefinition `json:"revocationDefinition"`
	RevocationPrivateKey credential.RevocationKeyPrivate         `json:"revocationPrivateKey"`
	Allocator            credential.RevocationIdInformation      `json:"allocator"`
}

func handleCreateRevocationRegistryDefinition(ctx context.Context, d *Dispatcher, data json.RawMessage) (interface{}, error) {
	var req createRevocationRegistryDefinitionRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	rrDef, privKey, allocator, err := d.Issuer.CreateRevocationRegistryDefinition(ctx, req.GeneratedDID, req.Definition, req.MaxCredentials, req.SignerKeyRef, d.Now())
	if err != nil {
		return nil, err
	}
	return createRevocationRegistryDefinitionResponse{RevocationDefinition: rrDef, RevocationPrivateKey: privKey, Allocator: allocator}, nil
}

type createCredentialOfferRequest struct {
	Issuer     string                           `json:"issuer"`
	Subject    string                           `json:"subject"`
	Schema     credential.CredentialSchema     `json:"schema"`
	Definition credential.CredentialDefinition `json:"definition"`
}

func handleCreateCredentialOffer(_ context.Context, d *Dispatcher, data json.RawMessage) (interface{}, error) {
	var req createCredentialOfferRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	return d.Issuer.OfferCredential(req.Issuer, req.Subject, req.Schema, req.Definition)
}

type issueCredentialRequest struct {
	IssuerDID    string                                  `json:"issuerDid"`
	SubjectDID   string                                  `json:"subjectDid"`
	Request      credential.CredentialRequest             `json:"request"`
	Definition   credential.CredentialDefinition         `json:"definition"`
	PrivateKey   credential.CredentialPrivateKey         `json:"privateKey"`
	Schema       credential.CredentialSchema             `json:"schema"`
	RevocationDefinition credential.RevocationRegistryDefinition `json:"revocationDefinition"`
	Allocator    credential.RevocationIdInformation       `json:"allocator"`
	OfferNonce   string                                   `json:"offerNonce"`
	Values       map[string]string                        `json:"values"`
	SignerKeyRef signing.KeyRef                            `json:"signerKeyRef"`
}

func handleIssueCredential(ctx context.Context, d *Dispatcher, data json.RawMessage) (interface{}, error) {
	var req issueCredentialRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	return d.Issuer.IssueCredential(ctx, req.IssuerDID, req.SubjectDID, req.Request, req.Definition, req.PrivateKey, req.Schema, req.RevocationDefinition, req.Allocator, req.OfferNonce, req.Values, req.SignerKeyRef, d.Now())
}

type revokeCredentialRequest struct {
	IssuerDID            string                                  `json:"issuerDid"`
	RevocationDefinition credential.RevocationRegistryDefinition `json:"revocationDefinition"`
	RevocationID         uint32                                  `json:"revocationId"`
	SignerKeyRef         signing.KeyRef                           `json:"signerKeyRef"`
}

func handleRevokeCredential(ctx context.Context, d *Dispatcher, data json.RawMessage) (interface{}, error) {
	var req revokeCredentialRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	return d.Issuer.RevokeCredential(ctx, req.IssuerDID, req.RevocationDefinition, req.RevocationID, req.SignerKeyRef, d.Now())
}

// --- Prover ---

type createCredentialProposalRequest struct {
	Issuer  string `json:"issuer"`
	Subject string `json:"subject"`
	Schema  string `json:"schema"`
}

func handleCreateCredentialProposal(_ context.Context, d *Dispatcher, data json.RawMessage) (interface{}, error) {
	var req createCredentialProposalRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	return d.Prover.ProposeCredential(req.Issuer, req.Subject, req.Schema), nil
}

type requestCredentialRequest struct {
	Offer        credential.CredentialOffer     `json:"offer"`
	Definition   credential.CredentialDefinition `json:"definition"`
	Schema       credential.CredentialSchema     `json:"schema"`
	MasterSecret credential.MasterSecret         `json:"masterSecret"`
	Values       map[string]string               `json:"values"`
}

func handleRequestCredential(_ context.Context, d *Dispatcher, data json.RawMessage) (interface{}, error) {
	var req requestCredentialRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	return d.Prover.RequestCredential(req.Offer, req.Definition, req.Schema, req.MasterSecret, req.Values)
}

type presentProofRequest struct {
	ProofRequest credential.ProofRequest       `json:"proofRequest"`
	Inputs       prover.PresentationInputs     `json:"inputs"`
	MasterSecret credential.MasterSecret       `json:"masterSecret"`
}

func handlePresentProof(_ context.Context, d *Dispatcher, data json.RawMessage) (interface{}, error) {
	var req presentProofRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	return d.Prover.PresentProof(req.ProofRequest, req.Inputs, req.MasterSecret)
}

// --- Verifier ---

type requestProofRequest struct {
	VerifierDID      string                        `json:"verifierDid"`
	ProverDID        string                        `json:"proverDid"`
	SubProofRequests []credential.SubProofRequest `json:"subProofRequests"`
}

func handleRequestProof(_ context.Context, d *Dispatcher, data json.RawMessage) (interface{}, error) {
	var req requestProofRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	return d.Verifier.RequestProof(req.VerifierDID, req.ProverDID, req.SubProofRequests)
}

type verifyProofRequest struct {
	Presentation credential.ProofPresentation    `json:"presentation"`
	ProofRequest credential.ProofRequest         `json:"proofRequest"`
	Inputs       verifier.VerificationInputs     `json:"inputs"`
}

func handleVerifyProof(_ context.Context, d *Dispatcher, data json.RawMessage) (interface{}, error) {
	var req verifyProofRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	return d.Verifier.VerifyProof(req.Presentation, req.ProofRequest, req.Inputs), nil
}

// --- Registry pass-through ---

type whitelistIdentityRequest struct {
	Identity string `json:"identity"`
}

func handleWhitelistIdentity(_ context.Context, d *Dispatcher, data json.RawMessage) (interface{}, error) {
	var req whitelistIdentityRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	if d.Registry == nil {
		return nil, errorkit.RegistryUnavailablef("no registry configured")
	}
	d.Registry.WhitelistIdentity(req.Identity)
	return map[string]string{"identity": req.Identity, "status": "whitelisted"}, nil
}
