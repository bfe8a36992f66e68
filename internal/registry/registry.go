// Package registry implements the Registry external contract of spec.md
// §4.5: resolve(did) / store(did, bytes, signing_context). It keys public
// documents by DID rather than by content digest, recording a content
// digest alongside each document for corruption detection on read.
//
// It additionally carries identity whitelisting and arbitrary DID document
// storage over the same put/get contract (whitelistIdentity, setDidDocument,
// ensureWhitelisted); spec.md §6 names whitelistIdentity only as a "registry
// pass-through" and this package gives it a real, if simple, implementation.
package registry

import (
	"context"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/opencontainers/go-digest"

	"credential-hub/internal/errorkit"
	"credential-hub/internal/log"
)

// Backend is the storage surface a Registry is built on. Implementations
// need not be DID-aware beyond treating the key as an opaque string.
type Backend interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) bool
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]string, error)
}

// SigningContext authenticates a Store call. Identity is checked against
// the whitelist before the write is accepted, mirroring the original
// substrate resolver's requirement that an identity be whitelisted before
// it may submit a transaction.
type SigningContext struct {
	Identity string
}

// document is what the registry actually persists per DID: the caller's
// bytes plus the digest they were stored under, so Verify can detect
// corruption; Resolve does not check the digest.
type document struct {
	Data   []byte
	Digest digest.Digest
}

// nonceEntry backs the in-memory nonce replay-window index, bucketed by a
// fast non-cryptographic hash (xxhash) rather than the SHA-256 content
// digest used for document integrity -- a distinct concern from
// corruption detection.
type nonceEntry struct {
	seenAt time.Time
}

// Registry is the concrete Registry collaborator every role operation
// resolves and stores public artifacts through.
type Registry struct {
	backend Backend
	logger  log.Logger

	mu        sync.RWMutex
	docs      map[string]document
	whitelist map[string]bool

	nonceMu sync.Mutex
	nonces  map[uint64]nonceEntry
	nonceTTL time.Duration

	lockMu sync.Mutex
	locks  map[string]*sync.Mutex
}

// New returns a Registry backed by backend. If backend is nil, documents
// live only in the in-memory index (equivalent to the "memory" backend
// selection in Config.Registry).
func New(backend Backend, logger log.Logger) *Registry {
	if logger == nil {
		logger = log.NewBasicLogger(log.InfoLevel)
	}
	return &Registry{
		backend:   backend,
		logger:    logger,
		docs:      make(map[string]document),
		whitelist: make(map[string]bool),
		nonces:    make(map[uint64]nonceEntry),
		nonceTTL:  5 * time.Minute,
		locks:     make(map[string]*sync.Mutex),
	}
}

// Resolve returns the raw document bytes stored under did, failing
// MissingArtifact if absent -- the role layer's translation of the
// contract's resolve(did) → document_bytes / fails NotFound.
func (r *Registry) Resolve(ctx context.Context, did string) ([]byte, error) {
	r.mu.RLock()
	doc, ok := r.docs[did]
	r.mu.RUnlock()

	if ok {
		return doc.Data, nil
	}

	if r.backend == nil {
		return nil, errorkit.MissingArtifactf("did %q not found in registry", did)
	}

	data, err := r.backend.Get(ctx, did)
	if err != nil {
		if errorkit.Is(err, errorkit.ErrMissingArtifact) {
			return nil, errorkit.MissingArtifactf("did %q not found in registry", did)
		}
		return nil, errorkit.RegistryUnavailablef("resolving %q: %v", did, err)
	}

	r.mu.Lock()
	r.docs[did] = document{Data: data, Digest: digest.SHA256.FromBytes(data)}
	r.mu.Unlock()

	return data, nil
}

// Store writes data under did, authenticated by signing's Identity: the
// identity must already be whitelisted (see EnsureWhitelisted). Write is
// immediately visible to Resolve, matching the contract's eventual
// consistency note being a concern for distributed backends, not this
// in-process index.
func (r *Registry) Store(ctx context.Context, did string, data []byte, signing SigningContext) error {
	if !r.IsWhitelisted(signing.Identity) {
		return errorkit.RegistryUnavailablef("identity %q is not whitelisted to write %q", signing.Identity, did)
	}

	d := digest.SHA256.FromBytes(data)

	if r.backend != nil {
		if err := r.backend.Put(ctx, did, data); err != nil {
			return errorkit.RegistryUnavailablef("storing %q: %v", did, err)
		}
	}

	r.mu.Lock()
	r.docs[did] = document{Data: data, Digest: d}
	r.mu.Unlock()

	r.logger.WithFields(map[string]interface{}{
		"did":    did,
		"digest": d.String(),
	}).Debug("stored registry document")

	return nil
}

// Verify recomputes did's stored digest and reports whether it matches the
// digest recorded at Store time.
func (r *Registry) Verify(did string) (bool, error) {
	r.mu.RLock()
	doc, ok := r.docs[did]
	r.mu.RUnlock()
	if !ok {
		return false, errorkit.MissingArtifactf("did %q not found in registry", did)
	}
	return digest.SHA256.FromBytes(doc.Data) == doc.Digest, nil
}

// WhitelistIdentity unconditionally marks identity as whitelisted, per
// original_source's whitelistIdentity operation.
func (r *Registry) WhitelistIdentity(identity string) {
	r.mu.Lock()
	r.whitelist[identity] = true
	r.mu.Unlock()
	r.logger.WithFields(map[string]interface{}{"identity": identity}).Info("identity whitelisted")
}

// IsWhitelisted reports whether identity has already been whitelisted.
func (r *Registry) IsWhitelisted(identity string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.whitelist[identity]
}

// EnsureWhitelisted whitelists identity if it is not already, mirroring
// original_source's ensureWhitelisted: check is_whitelisted, only call
// whitelistIdentity if absent. Idempotent.
func (r *Registry) EnsureWhitelisted(identity string) {
	if r.IsWhitelisted(identity) {
		return
	}
	r.WhitelistIdentity(identity)
}

// RecordNonce registers nonce in the replay-window index, bucketed by its
// xxhash, and reports whether it was already present (a replay). Entries
// older than the registry's nonceTTL are swept lazily on insert.
func (r *Registry) RecordNonce(nonce string, now time.Time) bool {
	h := xxhash.Sum64String(nonce)

	r.nonceMu.Lock()
	defer r.nonceMu.Unlock()

	for k, v := range r.nonces {
		if now.Sub(v.seenAt) > r.nonceTTL {
			delete(r.nonces, k)
		}
	}

	if entry, seen := r.nonces[h]; seen && now.Sub(entry.seenAt) <= r.nonceTTL {
		return true
	}
	r.nonces[h] = nonceEntry{seenAt: now}
	return false
}

// AcquireDefinitionLock returns an unlock function that must be called once
// the caller's exclusive section over id's RevocationRegistryDefinition is
// complete. Per spec §5, issue_credential and revoke_credential against the
// same revocation definition must never run concurrently; this is the
// exclusive-acquisition mechanism the concurrency model requires.
func (r *Registry) AcquireDefinitionLock(id string) func() {
	r.lockMu.Lock()
	l, ok := r.locks[id]
	if !ok {
		l = &sync.Mutex{}
		r.locks[id] = l
	}
	r.lockMu.Unlock()

	l.Lock()
	return l.Unlock
}

// RegistryClient is the narrow surface role constructors depend on: resolve
// and store documents, and ensure an identity is whitelisted before writing
// under it. Role packages depend on this interface, not *Registry, so tests
// can substitute a fake.
type RegistryClient interface {
	Resolve(ctx context.Context, did string) ([]byte, error)
	Store(ctx context.Context, did string, data []byte, signing SigningContext) error
	EnsureWhitelisted(identity string)
	AcquireDefinitionLock(id string) func()
}

var _ RegistryClient = (*Registry)(nil)
