package registry

import (
	"context"
	"testing"
	"time"
)

func TestResolveMissing(t *testing.T) {
	r := New(NewMemoryBackend(), nil)
	if _, err := r.Resolve(context.Background(), "did:x:missing"); err == nil {
		t.Fatal("expected MissingArtifact resolving an absent did")
	}
}

func TestStoreRequiresWhitelist(t *testing.T) {
	r := New(NewMemoryBackend(), nil)
	err := r.Store(context.Background(), "did:x:schema1", []byte(`{"id":"did:x:schema1"}`), SigningContext{Identity: "did:x:issuer1"})
	if err == nil {
		t.Fatal("expected store to fail for a non-whitelisted identity")
	}
}

func TestStoreAndResolveRoundTrip(t *testing.T) {
	r := New(NewMemoryBackend(), nil)
	r.EnsureWhitelisted("did:x:issuer1")

	data := []byte(`{"id":"did:x:schema1"}`)
	if err := r.Store(context.Background(), "did:x:schema1", data, SigningContext{Identity: "did:x:issuer1"}); err != nil {
		t.Fatalf("Store: %v", err)
	}

	got, err := r.Resolve(context.Background(), "did:x:schema1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if string(got) != string(data) {
		t.Fatalf("Resolve = %q, want %q", got, data)
	}

	ok, err := r.Verify("did:x:schema1")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Fatal("expected digest verification to succeed")
	}
}

func TestEnsureWhitelistedIdempotent(t *testing.T) {
	r := New(NewMemoryBackend(), nil)
	r.EnsureWhitelisted("did:x:issuer1")
	r.EnsureWhitelisted("did:x:issuer1")
	if !r.IsWhitelisted("did:x:issuer1") {
		t.Fatal("expected identity to remain whitelisted")
	}
}

func TestRecordNonceDetectsReplay(t *testing.T) {
	r := New(NewMemoryBackend(), nil)
	now := time.Unix(0, 0)
	if replay := r.RecordNonce("nonce-1", now); replay {
		t.Fatal("first sighting of a nonce must not be a replay")
	}
	if replay := r.RecordNonce("nonce-1", now.Add(time.Second)); !replay {
		t.Fatal("second sighting within the TTL window must be a replay")
	}
}

func TestRecordNonceExpiresAfterTTL(t *testing.T) {
	r := New(NewMemoryBackend(), nil)
	now := time.Unix(0, 0)
	r.RecordNonce("nonce-1", now)
	if replay := r.RecordNonce("nonce-1", now.Add(time.Hour)); replay {
		t.Fatal("nonce seen long after the TTL window should not be reported as a replay")
	}
}

func TestAcquireDefinitionLockExcludesConcurrentUse(t *testing.T) {
	r := New(NewMemoryBackend(), nil)

	unlock := r.AcquireDefinitionLock("did:x:rr1")
	acquired := make(chan struct{})
	go func() {
		unlock2 := r.AcquireDefinitionLock("did:x:rr1")
		close(acquired)
		unlock2()
	}()

	select {
	case <-acquired:
		t.Fatal("second acquisition must block while the first holder has not released")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()
	<-acquired
}
