package registry

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"

	"credential-hub/internal/errorkit"
)

// FileBackend is the "file" Registry backend selection of Config: each
// document is written as one file under dir, named by the base64url
// encoding of its key (a DID may contain characters a filesystem path
// segment cannot).
type FileBackend struct {
	dir string
}

// NewFileBackend returns a FileBackend rooted at dir, creating it if
// necessary.
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errorkit.RegistryUnavailablef("creating registry directory %q: %v", dir, err)
	}
	return &FileBackend{dir: dir}, nil
}

func (b *FileBackend) path(key string) string {
	return filepath.Join(b.dir, base64.RawURLEncoding.EncodeToString([]byte(key)))
}

func (b *FileBackend) Put(_ context.Context, key string, data []byte) error {
	if err := os.WriteFile(b.path(key), data, 0o644); err != nil {
		return errorkit.RegistryUnavailablef("writing %q: %v", key, err)
	}
	return nil
}

func (b *FileBackend) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(b.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errorkit.MissingArtifactf("key %q not found in file backend", key)
		}
		return nil, errorkit.RegistryUnavailablef("reading %q: %v", key, err)
	}
	return data, nil
}

func (b *FileBackend) Exists(_ context.Context, key string) bool {
	_, err := os.Stat(b.path(key))
	return err == nil
}

func (b *FileBackend) Delete(_ context.Context, key string) error {
	if err := os.Remove(b.path(key)); err != nil {
		if os.IsNotExist(err) {
			return errorkit.MissingArtifactf("key %q not found in file backend", key)
		}
		return errorkit.RegistryUnavailablef("deleting %q: %v", key, err)
	}
	return nil
}

func (b *FileBackend) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return nil, errorkit.RegistryUnavailablef("listing %q: %v", b.dir, err)
	}
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		raw, err := base64.RawURLEncoding.DecodeString(e.Name())
		if err != nil {
			continue
		}
		keys = append(keys, string(raw))
	}
	return keys, nil
}

var _ Backend = (*FileBackend)(nil)
