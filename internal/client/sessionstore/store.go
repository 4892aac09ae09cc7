// Package sessionstore is the encrypted key/value persistence used by the
// auth gateway for session blobs and PKCE verifiers.
package sessionstore

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/xplit/internal/client/keystore"
	"github.com/dmitrijs2005/xplit/internal/client/repositories/kv"
	"github.com/dmitrijs2005/xplit/internal/cryptox"
	"github.com/dmitrijs2005/xplit/internal/logging"
)

// subKeyInfo binds the derived key to this store.
const subKeyInfo = "session-store"

// Storage is the persistence adapter injected into the auth gateway.
// Values are opaque; the store never inspects them.
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// EncryptedStore seals every value with AES-GCM before it reaches the
// repository. Writes are durable when Set or Remove return.
type EncryptedStore struct {
	repo kv.Repository
	key  []byte
	log  logging.Logger
}

// New derives the store key from the key store master key. It fails with
// common.ErrKeyStoreUnavailable when the master key cannot be obtained.
func New(ctx context.Context, ks keystore.KeyStore, repo kv.Repository, log logging.Logger) (*EncryptedStore, error) {
	master, err := ks.GetOrCreateKey(ctx)
	if err != nil {
		return nil, err
	}
	key, err := cryptox.DeriveSubKey(master, subKeyInfo)
	if err != nil {
		return nil, fmt.Errorf("derive session key: %w", err)
	}
	return &EncryptedStore{repo: repo, key: key, log: log}, nil
}

// Get returns the value stored under key. Entries that no longer decrypt
// (rotated key, tampering) are removed and reported as absent.
func (s *EncryptedStore) Get(ctx context.Context, key string) (string, bool, error) {
	sealed, err := s.repo.Get(ctx, key)
	if err != nil {
		return "", false, err
	}
	if sealed == nil {
		return "", false, nil
	}

	plain, err := cryptox.Open(s.key, sealed)
	if err != nil {
		s.log.Warn(ctx, "dropping undecryptable session entry", "key", key, "error", err)
		if derr := s.repo.Delete(ctx, key); derr != nil {
			return "", false, derr
		}
		return "", false, nil
	}
	return string(plain), true, nil
}

func (s *EncryptedStore) Set(ctx context.Context, key, value string) error {
	sealed, err := cryptox.Seal(s.key, []byte(value))
	if err != nil {
		return fmt.Errorf("seal %s: %w", key, err)
	}
	return s.repo.Set(ctx, key, sealed)
}

func (s *EncryptedStore) Remove(ctx context.Context, key string) error {
	return s.repo.Delete(ctx, key)
}
