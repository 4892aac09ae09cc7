// Package keystore keeps the device-wide symmetric key that protects the
// local session store. The key lives in the OS secure storage (Keychain,
// Secret Service or Windows Credential Manager) and is created on first use.
package keystore

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"

	"github.com/zalando/go-keyring"

	"github.com/dmitrijs2005/xplit/internal/common"
	"github.com/dmitrijs2005/xplit/internal/cryptox"
	"github.com/dmitrijs2005/xplit/internal/logging"
)

// DefaultUser is the keyring account name the key is stored under.
const DefaultUser = "session-encryption-key"

// KeyStore hands out the session encryption key.
type KeyStore interface {
	GetOrCreateKey(ctx context.Context) ([]byte, error)
}

// Backend is the subset of the keyring API used by Store.
type Backend interface {
	Get(service, user string) (string, error)
	Set(service, user, secret string) error
}

type systemBackend struct{}

func (systemBackend) Get(service, user string) (string, error) { return keyring.Get(service, user) }
func (systemBackend) Set(service, user, secret string) error {
	return keyring.Set(service, user, secret)
}

// Store is a KeyStore over the OS keyring. The key is cached after the first
// successful lookup.
type Store struct {
	service string
	user    string
	backend Backend
	log     logging.Logger

	mu  sync.Mutex
	key []byte
}

// New returns a Store for service using the system keyring.
func New(service string, log logging.Logger) *Store {
	return NewWithBackend(service, DefaultUser, systemBackend{}, log)
}

func NewWithBackend(service, user string, b Backend, log logging.Logger) *Store {
	return &Store{service: service, user: user, backend: b, log: log}
}

// GetOrCreateKey returns the stored key, generating and persisting a fresh
// 256-bit key when none exists. Any keyring failure other than "not found"
// is reported as common.ErrKeyStoreUnavailable.
func (s *Store) GetOrCreateKey(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.key != nil {
		return clone(s.key), nil
	}

	encoded, err := s.backend.Get(s.service, s.user)
	switch {
	case err == nil:
		key, derr := base64.StdEncoding.DecodeString(encoded)
		if derr != nil || len(key) != cryptox.KeySize {
			return nil, fmt.Errorf("%w: stored key is corrupt", common.ErrKeyStoreUnavailable)
		}
		s.key = key
		return clone(key), nil

	case errors.Is(err, keyring.ErrNotFound):
		key := common.GenerateRandByteArray(cryptox.KeySize)
		if err := s.backend.Set(s.service, s.user, base64.StdEncoding.EncodeToString(key)); err != nil {
			return nil, fmt.Errorf("%w: store key: %v", common.ErrKeyStoreUnavailable, err)
		}
		s.log.Info(ctx, "generated new session encryption key", "service", s.service)
		s.key = key
		return clone(key), nil

	default:
		return nil, fmt.Errorf("%w: %v", common.ErrKeyStoreUnavailable, err)
	}
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
