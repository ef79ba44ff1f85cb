// Package keystore holds the exported symmetric key material in a scoped
// storage area. Session scope lives in process memory and vanishes when the
// client exits; persistent scope survives restarts in a 0600 file under the
// user config dir (the "keep me signed in" preference). Exactly one key
// value is held at a time and no network access ever happens here.
package keystore

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/whisper-money/whisper-money-sub001/internal/common"
)

const keyFileName = "key"

// Store is a scoped key-material store.
type Store struct {
	mu      sync.Mutex
	dir     string
	session []byte
}

// New returns a Store backed by dir for the persistent scope.
func New(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) keyPath() string {
	return filepath.Join(s.dir, keyFileName)
}

// Set stores key material. With persistent=true the key is written base64
// encoded to disk; otherwise it is kept in memory only. Either way a
// previously stored value in the other scope is discarded so there is never
// more than one key.
func (s *Store) Set(key []byte, persistent bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	common.WipeByteArray(s.session)
	s.session = nil

	if !persistent {
		s.session = append([]byte(nil), key...)
		// A stale persistent copy must not outlive a session-scoped choice.
		if err := os.Remove(s.keyPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove persisted key: %w", err)
		}
		return nil
	}

	encoded := base64.StdEncoding.EncodeToString(key)
	if err := os.WriteFile(s.keyPath(), []byte(encoded), 0o600); err != nil {
		return fmt.Errorf("write key file: %w", err)
	}
	return nil
}

// Get returns the stored key material, or nil when no key is stored.
func (s *Store) Get() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session != nil {
		return append([]byte(nil), s.session...), nil
	}

	data, err := os.ReadFile(s.keyPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}

	key, err := base64.StdEncoding.DecodeString(string(data))
	if err != nil {
		return nil, fmt.Errorf("decode key file: %w", err)
	}
	return key, nil
}

// Clear wipes both scopes. Used on logout and explicit lock.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	common.WipeByteArray(s.session)
	s.session = nil

	if err := os.Remove(s.keyPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove key file: %w", err)
	}
	return nil
}
