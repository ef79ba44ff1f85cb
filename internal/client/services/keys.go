// Package services implements the client-facing operations: key lifecycle,
// per-collection sync services that pair every local write with a queued
// remote mutation, and the automation rule runner. Plaintext exists only
// here and above; everything below this layer carries ciphertext.
package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/whisper-money/whisper-money-sub001/internal/client/repositories/syncmeta"
	"github.com/whisper-money/whisper-money-sub001/internal/common"
	"github.com/whisper-money/whisper-money-sub001/internal/cryptox"
	"github.com/whisper-money/whisper-money-sub001/internal/keystore"
	"github.com/whisper-money/whisper-money-sub001/internal/logging"
)

// probePlaintext is the known value sealed at setup. Decrypting it back
// proves a candidate password derives the right key without ever storing
// the key or the password.
const probePlaintext = "whisper-money/probe/v1"

// ErrAlreadySetUp is returned when Setup runs against a device that already
// holds a salt and probe.
var ErrAlreadySetUp = errors.New("encryption already set up")

// KeyService owns the encryption key lifecycle: initial setup, unlocking
// with the password, locking, and handing the key to the field-encryption
// path. The epoch counter increments on every key-state change so decrypt
// caches can tell stale plaintext from fresh.
type KeyService struct {
	db     *sql.DB
	meta   syncmeta.Repository
	keys   *keystore.Store
	logger logging.Logger
	epoch  atomic.Uint64
}

func NewKeyService(db *sql.DB, meta syncmeta.Repository, keys *keystore.Store, logger logging.Logger) *KeyService {
	return &KeyService{db: db, meta: meta, keys: keys, logger: logger.With("component", "keys")}
}

// IsSetUp reports whether a salt and probe exist on this device.
func (s *KeyService) IsSetUp(ctx context.Context) (bool, error) {
	salt, err := s.meta.Get(ctx, s.db, syncmeta.KeySalt)
	if err != nil {
		return false, err
	}
	return salt != nil, nil
}

// Setup initializes encryption for a fresh device: a new random salt, a key
// derived from password, and the sealed probe persisted next to the salt.
// The derived key lands in the key store, session scope unless persistent.
func (s *KeyService) Setup(ctx context.Context, password string, persistent bool) error {
	done, err := s.IsSetUp(ctx)
	if err != nil {
		return err
	}
	if done {
		return ErrAlreadySetUp
	}

	salt := cryptox.NewSalt()
	key := cryptox.DeriveKey([]byte(password), salt)

	probe, err := cryptox.EncryptString(key, probePlaintext)
	if err != nil {
		return fmt.Errorf("seal probe: %w", err)
	}
	probeRaw, err := json.Marshal(probe)
	if err != nil {
		return fmt.Errorf("encode probe: %w", err)
	}

	if err := s.meta.Set(ctx, s.db, syncmeta.KeySalt, salt); err != nil {
		return fmt.Errorf("store salt: %w", err)
	}
	if err := s.meta.Set(ctx, s.db, syncmeta.KeyProbe, probeRaw); err != nil {
		return fmt.Errorf("store probe: %w", err)
	}

	if err := s.keys.Set(key, persistent); err != nil {
		return err
	}
	s.epoch.Add(1)
	s.logger.Info(ctx, "encryption set up")
	return nil
}

// Unlock derives a key from password and validates it against the sealed
// probe. A wrong password surfaces as common.ErrorUnauthorized; nothing is
// stored in that case.
func (s *KeyService) Unlock(ctx context.Context, password string, persistent bool) error {
	salt, err := s.meta.Get(ctx, s.db, syncmeta.KeySalt)
	if err != nil {
		return err
	}
	probeRaw, err := s.meta.Get(ctx, s.db, syncmeta.KeyProbe)
	if err != nil {
		return err
	}
	if salt == nil || probeRaw == nil {
		return fmt.Errorf("%w: device not set up", common.ErrorUnauthorized)
	}

	var probe cryptox.EncryptedString
	if err := json.Unmarshal(probeRaw, &probe); err != nil {
		return fmt.Errorf("decode probe: %w", err)
	}

	key := cryptox.DeriveKey([]byte(password), salt)
	plain, err := cryptox.DecryptString(key, probe)
	if err != nil || plain != probePlaintext {
		return fmt.Errorf("%w: wrong password", common.ErrorUnauthorized)
	}

	if err := s.keys.Set(key, persistent); err != nil {
		return err
	}
	s.epoch.Add(1)
	s.logger.Info(ctx, "vault unlocked")
	return nil
}

// Lock wipes the key from every scope. Encrypted fields degrade to the
// placeholder until the next Unlock.
func (s *KeyService) Lock(ctx context.Context) error {
	if err := s.keys.Clear(); err != nil {
		return err
	}
	s.epoch.Add(1)
	s.logger.Info(ctx, "vault locked")
	return nil
}

// Key returns the current key, or common.ErrKeyLocked when none is held.
func (s *KeyService) Key() ([]byte, error) {
	key, err := s.keys.Get()
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, common.ErrKeyLocked
	}
	return key, nil
}

// Epoch identifies the current key state for cache invalidation.
func (s *KeyService) Epoch() uint64 { return s.epoch.Load() }

// IsUnlocked reports whether a key is currently available.
func (s *KeyService) IsUnlocked() bool {
	key, err := s.keys.Get()
	return err == nil && key != nil
}
