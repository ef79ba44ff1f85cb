// Package common defines shared constants and sentinel errors used across
// the whisper-money client. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// ErrKeyLocked is returned when an operation needs the encryption key
	// but the vault has not been unlocked in this session.
	ErrKeyLocked = errors.New("encryption key locked")

	// ErrOffline marks operations deferred until connectivity returns.
	ErrOffline = errors.New("client offline")

	// ErrQueueWrite marks a failed local transactional write; the optimistic
	// update did not happen and the caller must not report success.
	ErrQueueWrite = errors.New("queue write failed")
)
