package syncmeta

import (
	"context"
	"time"

	"github.com/whisper-money/whisper-money-sub001/internal/dbx"
)

// Well-known keys.
const (
	KeyLastSyncTime = "last_sync_time"
	KeySalt         = "salt"
	KeyProbe        = "probe"
	KeySessionToken = "session_token"
)

// Repository is a small key/value store for sync and encryption-setup
// metadata (the sync_meta singleton of the on-device schema).
type Repository interface {
	Get(ctx context.Context, q dbx.DBTX, key string) ([]byte, error)
	Set(ctx context.Context, q dbx.DBTX, key string, value []byte) error
	Delete(ctx context.Context, q dbx.DBTX, key string) error
	Clear(ctx context.Context, q dbx.DBTX) error

	// GetLastSyncTime returns the zero time when no sync has completed yet.
	GetLastSyncTime(ctx context.Context, q dbx.DBTX) (time.Time, error)
	SetLastSyncTime(ctx context.Context, q dbx.DBTX, t time.Time) error
}
