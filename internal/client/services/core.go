package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/whisper-money/whisper-money-sub001/internal/client/api"
	"github.com/whisper-money/whisper-money-sub001/internal/client/models"
	"github.com/whisper-money/whisper-money-sub001/internal/client/repositories/pending"
	"github.com/whisper-money/whisper-money-sub001/internal/common"
	"github.com/whisper-money/whisper-money-sub001/internal/cryptox"
	"github.com/whisper-money/whisper-money-sub001/internal/dbx"
	"github.com/whisper-money/whisper-money-sub001/internal/logging"
)

// core carries what every per-collection service needs: the database for
// transaction scoping, the pending queue, the key lifecycle, an optional
// remote for first-run hydration, and a decrypt cache.
type core struct {
	db     *sql.DB
	queue  pending.Repository
	keys   *KeyService
	remote api.Client
	logger logging.Logger
	cache  *decryptCache
	now    func() time.Time

	hydrated atomic.Bool
}

func newCore(db *sql.DB, queue pending.Repository, keys *KeyService, remote api.Client, logger logging.Logger) *core {
	return &core{
		db:     db,
		queue:  queue,
		keys:   keys,
		remote: remote,
		logger: logger,
		cache:  newDecryptCache(),
		now:    time.Now,
	}
}

// stage runs the optimistic local write and the queue enqueue as one
// transaction. Either both land or neither does; a failure means the user's
// change did not happen and must be reported, never swallowed.
func (c *core) stage(ctx context.Context, store, recordID string, op models.Operation, payload json.RawMessage, apply func(ctx context.Context, tx dbx.DBTX) error) error {
	err := dbx.WithTx(ctx, c.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := apply(ctx, tx); err != nil {
			return err
		}
		return c.queue.Enqueue(ctx, tx, store, recordID, op, payload)
	})
	if err == nil {
		c.cache.invalidateRecord(recordID)
		return nil
	}
	if errors.Is(err, common.ErrorNotFound) {
		return err
	}
	return fmt.Errorf("%w: %v", common.ErrQueueWrite, err)
}

// hydrate backfills an empty collection from the server once per process, so
// a fresh device shows data on first read. Being offline here is not an
// error; the collection simply starts empty and fills on the first sync.
func (c *core) hydrate(ctx context.Context, store string, count int, apply func(ctx context.Context, q dbx.DBTX, record json.RawMessage) error) {
	if count > 0 || c.remote == nil {
		return
	}
	if !c.hydrated.CompareAndSwap(false, true) {
		return
	}

	records, err := c.remote.List(ctx, store, time.Time{})
	if err != nil {
		c.hydrated.Store(false)
		c.logger.Debug(ctx, "hydration skipped", "store", store, "error", err)
		return
	}

	err = dbx.WithTx(ctx, c.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, rec := range records {
			if err := apply(ctx, tx, rec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		c.hydrated.Store(false)
		c.logger.Warn(ctx, "hydration failed", "store", store, "error", err)
	}
}

// seal encrypts one field with the current key.
func (c *core) seal(value string) (cryptox.EncryptedString, error) {
	key, err := c.keys.Key()
	if err != nil {
		return cryptox.EncryptedString{}, err
	}
	return cryptox.EncryptString(key, value)
}

// reveal decrypts one field through the cache. A locked key or unopenable
// ciphertext degrades to the placeholder rather than failing the read.
func (c *core) reveal(recordID, field string, v cryptox.EncryptedString) string {
	if v.IsZero() {
		return ""
	}

	epoch := c.keys.Epoch()
	cacheKey := recordID + "/" + field
	if s, ok := c.cache.get(epoch, cacheKey); ok {
		return s
	}

	key, err := c.keys.Key()
	if err != nil {
		return Placeholder
	}
	plain, err := cryptox.DecryptString(key, v)
	if err != nil {
		return Placeholder
	}

	c.cache.put(epoch, cacheKey, plain)
	return plain
}
