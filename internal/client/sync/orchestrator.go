package sync

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/whisper-money/whisper-money-sub001/internal/client/api"
	"github.com/whisper-money/whisper-money-sub001/internal/client/models"
	"github.com/whisper-money/whisper-money-sub001/internal/client/repositories/pending"
	"github.com/whisper-money/whisper-money-sub001/internal/client/repositories/syncmeta"
	"github.com/whisper-money/whisper-money-sub001/internal/common"
	"github.com/whisper-money/whisper-money-sub001/internal/dbx"
	"github.com/whisper-money/whisper-money-sub001/internal/logging"
)

// Collection binds a remote collection name to the local apply step for
// records pulled from the server. Apply upserts one wire record, tombstones
// included, inside the transaction it is handed.
type Collection struct {
	Name  string
	Apply func(ctx context.Context, q dbx.DBTX, record json.RawMessage) error
}

// Orchestrator runs the push-then-pull cycle. Concurrent triggers coalesce
// into the in-flight cycle; a cycle is never cancelled mid-flight.
type Orchestrator struct {
	db          *sql.DB
	remote      api.Client
	queue       pending.Repository
	meta        syncmeta.Repository
	collections []Collection
	hub         *StateHub
	logger      logging.Logger

	group    singleflight.Group
	deferred atomic.Bool

	now func() time.Time
}

func NewOrchestrator(db *sql.DB, remote api.Client, queue pending.Repository, meta syncmeta.Repository, collections []Collection, hub *StateHub, logger logging.Logger) *Orchestrator {
	return &Orchestrator{
		db:          db,
		remote:      remote,
		queue:       queue,
		meta:        meta,
		collections: collections,
		hub:         hub,
		logger:      logger.With("component", "sync"),
		now:         time.Now,
	}
}

// Sync runs one full cycle. While offline the trigger is remembered instead
// of run; the watcher replays it on reconnect. Triggers arriving while a
// cycle is in flight share that cycle's result.
func (o *Orchestrator) Sync(ctx context.Context) error {
	if !o.hub.State().Online {
		o.deferred.Store(true)
		return common.ErrOffline
	}

	_, err, _ := o.group.Do("sync", func() (any, error) {
		return nil, o.run(ctx)
	})
	return err
}

// TakeDeferred reports whether a sync was requested while offline and clears
// the flag.
func (o *Orchestrator) TakeDeferred() bool {
	return o.deferred.Swap(false)
}

// RunPeriodic triggers a cycle every interval until ctx is done.
func (o *Orchestrator) RunPeriodic(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := o.Sync(ctx); err != nil && !errors.Is(err, common.ErrOffline) {
				o.logger.Warn(ctx, "periodic sync failed", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (o *Orchestrator) run(ctx context.Context) error {
	o.hub.update(func(s *SyncState) { s.Status = StatusSyncing; s.Err = nil })

	pushErr := o.push(ctx)
	pullErr := o.pull(ctx)

	err := pushErr
	if err == nil {
		err = pullErr
	}

	if err != nil {
		o.logger.Error(ctx, "sync cycle finished with errors", "error", err)
		o.hub.update(func(s *SyncState) { s.Status = StatusError; s.Err = err })
		return err
	}

	finished := o.now()
	if merr := o.meta.SetLastSyncTime(ctx, o.db, finished); merr != nil {
		o.hub.update(func(s *SyncState) { s.Status = StatusError; s.Err = merr })
		return fmt.Errorf("persist last sync time: %w", merr)
	}

	o.logger.Info(ctx, "sync cycle finished")
	o.hub.update(func(s *SyncState) {
		s.Status = StatusSuccess
		s.Err = nil
		s.LastSyncTime = finished
	})
	return nil
}

// push drains the queue in enqueue order. A failure blocks further pushes for
// that collection only, so per-record ordering holds while other collections
// keep draining. Entries are acknowledged on success and never dropped.
func (o *Orchestrator) push(ctx context.Context) error {
	changes, err := o.queue.Drain(ctx, o.db)
	if err != nil {
		return fmt.Errorf("drain pending queue: %w", err)
	}

	var firstErr error
	blocked := make(map[string]bool)

	for _, ch := range changes {
		if blocked[ch.Store] {
			continue
		}
		if ch.Rejected {
			// Waits for the user; everything behind it in this
			// collection waits too.
			blocked[ch.Store] = true
			continue
		}

		if err := o.pushOne(ctx, ch); err != nil {
			blocked[ch.Store] = true
			if firstErr == nil {
				firstErr = err
			}

			if errors.Is(err, api.ErrRemoteRejected) {
				o.logger.Warn(ctx, "change rejected by server", "store", ch.Store, "record", ch.RecordId, "error", err)
				if merr := o.queue.MarkRejected(ctx, o.db, ch.Id, err.Error()); merr != nil && firstErr == nil {
					firstErr = merr
				}
			} else {
				o.logger.Warn(ctx, "push failed, will retry", "store", ch.Store, "record", ch.RecordId, "error", err)
				if merr := o.queue.MarkAttempt(ctx, o.db, ch.Id, err.Error()); merr != nil && firstErr == nil {
					firstErr = merr
				}
			}
			continue
		}

		if err := o.queue.Ack(ctx, o.db, ch.Id); err != nil {
			blocked[ch.Store] = true
			if firstErr == nil {
				firstErr = fmt.Errorf("ack change: %w", err)
			}
		}
	}

	return firstErr
}

func (o *Orchestrator) pushOne(ctx context.Context, ch models.PendingChange) error {
	switch ch.Operation {
	case models.OpCreate:
		return o.remote.Create(ctx, ch.Store, ch.Payload)
	case models.OpUpdate:
		return o.remote.Update(ctx, ch.Store, ch.RecordId, ch.Payload)
	case models.OpDelete:
		return o.remote.Delete(ctx, ch.Store, ch.RecordId)
	default:
		return fmt.Errorf("unknown pending operation %q", ch.Operation)
	}
}

type wireID struct {
	Id string `json:"id"`
}

// pull fetches the delta since the last completed cycle and applies it.
// Records with an unacknowledged local change are skipped: the local edit is
// newer from this client's point of view and will reach the server first.
func (o *Orchestrator) pull(ctx context.Context) error {
	since, err := o.meta.GetLastSyncTime(ctx, o.db)
	if err != nil {
		return fmt.Errorf("read last sync time: %w", err)
	}

	var firstErr error
	for _, col := range o.collections {
		if err := o.pullCollection(ctx, col, since); err != nil {
			o.logger.Warn(ctx, "pull failed", "store", col.Name, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (o *Orchestrator) pullCollection(ctx context.Context, col Collection, since time.Time) error {
	records, err := o.remote.List(ctx, col.Name, since)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	return dbx.WithTx(ctx, o.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, rec := range records {
			var w wireID
			if err := json.Unmarshal(rec, &w); err != nil {
				return fmt.Errorf("malformed %s record: %w", col.Name, err)
			}
			if w.Id == "" {
				return fmt.Errorf("malformed %s record: missing id", col.Name)
			}

			pendingLocal, err := o.queue.HasPendingFor(ctx, tx, col.Name, w.Id)
			if err != nil {
				return err
			}
			if pendingLocal {
				continue
			}

			if err := col.Apply(ctx, tx, rec); err != nil {
				return fmt.Errorf("apply %s record %s: %w", col.Name, w.Id, err)
			}
		}
		return nil
	})
}
