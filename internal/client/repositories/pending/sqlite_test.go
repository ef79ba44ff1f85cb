package pending

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/whisper-money/whisper-money-sub001/internal/client/models"
	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE IF NOT EXISTS pending_changes (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  id TEXT NOT NULL UNIQUE,
  store TEXT NOT NULL,
  record_id TEXT NOT NULL,
  operation TEXT NOT NULL,
  payload BLOB,
  created_at TEXT NOT NULL,
  attempts INTEGER NOT NULL DEFAULT 0,
  last_error TEXT NOT NULL DEFAULT '',
  rejected INTEGER NOT NULL DEFAULT 0
);`)
	require.NoError(t, err)
	return db
}

func payload(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestEnqueue_FIFOAcrossCollections(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository()
	ctx := context.Background()

	require.NoError(t, r.Enqueue(ctx, db, "transactions", "t1", models.OpCreate, payload(t, map[string]string{"id": "t1"})))
	require.NoError(t, r.Enqueue(ctx, db, "categories", "c1", models.OpCreate, payload(t, map[string]string{"id": "c1"})))
	require.NoError(t, r.Enqueue(ctx, db, "transactions", "t2", models.OpCreate, payload(t, map[string]string{"id": "t2"})))

	got, err := r.Drain(ctx, db)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, "t1", got[0].RecordId)
	require.Equal(t, "c1", got[1].RecordId)
	require.Equal(t, "t2", got[2].RecordId)
	require.True(t, got[0].Seq < got[1].Seq && got[1].Seq < got[2].Seq)
}

func TestEnqueue_UpdateUpdateCoalesces(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository()
	ctx := context.Background()

	a := payload(t, map[string]string{"id": "t1", "note": "A"})
	b := payload(t, map[string]string{"id": "t1", "note": "B"})

	require.NoError(t, r.Enqueue(ctx, db, "transactions", "t1", models.OpUpdate, a))
	require.NoError(t, r.Enqueue(ctx, db, "transactions", "t1", models.OpUpdate, b))

	got, err := r.Drain(ctx, db)
	require.NoError(t, err)
	require.Len(t, got, 1, "later update must coalesce into the earliest entry")
	require.Equal(t, models.OpUpdate, got[0].Operation)
	require.JSONEq(t, string(b), string(got[0].Payload))
}

func TestEnqueue_CreateThenUpdateStaysCreate(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository()
	ctx := context.Background()

	require.NoError(t, r.Enqueue(ctx, db, "transactions", "t1", models.OpCreate, payload(t, map[string]string{"v": "1"})))
	latest := payload(t, map[string]string{"v": "2"})
	require.NoError(t, r.Enqueue(ctx, db, "transactions", "t1", models.OpUpdate, latest))

	got, err := r.Drain(ctx, db)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, models.OpCreate, got[0].Operation, "remote call must stay a create")
	require.JSONEq(t, string(latest), string(got[0].Payload))
}

func TestEnqueue_CreateThenDeleteCollapsesToNothing(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository()
	ctx := context.Background()

	require.NoError(t, r.Enqueue(ctx, db, "transactions", "t1", models.OpCreate, payload(t, map[string]string{"id": "t1"})))
	require.NoError(t, r.Enqueue(ctx, db, "transactions", "t1", models.OpUpdate, payload(t, map[string]string{"id": "t1", "note": "x"})))
	require.NoError(t, r.Enqueue(ctx, db, "transactions", "t1", models.OpDelete, nil))

	got, err := r.Drain(ctx, db)
	require.NoError(t, err)
	require.Empty(t, got, "record never reached the server, nothing to sync")
}

func TestEnqueue_UpdateThenDeleteCollapsesToDelete(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository()
	ctx := context.Background()

	require.NoError(t, r.Enqueue(ctx, db, "transactions", "t1", models.OpUpdate, payload(t, map[string]string{"note": "x"})))
	require.NoError(t, r.Enqueue(ctx, db, "transactions", "t1", models.OpUpdate, payload(t, map[string]string{"note": "y"})))
	require.NoError(t, r.Enqueue(ctx, db, "transactions", "t1", models.OpDelete, nil))

	got, err := r.Drain(ctx, db)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, models.OpDelete, got[0].Operation)
}

func TestEnqueue_CompactionIsPerRecord(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository()
	ctx := context.Background()

	require.NoError(t, r.Enqueue(ctx, db, "transactions", "t1", models.OpUpdate, payload(t, map[string]string{"v": "a"})))
	require.NoError(t, r.Enqueue(ctx, db, "transactions", "t2", models.OpUpdate, payload(t, map[string]string{"v": "b"})))
	require.NoError(t, r.Enqueue(ctx, db, "transactions", "t1", models.OpUpdate, payload(t, map[string]string{"v": "c"})))

	got, err := r.Drain(ctx, db)
	require.NoError(t, err)
	require.Len(t, got, 2, "entries for other records must be untouched")
}

func TestAck_Idempotent(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository()
	ctx := context.Background()

	require.NoError(t, r.Enqueue(ctx, db, "labels", "l1", models.OpCreate, payload(t, map[string]string{"id": "l1"})))
	got, err := r.Drain(ctx, db)
	require.NoError(t, err)
	require.Len(t, got, 1)

	require.NoError(t, r.Ack(ctx, db, got[0].Id))
	require.NoError(t, r.Ack(ctx, db, got[0].Id), "double ack must be a no-op")

	n, err := r.Count(ctx, db)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestMarkRejected_KeepsEntryQueued(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository()
	ctx := context.Background()

	require.NoError(t, r.Enqueue(ctx, db, "budgets", "b1", models.OpCreate, payload(t, map[string]string{"id": "b1"})))
	got, err := r.Drain(ctx, db)
	require.NoError(t, err)

	require.NoError(t, r.MarkRejected(ctx, db, got[0].Id, "validation: amount must be positive"))

	got, err = r.Drain(ctx, db)
	require.NoError(t, err)
	require.Len(t, got, 1, "rejected entries are never silently dropped")
	require.True(t, got[0].Rejected)
	require.Equal(t, 1, got[0].Attempts)
	require.Contains(t, got[0].LastError, "validation")

	require.NoError(t, r.ClearRejected(ctx, db, got[0].Id))
	got, err = r.Drain(ctx, db)
	require.NoError(t, err)
	require.False(t, got[0].Rejected)
}

func TestHasPendingFor(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository()
	ctx := context.Background()

	ok, err := r.HasPendingFor(ctx, db, "transactions", "t1")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, r.Enqueue(ctx, db, "transactions", "t1", models.OpUpdate, payload(t, map[string]string{"id": "t1"})))

	ok, err = r.HasPendingFor(ctx, db, "transactions", "t1")
	require.NoError(t, err)
	require.True(t, ok)
}
