package pending

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/whisper-money/whisper-money-sub001/internal/client/models"
	"github.com/whisper-money/whisper-money-sub001/internal/dbx"
)

type SQLiteRepository struct{}

func NewSQLiteRepository() *SQLiteRepository {
	return &SQLiteRepository{}
}

func (r *SQLiteRepository) Enqueue(ctx context.Context, q dbx.DBTX, store, recordID string, op models.Operation, payload json.RawMessage) error {
	switch op {
	case models.OpCreate:
		return r.insert(ctx, q, store, recordID, op, payload)
	case models.OpUpdate:
		return r.enqueueUpdate(ctx, q, store, recordID, payload)
	case models.OpDelete:
		return r.enqueueDelete(ctx, q, store, recordID)
	default:
		return fmt.Errorf("unknown operation %q", op)
	}
}

func (r *SQLiteRepository) insert(ctx context.Context, q dbx.DBTX, store, recordID string, op models.Operation, payload json.RawMessage) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO pending_changes (id, store, record_id, operation, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), store, recordID, string(op), []byte(payload),
		time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to enqueue change: %w", err)
	}
	return nil
}

// enqueueUpdate coalesces into the earliest unacknowledged entry for the
// record when one exists; a pending create keeps its operation so the remote
// call stays a create carrying the freshest payload.
func (r *SQLiteRepository) enqueueUpdate(ctx context.Context, q dbx.DBTX, store, recordID string, payload json.RawMessage) error {
	seq, _, err := r.earliestFor(ctx, q, store, recordID)
	if errors.Is(err, sql.ErrNoRows) {
		return r.insert(ctx, q, store, recordID, models.OpUpdate, payload)
	}
	if err != nil {
		return err
	}

	_, err = q.ExecContext(ctx,
		`UPDATE pending_changes SET payload=? WHERE seq=?`, []byte(payload), seq)
	if err != nil {
		return fmt.Errorf("failed to coalesce change: %w", err)
	}
	return nil
}

// enqueueDelete collapses the record's whole pending chain. When the chain
// starts with an unacknowledged create the record never existed remotely, so
// nothing at all is enqueued.
func (r *SQLiteRepository) enqueueDelete(ctx context.Context, q dbx.DBTX, store, recordID string) error {
	_, op, err := r.earliestFor(ctx, q, store, recordID)
	hadCreate := err == nil && op == models.OpCreate
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	if _, err := q.ExecContext(ctx,
		`DELETE FROM pending_changes WHERE store=? AND record_id=?`, store, recordID); err != nil {
		return fmt.Errorf("failed to collapse chain: %w", err)
	}

	if hadCreate {
		return nil
	}
	return r.insert(ctx, q, store, recordID, models.OpDelete, nil)
}

func (r *SQLiteRepository) earliestFor(ctx context.Context, q dbx.DBTX, store, recordID string) (int64, models.Operation, error) {
	var (
		seq int64
		op  string
	)
	err := q.QueryRowContext(ctx,
		`SELECT seq, operation FROM pending_changes
		 WHERE store=? AND record_id=? ORDER BY seq ASC LIMIT 1`,
		store, recordID).Scan(&seq, &op)
	if err != nil {
		return 0, "", err
	}
	return seq, models.Operation(op), nil
}

func (r *SQLiteRepository) Drain(ctx context.Context, q dbx.DBTX) ([]models.PendingChange, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT seq, id, store, record_id, operation, payload, created_at, attempts, last_error, rejected
		 FROM pending_changes ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to drain queue: %w", err)
	}
	defer rows.Close()

	var result []models.PendingChange
	for rows.Next() {
		var (
			c         models.PendingChange
			op        string
			payload   []byte
			createdAt string
		)
		if err := rows.Scan(&c.Seq, &c.Id, &c.Store, &c.RecordId, &op, &payload,
			&createdAt, &c.Attempts, &c.LastError, &c.Rejected); err != nil {
			return nil, fmt.Errorf("pending row scan failed: %w", err)
		}
		c.Operation = models.Operation(op)
		c.Payload = json.RawMessage(payload)
		if c.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("parse time %q: %w", createdAt, err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) Ack(ctx context.Context, q dbx.DBTX, changeID string) error {
	// Idempotent: deleting an already-removed entry affects zero rows.
	if _, err := q.ExecContext(ctx,
		`DELETE FROM pending_changes WHERE id=?`, changeID); err != nil {
		return fmt.Errorf("failed to ack change: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) MarkAttempt(ctx context.Context, q dbx.DBTX, changeID string, errMsg string) error {
	if _, err := q.ExecContext(ctx,
		`UPDATE pending_changes SET attempts=attempts+1, last_error=? WHERE id=?`,
		errMsg, changeID); err != nil {
		return fmt.Errorf("failed to mark attempt: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) MarkRejected(ctx context.Context, q dbx.DBTX, changeID string, reason string) error {
	if _, err := q.ExecContext(ctx,
		`UPDATE pending_changes SET rejected=1, attempts=attempts+1, last_error=? WHERE id=?`,
		reason, changeID); err != nil {
		return fmt.Errorf("failed to mark rejected: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ClearRejected(ctx context.Context, q dbx.DBTX, changeID string) error {
	if _, err := q.ExecContext(ctx,
		`UPDATE pending_changes SET rejected=0, last_error='' WHERE id=?`, changeID); err != nil {
		return fmt.Errorf("failed to clear rejected flag: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) HasPendingFor(ctx context.Context, q dbx.DBTX, store, recordID string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pending_changes WHERE store=? AND record_id=?`,
		store, recordID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check pending: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) Count(ctx context.Context, q dbx.DBTX) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM pending_changes`).Scan(&n)
	return n, err
}

var _ Repository = (*SQLiteRepository)(nil)
