package pending

import (
	"context"
	"encoding/json"

	"github.com/whisper-money/whisper-money-sub001/internal/client/models"
	"github.com/whisper-money/whisper-money-sub001/internal/dbx"
)

// Repository is the durable pending-change queue: an ordered log of
// not-yet-acknowledged mutations, FIFO across all collections.
type Repository interface {
	// Enqueue appends (or compacts into) the queue. It must run inside the
	// same transaction as the corresponding local-store write, so pass the
	// enclosing DBTX. Compaction rules:
	//   - a later update for a record with an unacknowledged entry replaces
	//     that entry's payload in place (a pending create stays a create);
	//   - a delete collapses the record's chain: to nothing when a pending
	//     create exists (the record never reached the server), otherwise to
	//     a single delete entry.
	Enqueue(ctx context.Context, q dbx.DBTX, store, recordID string, op models.Operation, payload json.RawMessage) error

	// Drain returns all queued changes in enqueue order.
	Drain(ctx context.Context, q dbx.DBTX) ([]models.PendingChange, error)

	// Ack removes an acknowledged entry. Acknowledging an already-removed
	// entry is a no-op.
	Ack(ctx context.Context, q dbx.DBTX, changeID string) error

	// MarkAttempt records a retryable push failure against an entry.
	MarkAttempt(ctx context.Context, q dbx.DBTX, changeID string, errMsg string) error

	// MarkRejected flags a non-retryable server refusal; the entry stays
	// queued until the user resolves it.
	MarkRejected(ctx context.Context, q dbx.DBTX, changeID string, reason string) error

	// ClearRejected lifts the rejected flag so the entry is pushed again
	// (used after the user edits the offending record).
	ClearRejected(ctx context.Context, q dbx.DBTX, changeID string) error

	// HasPendingFor reports whether any unacknowledged change references the
	// record; pulls must not overwrite such records.
	HasPendingFor(ctx context.Context, q dbx.DBTX, store, recordID string) (bool, error)

	// Count returns the number of queued entries.
	Count(ctx context.Context, q dbx.DBTX) (int, error)
}
