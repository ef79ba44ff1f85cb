package models

import (
	"encoding/json"
	"time"
)

// Operation is a pending mutation kind.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// PendingChange is one not-yet-acknowledged mutation in the durable queue.
// Seq orders the queue FIFO across all collections; changes for the same
// record must reach the server in the order they were created. An entry is
// removed only after the corresponding remote call succeeds.
type PendingChange struct {
	Seq       int64           `json:"-"`
	Id        string          `json:"id"`
	Store     string          `json:"store"`
	RecordId  string          `json:"record_id"`
	Operation Operation       `json:"operation"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`

	// Attempts counts failed pushes; LastError keeps the latest failure.
	Attempts  int    `json:"attempts,omitempty"`
	LastError string `json:"last_error,omitempty"`

	// Rejected marks a non-retryable server refusal. The entry stays queued
	// until the user resolves it; it is never silently dropped.
	Rejected bool `json:"rejected,omitempty"`
}
