package api

import (
	"errors"
	"fmt"
)

// Sentinel kinds for remote failures, matched with errors.Is.
var (
	// ErrRemoteRetryable covers network failures, timeouts and 5xx
	// responses. The pending entry stays queued and is retried next cycle.
	ErrRemoteRetryable = errors.New("remote retryable failure")

	// ErrRemoteRejected covers validation/conflict refusals (4xx). The
	// entry stays queued but flagged, so the UI can prompt the user instead
	// of blindly retrying a request that will fail again.
	ErrRemoteRejected = errors.New("remote rejected request")
)

// RemoteError wraps a failed remote call with its context.
type RemoteError struct {
	Op         string // "create", "update", "delete", "list", "ping"
	Collection string
	Status     int    // 0 for transport-level failures
	Detail     string // server message if any
	Kind       error  // ErrRemoteRetryable or ErrRemoteRejected
}

func (e *RemoteError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s %s: %s", e.Op, e.Collection, e.Detail)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Op, e.Collection, e.Status, e.Detail)
}

func (e *RemoteError) Unwrap() error { return e.Kind }

// classify maps an HTTP status to a failure kind. Timeouts (408) and
// throttling (429) are transient even though they arrive as 4xx.
func classify(status int) error {
	if status >= 500 || status == 408 || status == 429 {
		return ErrRemoteRetryable
	}
	return ErrRemoteRejected
}
