// Package sync coordinates the local store with the remote: a push-then-pull
// orchestrator over the pending queue, a broadcast hub for sync state, and a
// connectivity watcher that triggers a cycle when the client comes back online.
package sync

import (
	stdsync "sync"
	"time"
)

// Status is the lifecycle phase of the sync engine.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusSyncing Status = "syncing"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// SyncState is a snapshot of the engine for UI consumption.
type SyncState struct {
	Status       Status
	LastSyncTime time.Time
	Online       bool

	// Err holds the first failure of the last cycle, nil otherwise.
	Err error
}

// StateHub holds the current SyncState and fans out every change to
// subscribers. Sends never block; a slow subscriber misses intermediate
// snapshots but always observes the latest on the next read.
type StateHub struct {
	mu    stdsync.Mutex
	state SyncState
	subs  map[int]chan SyncState
	next  int
}

func NewStateHub() *StateHub {
	return &StateHub{
		state: SyncState{Status: StatusIdle},
		subs:  make(map[int]chan SyncState),
	}
}

// State returns the current snapshot.
func (h *StateHub) State() SyncState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Subscribe registers a listener. The returned cancel func must be called
// when the listener goes away, otherwise its channel leaks.
func (h *StateHub) Subscribe() (<-chan SyncState, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.next
	h.next++
	ch := make(chan SyncState, 8)
	h.subs[id] = ch

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs, id)
	}
}

// update applies mut to the state under the lock and broadcasts the result.
func (h *StateHub) update(mut func(*SyncState)) {
	h.mu.Lock()
	defer h.mu.Unlock()

	mut(&h.state)
	for _, ch := range h.subs {
		select {
		case ch <- h.state:
		default:
		}
	}
}
