package sync

import (
	"context"
	"time"

	"github.com/whisper-money/whisper-money-sub001/internal/logging"
)

// Pinger reports server reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Watcher probes the server on a ticker and publishes Online transitions to
// the hub. On offline to online it triggers a sync so queued offline work
// drains as soon as connectivity returns.
type Watcher struct {
	remote   Pinger
	orch     *Orchestrator
	hub      *StateHub
	logger   logging.Logger
	interval time.Duration
	timeout  time.Duration
}

func NewWatcher(remote Pinger, orch *Orchestrator, hub *StateHub, logger logging.Logger, interval time.Duration) *Watcher {
	return &Watcher{
		remote:   remote,
		orch:     orch,
		hub:      hub,
		logger:   logger.With("component", "watcher"),
		interval: interval,
		timeout:  3 * time.Second,
	}
}

// Run blocks until ctx is done. The first probe happens immediately so the
// client does not sit in the unknown state for a full interval after start.
func (w *Watcher) Run(ctx context.Context) {
	w.probe(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.probe(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (w *Watcher) probe(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, w.timeout)
	err := w.remote.Ping(pingCtx)
	cancel()

	wasOnline := w.hub.State().Online
	online := err == nil

	if online != wasOnline {
		w.hub.update(func(s *SyncState) { s.Online = online })
		if online {
			w.logger.Info(ctx, "server reachable, going online")
			w.orch.TakeDeferred()
			go func() {
				if err := w.orch.Sync(ctx); err != nil {
					w.logger.Warn(ctx, "reconnect sync failed", "error", err)
				}
			}()
		} else {
			w.logger.Info(ctx, "server unreachable, going offline")
		}
		return
	}

	// A sync requested while offline runs on the next online probe even
	// without a transition (the client may have started online).
	if online && w.orch.TakeDeferred() {
		go func() {
			if err := w.orch.Sync(ctx); err != nil {
				w.logger.Warn(ctx, "deferred sync failed", "error", err)
			}
		}()
	}
}
