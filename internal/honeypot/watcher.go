package honeypot

import (
	"context"
	"time"

	"go.uber.org/zap"

	"honeypot/internal/session"
)

// IdleWatcher concludes sessions that have gone quiet and evicts sessions
// that were already reported. It is the injectable conclude-trigger policy;
// the engine itself never infers conversation end from message content.
type IdleWatcher struct {
	engine        *Engine
	store         *session.Store
	idleTimeout   time.Duration
	sweepInterval time.Duration
	logger        *zap.Logger
}

// NewIdleWatcher creates a watcher. idleTimeout and sweepInterval must be
// positive; callers disable the watcher by not running it.
func NewIdleWatcher(engine *Engine, store *session.Store, idleTimeout, sweepInterval time.Duration, logger *zap.Logger) *IdleWatcher {
	return &IdleWatcher{
		engine:        engine,
		store:         store,
		idleTimeout:   idleTimeout,
		sweepInterval: sweepInterval,
		logger:        logger,
	}
}

// Run sweeps until ctx is cancelled.
func (w *IdleWatcher) Run(ctx context.Context) {
	w.logger.Info("Idle watcher started",
		zap.Duration("idle_timeout", w.idleTimeout),
		zap.Duration("sweep_interval", w.sweepInterval))

	ticker := time.NewTicker(w.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Idle watcher stopped")
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep concludes idle active sessions and removes idle concluded ones.
func (w *IdleWatcher) Sweep(ctx context.Context) {
	cutoff := time.Now().Add(-w.idleTimeout)
	active, concluded := w.store.IdleSince(cutoff)

	for _, id := range active {
		concludeCtx, cancel := context.WithTimeout(ctx, time.Minute)
		err := w.engine.Conclude(concludeCtx, id)
		cancel()

		if err != nil {
			w.logger.Error("Failed to conclude idle session",
				zap.Error(err),
				zap.String("session_id", id))
			continue
		}
		w.logger.Info("Idle session concluded", zap.String("session_id", id))
	}

	for _, id := range concluded {
		w.store.Remove(id)
		w.logger.Debug("Reported session evicted", zap.String("session_id", id))
	}
}
