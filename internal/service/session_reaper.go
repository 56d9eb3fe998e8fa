package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// SessionReaper periodically purges expired sessions. Expired sessions are
// already rejected by Validate, so a missed sweep only costs storage.
type SessionReaper struct {
	sessions *SessionManager
	interval time.Duration
	logger   *zap.Logger
}

func NewSessionReaper(sessions *SessionManager, interval time.Duration, logger *zap.Logger) *SessionReaper {
	return &SessionReaper{
		sessions: sessions,
		interval: interval,
		logger:   logger,
	}
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (r *SessionReaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *SessionReaper) sweep(ctx context.Context) {
	count, err := r.sessions.Reap(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		r.logger.Error("failed to reap expired sessions", zap.Error(err))
		return
	}
	if count > 0 {
		r.logger.Info("reaped expired sessions", zap.Int64("count", count))
	}
}
