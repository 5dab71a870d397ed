package background

import (
	"context"
	"log/slog"
	"time"

	"github.com/colemurrin/pricewatch/internal/services"
)

// staleAttemptAge is how long an untouched attempt counter survives
// before the sweep removes it. Long enough that any active window or
// block has expired many times over.
const staleAttemptAge = 24 * time.Hour

// CleanupManager sweeps long-expired sessions and stale attempt
// counters on an interval.
type CleanupManager struct {
	sessions services.AuthSessionRepository
	attempts services.OtpAttemptRepository
	interval time.Duration
	logger   *slog.Logger
}

// NewCleanupManager creates a new CleanupManager
func NewCleanupManager(sessions services.AuthSessionRepository, attempts services.OtpAttemptRepository, interval time.Duration, logger *slog.Logger) *CleanupManager {
	return &CleanupManager{
		sessions: sessions,
		attempts: attempts,
		interval: interval,
		logger:   logger,
	}
}

// Run starts the cleanup loop and blocks until the context is cancelled
func (m *CleanupManager) Run(ctx context.Context) {
	m.logger.Info("cleanup manager started", slog.Duration("interval", m.interval))

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("cleanup manager stopped")
			return
		case <-ticker.C:
			m.sweep(ctx)
		}
	}
}

func (m *CleanupManager) sweep(ctx context.Context) {
	sessions, err := m.sessions.CleanupExpired(ctx)
	if err != nil {
		m.logger.Error("session cleanup failed", slog.Any("error", err))
	}

	attempts, err := m.attempts.CleanupStale(ctx, staleAttemptAge)
	if err != nil {
		m.logger.Error("attempt counter cleanup failed", slog.Any("error", err))
	}

	if sessions > 0 || attempts > 0 {
		m.logger.Info("cleanup sweep completed",
			slog.Int64("sessions_removed", sessions),
			slog.Int64("attempts_removed", attempts))
	}
}
