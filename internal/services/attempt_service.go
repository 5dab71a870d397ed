package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/colemurrin/pricewatch/internal/models"
)

// OtpAttemptRepository defines the interface for brute-force counter operations
type OtpAttemptRepository interface {
	GetBySubjectKey(ctx context.Context, subjectKey string) (*models.OtpAttempt, error)
	Upsert(ctx context.Context, attempt *models.OtpAttempt) (*models.OtpAttempt, error)
	DeleteBySubjectKey(ctx context.Context, subjectKey string) error
	CleanupStale(ctx context.Context, olderThan time.Duration) (int64, error)
}

// AttemptConfig holds the OTP brute-force limits
type AttemptConfig struct {
	MaxAttempts   int
	Window        time.Duration
	BlockDuration time.Duration
}

// AttemptService rate-limits OTP verification per (identity, purpose,
// origin) subject. Per-subject keying means an attacker spread across
// origins is limited independently per origin; a legitimate user on a
// different network is never locked out by someone else's failures.
type AttemptService struct {
	repo   OtpAttemptRepository
	config AttemptConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewAttemptService creates a new AttemptService
func NewAttemptService(repo OtpAttemptRepository, config AttemptConfig, logger *slog.Logger) *AttemptService {
	return &AttemptService{
		repo:   repo,
		config: config,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CheckNotBlocked fails with ErrRateLimited while the subject's block
// is still in the future. Succeeds silently otherwise.
func (s *AttemptService) CheckNotBlocked(ctx context.Context, subjectKey string) error {
	attempt, err := s.repo.GetBySubjectKey(ctx, subjectKey)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil
		}
		s.logger.Error("failed to load otp attempt counter", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if attempt.IsBlocked(s.now()) {
		s.logger.Warn("otp subject blocked",
			slog.String("subject_key", subjectKey),
			slog.Time("blocked_until", *attempt.BlockedUntil))
		return models.ErrRateLimited
	}

	return nil
}

// RecordFailure increments the failure counter for the subject. When
// the window has elapsed the counter resets to 1 and any block is
// cleared; when the incremented count reaches the configured maximum a
// block is set for the configured duration.
func (s *AttemptService) RecordFailure(ctx context.Context, subjectKey string) error {
	now := s.now()

	attempt, err := s.repo.GetBySubjectKey(ctx, subjectKey)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.logger.Error("failed to load otp attempt counter", slog.Any("error", err))
			return models.ErrInternalServer
		}
		attempt = &models.OtpAttempt{
			SubjectKey:      subjectKey,
			FailCount:       1,
			WindowStartedAt: now,
		}
	} else if attempt.WindowElapsed(now, s.config.Window) {
		attempt.FailCount = 1
		attempt.WindowStartedAt = now
		attempt.BlockedUntil = nil
	} else {
		attempt.FailCount++
	}

	if attempt.FailCount >= s.config.MaxAttempts {
		blockedUntil := now.Add(s.config.BlockDuration)
		attempt.BlockedUntil = &blockedUntil
		s.logger.Warn("otp subject reached attempt limit",
			slog.String("subject_key", subjectKey),
			slog.Int("fail_count", attempt.FailCount),
			slog.Time("blocked_until", blockedUntil))
	}

	if _, err := s.repo.Upsert(ctx, attempt); err != nil {
		s.logger.Error("failed to persist otp attempt counter", slog.Any("error", err))
		return models.ErrInternalServer
	}

	return nil
}

// Clear deletes the counter after a successful verification. No
// residual history is kept; a missing counter is a no-op.
func (s *AttemptService) Clear(ctx context.Context, subjectKey string) error {
	if err := s.repo.DeleteBySubjectKey(ctx, subjectKey); err != nil {
		s.logger.Error("failed to clear otp attempt counter", slog.Any("error", err))
		return models.ErrInternalServer
	}
	return nil
}
