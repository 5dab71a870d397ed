package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/colemurrin/pricewatch/internal/auth"
	"github.com/colemurrin/pricewatch/internal/models"
)

// AuthCodeRepository defines the interface for one-time code operations
type AuthCodeRepository interface {
	Create(ctx context.Context, userID string, purpose models.CodePurpose, channel models.CodeChannel, codeHash string, expiresAt time.Time) (*models.AuthCode, error)
	GetLatestActive(ctx context.Context, userID string, purpose models.CodePurpose, now time.Time) (*models.AuthCode, error)
	MarkConsumed(ctx context.Context, id string, now time.Time) error
}

// CodeService issues and consumes one-time verification codes scoped
// by purpose.
type CodeService struct {
	repo    AuthCodeRepository
	logger  *slog.Logger
	codeTTL time.Duration
	now     func() time.Time
}

// NewCodeService creates a new CodeService
func NewCodeService(repo AuthCodeRepository, logger *slog.Logger, codeTTL time.Duration) *CodeService {
	return &CodeService{
		repo:    repo,
		logger:  logger,
		codeTTL: codeTTL,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Issue generates a fresh code for (user, purpose), persists its digest
// and returns the record together with the plaintext. The plaintext
// exists only here and in the delivery call; it is never stored.
func (s *CodeService) Issue(ctx context.Context, userID string, purpose models.CodePurpose, channel models.CodeChannel) (*models.AuthCode, string, error) {
	plainCode, err := auth.GenerateCode()
	if err != nil {
		s.logger.Error("failed to generate otp code", slog.Any("error", err))
		return nil, "", models.ErrInternalServer
	}

	expiresAt := s.now().Add(s.codeTTL)

	code, err := s.repo.Create(ctx, userID, purpose, channel, auth.HashSecret(plainCode), expiresAt)
	if err != nil {
		s.logger.Error("failed to persist auth code",
			slog.String("user_id", userID),
			slog.String("purpose", string(purpose)),
			slog.Any("error", err))
		return nil, "", models.ErrInternalServer
	}

	s.logger.Info("auth code issued",
		slog.String("user_id", userID),
		slog.String("purpose", string(purpose)),
		slog.String("channel", string(channel)),
		slog.Time("expires_at", expiresAt))

	return code, plainCode, nil
}

// ConsumeValid validates the supplied plaintext against the most
// recently issued unconsumed, unexpired code for (user, purpose) and
// stamps it consumed. Issuing a newer code supersedes older ones: only
// the latest candidate is ever compared, so stale codes fail even when
// unexpired. Digest comparison is constant time.
func (s *CodeService) ConsumeValid(ctx context.Context, userID string, purpose models.CodePurpose, plainCode string) (*models.AuthCode, error) {
	now := s.now()

	candidate, err := s.repo.GetLatestActive(ctx, userID, purpose, now)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrInvalidCode
		}
		s.logger.Error("failed to load auth code", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if !auth.SecureCompare(candidate.CodeHash, auth.HashSecret(plainCode)) {
		return nil, models.ErrInvalidCode
	}

	if err := s.repo.MarkConsumed(ctx, candidate.ID, now); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Lost a race with a parallel consume of the same code
			return nil, models.ErrInvalidCode
		}
		s.logger.Error("failed to mark code consumed", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	consumedAt := now
	candidate.ConsumedAt = &consumedAt

	s.logger.Info("auth code consumed",
		slog.String("user_id", userID),
		slog.String("purpose", string(purpose)))

	return candidate, nil
}
