package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/colemurrin/pricewatch/internal/auth"
	"github.com/colemurrin/pricewatch/internal/models"
)

// AuthSessionRepository defines the interface for session operations
type AuthSessionRepository interface {
	Create(ctx context.Context, userID, tokenHash string, expiresAt time.Time) (*models.AuthSession, error)
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.AuthSession, error)
	Revoke(ctx context.Context, id string, now time.Time) error
	CleanupExpired(ctx context.Context) (int64, error)
}

// UserRepository defines the interface for user operations
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	Update(ctx context.Context, id string, user *models.User) (*models.User, error)
}

// SessionService issues, validates and revokes bearer session tokens.
// Tokens are opaque: only their digest is stored, and a session is
// never refreshed in place, only revoked and reissued.
type SessionService struct {
	sessionRepo AuthSessionRepository
	userRepo    UserRepository
	logger      *slog.Logger
	sessionTTL  time.Duration
	now         func() time.Time
}

// NewSessionService creates a new SessionService
func NewSessionService(sessionRepo AuthSessionRepository, userRepo UserRepository, logger *slog.Logger, sessionTTL time.Duration) *SessionService {
	return &SessionService{
		sessionRepo: sessionRepo,
		userRepo:    userRepo,
		logger:      logger,
		sessionTTL:  sessionTTL,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Issue creates a session for the user and returns the plaintext token.
// The plaintext is returned exactly once and never retrievable again.
func (s *SessionService) Issue(ctx context.Context, userID string) (string, error) {
	plainToken, err := auth.GenerateSessionToken()
	if err != nil {
		s.logger.Error("failed to generate session token", slog.Any("error", err))
		return "", models.ErrInternalServer
	}

	expiresAt := s.now().Add(s.sessionTTL)

	if _, err := s.sessionRepo.Create(ctx, userID, auth.HashSecret(plainToken), expiresAt); err != nil {
		s.logger.Error("failed to persist session",
			slog.String("user_id", userID),
			slog.Any("error", err))
		return "", models.ErrInternalServer
	}

	s.logger.Info("session issued",
		slog.String("user_id", userID),
		slog.Time("expires_at", expiresAt))

	return plainToken, nil
}

// Validate resolves the owning user of a plaintext token. Fails with
// ErrUnauthenticated when the token is unknown, revoked, expired, or
// its user no longer exists.
func (s *SessionService) Validate(ctx context.Context, plainToken string) (*models.User, error) {
	if plainToken == "" {
		return nil, models.ErrUnauthenticated
	}

	session, err := s.sessionRepo.GetByTokenHash(ctx, auth.HashSecret(plainToken))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUnauthenticated
		}
		s.logger.Error("failed to load session", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if !session.IsValid(s.now()) {
		return nil, models.ErrUnauthenticated
	}

	user, err := s.userRepo.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Warn("session references missing user",
				slog.String("session_id", session.ID),
				slog.String("user_id", session.UserID))
			return nil, models.ErrUnauthenticated
		}
		s.logger.Error("failed to load session user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return user, nil
}

// Revoke invalidates the session matching the plaintext token. An
// unknown or already-revoked token is a silent no-op, not an error.
func (s *SessionService) Revoke(ctx context.Context, plainToken string) error {
	if plainToken == "" {
		return nil
	}

	session, err := s.sessionRepo.GetByTokenHash(ctx, auth.HashSecret(plainToken))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil
		}
		s.logger.Error("failed to load session for revocation", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.sessionRepo.Revoke(ctx, session.ID, s.now()); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Already revoked
			return nil
		}
		s.logger.Error("failed to revoke session", slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("session revoked", slog.String("session_id", session.ID))
	return nil
}
