package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/colemurrin/pricewatch/internal/database"
	"github.com/colemurrin/pricewatch/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuthSessionRepository handles bearer session data access
type AuthSessionRepository struct {
	pool *pgxpool.Pool
}

// NewAuthSessionRepository creates a new AuthSessionRepository
func NewAuthSessionRepository(db *database.DB) *AuthSessionRepository {
	return &AuthSessionRepository{pool: db.Pool}
}

// scanSessionRow handles nullable fields and populates an AuthSession model from a database row
func scanSessionRow(row rowScanner) (*models.AuthSession, error) {
	var session models.AuthSession
	var revokedAt *time.Time

	err := row.Scan(
		&session.ID, &session.UserID, &session.TokenHash,
		&session.ExpiresAt, &revokedAt, &session.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	session.RevokedAt = revokedAt
	return &session, nil
}

// Create creates a new session record
func (r *AuthSessionRepository) Create(ctx context.Context, userID, tokenHash string, expiresAt time.Time) (*models.AuthSession, error) {
	query := `
		INSERT INTO auth_sessions (id, user_id, token_hash, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, token_hash, expires_at, revoked_at, created_at
	`

	session, err := scanSessionRow(r.pool.QueryRow(ctx, query, uuid.New().String(), userID, tokenHash, expiresAt))
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

// GetByTokenHash retrieves a session by its token digest
func (r *AuthSessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*models.AuthSession, error) {
	query := `
		SELECT id, user_id, token_hash, expires_at, revoked_at, created_at
		FROM auth_sessions
		WHERE token_hash = $1
	`

	session, err := scanSessionRow(r.pool.QueryRow(ctx, query, tokenHash))
	if err != nil {
		return nil, err
	}

	return session, nil
}

// Revoke stamps revoked_at on a session
func (r *AuthSessionRepository) Revoke(ctx context.Context, id string, now time.Time) error {
	query := `
		UPDATE auth_sessions
		SET revoked_at = $1
		WHERE id = $2 AND revoked_at IS NULL
	`

	result, err := r.pool.Exec(ctx, query, now, id)
	if err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// CleanupExpired deletes sessions whose expiry is long past
func (r *AuthSessionRepository) CleanupExpired(ctx context.Context) (int64, error) {
	query := `
		DELETE FROM auth_sessions
		WHERE expires_at < NOW() - INTERVAL '30 days'
	`

	result, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup expired sessions: %w", err)
	}

	return result.RowsAffected(), nil
}
