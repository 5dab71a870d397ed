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

// AuthCodeRepository handles one-time code data access. Rows are never
// physically deleted; consumption is recorded in place for auditing.
type AuthCodeRepository struct {
	pool *pgxpool.Pool
}

// NewAuthCodeRepository creates a new AuthCodeRepository
func NewAuthCodeRepository(db *database.DB) *AuthCodeRepository {
	return &AuthCodeRepository{pool: db.Pool}
}

// scanCodeRow handles nullable fields and populates an AuthCode model from a database row
func scanCodeRow(row rowScanner) (*models.AuthCode, error) {
	var code models.AuthCode
	var consumedAt *time.Time

	err := row.Scan(
		&code.ID, &code.UserID, &code.Purpose, &code.Channel,
		&code.CodeHash, &code.ExpiresAt, &consumedAt, &code.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	code.ConsumedAt = consumedAt
	return &code, nil
}

// Create creates a new auth code record
func (r *AuthCodeRepository) Create(ctx context.Context, userID string, purpose models.CodePurpose, channel models.CodeChannel, codeHash string, expiresAt time.Time) (*models.AuthCode, error) {
	query := `
		INSERT INTO auth_codes (id, user_id, purpose, channel, code_hash, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, user_id, purpose, channel, code_hash, expires_at, consumed_at, created_at
	`

	code, err := scanCodeRow(r.pool.QueryRow(ctx, query, uuid.New().String(), userID, purpose, channel, codeHash, expiresAt))
	if err != nil {
		return nil, fmt.Errorf("failed to create auth code: %w", err)
	}

	return code, nil
}

// GetLatestActive retrieves the most recently issued unconsumed,
// unexpired code for (user, purpose). Older codes for the same purpose
// are implicitly superseded and never returned.
func (r *AuthCodeRepository) GetLatestActive(ctx context.Context, userID string, purpose models.CodePurpose, now time.Time) (*models.AuthCode, error) {
	query := `
		SELECT id, user_id, purpose, channel, code_hash, expires_at, consumed_at, created_at
		FROM auth_codes
		WHERE user_id = $1 AND purpose = $2 AND consumed_at IS NULL AND expires_at >= $3
		ORDER BY created_at DESC
		LIMIT 1
	`

	code, err := scanCodeRow(r.pool.QueryRow(ctx, query, userID, purpose, now))
	if err != nil {
		return nil, err
	}

	return code, nil
}

// MarkConsumed stamps consumed_at on an unconsumed code
func (r *AuthCodeRepository) MarkConsumed(ctx context.Context, id string, now time.Time) error {
	query := `
		UPDATE auth_codes
		SET consumed_at = $1
		WHERE id = $2 AND consumed_at IS NULL
	`

	result, err := r.pool.Exec(ctx, query, now, id)
	if err != nil {
		return fmt.Errorf("failed to mark code as consumed: %w", err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}
