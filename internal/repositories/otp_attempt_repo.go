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

// OtpAttemptRepository handles brute-force counter data access
type OtpAttemptRepository struct {
	pool *pgxpool.Pool
}

// NewOtpAttemptRepository creates a new OtpAttemptRepository
func NewOtpAttemptRepository(db *database.DB) *OtpAttemptRepository {
	return &OtpAttemptRepository{pool: db.Pool}
}

// scanAttemptRow handles nullable fields and populates an OtpAttempt model from a database row
func scanAttemptRow(row rowScanner) (*models.OtpAttempt, error) {
	var attempt models.OtpAttempt
	var blockedUntil *time.Time

	err := row.Scan(
		&attempt.ID, &attempt.SubjectKey, &attempt.FailCount,
		&attempt.WindowStartedAt, &blockedUntil, &attempt.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	attempt.BlockedUntil = blockedUntil
	return &attempt, nil
}

// GetBySubjectKey retrieves the counter for a subject, ErrNotFound when absent
func (r *OtpAttemptRepository) GetBySubjectKey(ctx context.Context, subjectKey string) (*models.OtpAttempt, error) {
	query := `
		SELECT id, subject_key, fail_count, window_started_at, blocked_until, updated_at
		FROM otp_attempts
		WHERE subject_key = $1
	`

	attempt, err := scanAttemptRow(r.pool.QueryRow(ctx, query, subjectKey))
	if err != nil {
		return nil, err
	}

	return attempt, nil
}

// Upsert creates or replaces the counter state for a subject in a
// single statement, so the create-if-absent path is explicit rather
// than hidden inside a read.
func (r *OtpAttemptRepository) Upsert(ctx context.Context, attempt *models.OtpAttempt) (*models.OtpAttempt, error) {
	if attempt.ID == "" {
		attempt.ID = uuid.New().String()
	}

	query := `
		INSERT INTO otp_attempts (id, subject_key, fail_count, window_started_at, blocked_until, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (subject_key) DO UPDATE
		SET fail_count = EXCLUDED.fail_count,
		    window_started_at = EXCLUDED.window_started_at,
		    blocked_until = EXCLUDED.blocked_until,
		    updated_at = NOW()
		RETURNING id, subject_key, fail_count, window_started_at, blocked_until, updated_at
	`

	saved, err := scanAttemptRow(r.pool.QueryRow(ctx, query,
		attempt.ID, attempt.SubjectKey, attempt.FailCount,
		attempt.WindowStartedAt, attempt.BlockedUntil,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert otp attempt: %w", err)
	}

	return saved, nil
}

// DeleteBySubjectKey removes the counter entirely. Deleting an absent
// subject is not an error.
func (r *OtpAttemptRepository) DeleteBySubjectKey(ctx context.Context, subjectKey string) error {
	query := `DELETE FROM otp_attempts WHERE subject_key = $1`

	_, err := r.pool.Exec(ctx, query, subjectKey)
	if err != nil {
		return fmt.Errorf("failed to delete otp attempt: %w", err)
	}

	return nil
}

// CleanupStale deletes counters untouched for longer than the window
// plus block duration; they can no longer influence any decision.
func (r *OtpAttemptRepository) CleanupStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	query := `DELETE FROM otp_attempts WHERE updated_at < $1`

	result, err := r.pool.Exec(ctx, query, time.Now().UTC().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup stale otp attempts: %w", err)
	}

	return result.RowsAffected(), nil
}
