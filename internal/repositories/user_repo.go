package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/colemurrin/pricewatch/internal/database"
	"github.com/colemurrin/pricewatch/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{pool: db.Pool}
}

// rowScanner interface for scanning rows (supports both single row and multiple rows)
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanUserRow handles nullable fields and populates a User model from a database row
func scanUserRow(scanner rowScanner) (*models.User, error) {
	var user models.User
	var phoneNumber *string
	var emailVerifiedAt, phoneVerifiedAt *time.Time

	err := scanner.Scan(
		&user.ID, &user.Email, &phoneNumber,
		&emailVerifiedAt, &phoneVerifiedAt, &user.TwoFactorEnabled,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	user.PhoneNumber = phoneNumber
	user.EmailVerifiedAt = emailVerifiedAt
	user.PhoneVerifiedAt = phoneVerifiedAt

	return &user, nil
}

// scanUserRows iterates through rows and scans each into User models
func scanUserRows(rows pgx.Rows) ([]*models.User, error) {
	defer rows.Close()

	users := make([]*models.User, 0)

	for rows.Next() {
		user, err := scanUserRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return users, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `
		SELECT id, email, phone_number, email_verified_at, phone_verified_at, two_factor_enabled, created_at, updated_at
		FROM users WHERE id = $1
	`

	user, err := scanUserRow(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}

	return user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT id, email, phone_number, email_verified_at, phone_verified_at, two_factor_enabled, created_at, updated_at
		FROM users WHERE email = $1
	`

	user, err := scanUserRow(r.pool.QueryRow(ctx, query, email))
	if err != nil {
		return nil, err
	}

	return user, nil
}

func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	query := `
		SELECT id, email, phone_number, email_verified_at, phone_verified_at, two_factor_enabled, created_at, updated_at
		FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2
	`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}

	return scanUserRows(rows)
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	user.ID = uuid.New().String()

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	query := `
		INSERT INTO users (id, email, phone_number, email_verified_at, phone_verified_at, two_factor_enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, email, phone_number, email_verified_at, phone_verified_at, two_factor_enabled, created_at, updated_at
	`

	createdUser, err := scanUserRow(r.pool.QueryRow(ctx, query,
		user.ID, user.Email, user.PhoneNumber,
		user.EmailVerifiedAt, user.PhoneVerifiedAt, user.TwoFactorEnabled,
		user.CreatedAt, user.UpdatedAt,
	))

	if err != nil {
		return nil, err
	}

	return createdUser, nil
}

func (r *UserRepository) Update(ctx context.Context, id string, user *models.User) (*models.User, error) {
	user.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE users SET phone_number = $1, email_verified_at = $2, phone_verified_at = $3, two_factor_enabled = $4, updated_at = $5
		WHERE id = $6
		RETURNING id, email, phone_number, email_verified_at, phone_verified_at, two_factor_enabled, created_at, updated_at
	`

	updatedUser, err := scanUserRow(r.pool.QueryRow(ctx, query,
		user.PhoneNumber, user.EmailVerifiedAt, user.PhoneVerifiedAt, user.TwoFactorEnabled, user.UpdatedAt, id,
	))

	if err != nil {
		return nil, err
	}

	return updatedUser, nil
}
