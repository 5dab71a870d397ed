package integration

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/colemurrin/pricewatch/internal/auth"
	"github.com/colemurrin/pricewatch/internal/database"
	"github.com/colemurrin/pricewatch/internal/models"
	"github.com/colemurrin/pricewatch/internal/repositories"
)

// TestDB manages the PostgreSQL testcontainer and database handles
type TestDB struct {
	Container  testcontainers.Container
	ConnString string
	Pool       *pgxpool.Pool
	DB         *database.DB
}

// SetupTestDatabase starts a PostgreSQL container, runs migrations and
// returns the handles tests need
func SetupTestDatabase(ctx context.Context) (*TestDB, error) {
	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("pricewatch"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	if err := database.Migrate(connStr); err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &TestDB{
		Container:  container,
		ConnString: connStr,
		Pool:       pool,
		DB:         &database.DB{Pool: pool},
	}, nil
}

// Teardown closes the pool and stops the container
func (db *TestDB) Teardown(ctx context.Context) error {
	if db.Pool != nil {
		db.Pool.Close()
	}
	if db.Container != nil {
		return db.Container.Terminate(ctx)
	}
	return nil
}

// CleanupTables truncates all tables for test isolation
func (db *TestDB) CleanupTables(ctx context.Context) error {
	tables := []string{
		"price_check_runs",
		"watchlist_items",
		"otp_attempts",
		"auth_sessions",
		"auth_codes",
		"users",
	}

	for _, table := range tables {
		if _, err := db.Pool.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)); err != nil {
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	return nil
}

// Repositories bundles every repository built on the test database
type Repositories struct {
	Users     *repositories.UserRepository
	Codes     *repositories.AuthCodeRepository
	Sessions  *repositories.AuthSessionRepository
	Attempts  *repositories.OtpAttemptRepository
	Items     *repositories.WatchlistRepository
	PriceRuns *repositories.PriceCheckRepository
}

// InitializeRepositories creates all repository instances
func InitializeRepositories(db *database.DB) *Repositories {
	return &Repositories{
		Users:     repositories.NewUserRepository(db),
		Codes:     repositories.NewAuthCodeRepository(db),
		Sessions:  repositories.NewAuthSessionRepository(db),
		Attempts:  repositories.NewOtpAttemptRepository(db),
		Items:     repositories.NewWatchlistRepository(db),
		PriceRuns: repositories.NewPriceCheckRepository(db),
	}
}

// SeedVerifiedUser inserts a fully verified user
func SeedVerifiedUser(ctx context.Context, repos *Repositories, email, phone string) (*models.User, error) {
	user, err := repos.Users.Create(ctx, &models.User{Email: email, PhoneNumber: &phone})
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	now := time.Now().UTC()
	user.EmailVerifiedAt = &now
	user.PhoneVerifiedAt = &now
	user.TwoFactorEnabled = true

	user, err = repos.Users.Update(ctx, user.ID, user)
	if err != nil {
		return nil, fmt.Errorf("failed to verify user: %w", err)
	}

	return user, nil
}

// SeedAuthCode inserts an unconsumed code and returns its plaintext
func SeedAuthCode(ctx context.Context, repos *Repositories, userID string, purpose models.CodePurpose, ttl time.Duration) (string, error) {
	plain, err := auth.GenerateCode()
	if err != nil {
		return "", err
	}

	_, err = repos.Codes.Create(ctx, userID, purpose, models.ChannelEmail, auth.HashSecret(plain), time.Now().UTC().Add(ttl))
	if err != nil {
		return "", fmt.Errorf("failed to insert auth code: %w", err)
	}

	return plain, nil
}
