package repositories

import (
	"context"
	"fmt"

	"github.com/colemurrin/pricewatch/internal/database"
	"github.com/colemurrin/pricewatch/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PriceCheckRepository handles price check run audit rows
type PriceCheckRepository struct {
	pool *pgxpool.Pool
}

// NewPriceCheckRepository creates a new PriceCheckRepository
func NewPriceCheckRepository(db *database.DB) *PriceCheckRepository {
	return &PriceCheckRepository{pool: db.Pool}
}

func scanRunRow(row rowScanner) (*models.PriceCheckRun, error) {
	var run models.PriceCheckRun
	var priceAmount *float64
	var priceCurrency *string

	err := row.Scan(
		&run.ID, &run.WatchlistItemID, &run.Status, &run.Message,
		&priceAmount, &priceCurrency, &run.AlertSent, &run.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	run.PriceAmount = priceAmount
	run.PriceCurrency = priceCurrency

	return &run, nil
}

// Create records one check attempt
func (r *PriceCheckRepository) Create(ctx context.Context, run *models.PriceCheckRun) (*models.PriceCheckRun, error) {
	run.ID = uuid.New().String()

	query := `
		INSERT INTO price_check_runs (id, watchlist_item_id, status, message, price_amount, price_currency, alert_sent)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, watchlist_item_id, status, message, price_amount, price_currency, alert_sent, created_at
	`

	created, err := scanRunRow(r.pool.QueryRow(ctx, query,
		run.ID, run.WatchlistItemID, run.Status, run.Message,
		run.PriceAmount, run.PriceCurrency, run.AlertSent,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create price check run: %w", err)
	}

	return created, nil
}

// ListByItem returns the check history for an item, newest first
func (r *PriceCheckRepository) ListByItem(ctx context.Context, itemID string) ([]*models.PriceCheckRun, error) {
	query := `
		SELECT id, watchlist_item_id, status, message, price_amount, price_currency, alert_sent, created_at
		FROM price_check_runs
		WHERE watchlist_item_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to query price check runs: %w", err)
	}

	return scanRunRows(rows)
}

func scanRunRows(rows pgx.Rows) ([]*models.PriceCheckRun, error) {
	defer rows.Close()

	runs := make([]*models.PriceCheckRun, 0)

	for rows.Next() {
		run, err := scanRunRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan price check run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run rows: %w", err)
	}

	return runs, nil
}
