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

// WatchlistRepository handles watchlist item data access
type WatchlistRepository struct {
	pool *pgxpool.Pool
}

// NewWatchlistRepository creates a new WatchlistRepository
func NewWatchlistRepository(db *database.DB) *WatchlistRepository {
	return &WatchlistRepository{pool: db.Pool}
}

func scanItemRow(row rowScanner) (*models.WatchlistItem, error) {
	var item models.WatchlistItem
	var lastPrice *float64
	var lastCurrency *string
	var lastCheckedAt *time.Time

	err := row.Scan(
		&item.ID, &item.UserID, &item.ProductURL, &item.Threshold, &item.IsActive,
		&lastPrice, &lastCurrency, &lastCheckedAt,
		&item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	item.LastPrice = lastPrice
	item.LastCurrency = lastCurrency
	item.LastCheckedAt = lastCheckedAt

	return &item, nil
}

func scanItemRows(rows pgx.Rows) ([]*models.WatchlistItem, error) {
	defer rows.Close()

	items := make([]*models.WatchlistItem, 0)

	for rows.Next() {
		item, err := scanItemRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan watchlist item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating watchlist rows: %w", err)
	}

	return items, nil
}

const itemColumns = `id, user_id, product_url, threshold, is_active, last_price, last_currency, last_checked_at, created_at, updated_at`

func (r *WatchlistRepository) Create(ctx context.Context, item *models.WatchlistItem) (*models.WatchlistItem, error) {
	item.ID = uuid.New().String()

	query := `
		INSERT INTO watchlist_items (id, user_id, product_url, threshold, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + itemColumns

	created, err := scanItemRow(r.pool.QueryRow(ctx, query,
		item.ID, item.UserID, item.ProductURL, item.Threshold, item.IsActive,
	))
	if err != nil {
		return nil, err
	}

	return created, nil
}

func (r *WatchlistRepository) GetByID(ctx context.Context, id string) (*models.WatchlistItem, error) {
	query := `SELECT ` + itemColumns + ` FROM watchlist_items WHERE id = $1`

	item, err := scanItemRow(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}

	return item, nil
}

func (r *WatchlistRepository) ListByUser(ctx context.Context, userID string) ([]*models.WatchlistItem, error) {
	query := `SELECT ` + itemColumns + ` FROM watchlist_items WHERE user_id = $1 ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query watchlist items: %w", err)
	}

	return scanItemRows(rows)
}

// ListActive returns all active items across users, for the background checker
func (r *WatchlistRepository) ListActive(ctx context.Context) ([]*models.WatchlistItem, error) {
	query := `SELECT ` + itemColumns + ` FROM watchlist_items WHERE is_active = TRUE ORDER BY last_checked_at NULLS FIRST`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query active watchlist items: %w", err)
	}

	return scanItemRows(rows)
}

func (r *WatchlistRepository) Update(ctx context.Context, id string, item *models.WatchlistItem) (*models.WatchlistItem, error) {
	query := `
		UPDATE watchlist_items
		SET threshold = $1, is_active = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING ` + itemColumns

	updated, err := scanItemRow(r.pool.QueryRow(ctx, query, item.Threshold, item.IsActive, id))
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// RecordCheck updates the last-observed price fields after a check run
func (r *WatchlistRepository) RecordCheck(ctx context.Context, id string, price *float64, currency *string, checkedAt time.Time) error {
	query := `
		UPDATE watchlist_items
		SET last_price = $1, last_currency = $2, last_checked_at = $3, updated_at = NOW()
		WHERE id = $4
	`

	result, err := r.pool.Exec(ctx, query, price, currency, checkedAt, id)
	if err != nil {
		return fmt.Errorf("failed to record check: %w", err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// Delete removes an item and its run history
func (r *WatchlistRepository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM price_check_runs WHERE watchlist_item_id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run history: %w", err)
	}

	result, err := r.pool.Exec(ctx, `DELETE FROM watchlist_items WHERE id = $1`, id)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}
