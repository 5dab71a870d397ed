package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/colemurrin/pricewatch/internal/models"
)

// WatchlistRepository defines the interface for watchlist item operations
type WatchlistRepository interface {
	Create(ctx context.Context, item *models.WatchlistItem) (*models.WatchlistItem, error)
	GetByID(ctx context.Context, id string) (*models.WatchlistItem, error)
	ListByUser(ctx context.Context, userID string) ([]*models.WatchlistItem, error)
	ListActive(ctx context.Context) ([]*models.WatchlistItem, error)
	Update(ctx context.Context, id string, item *models.WatchlistItem) (*models.WatchlistItem, error)
	RecordCheck(ctx context.Context, id string, price *float64, currency *string, checkedAt time.Time) error
	Delete(ctx context.Context, id string) error
}

// PriceCheckRepository defines the interface for check run audit rows
type PriceCheckRepository interface {
	Create(ctx context.Context, run *models.PriceCheckRun) (*models.PriceCheckRun, error)
	ListByItem(ctx context.Context, itemID string) ([]*models.PriceCheckRun, error)
}

// WatchlistUpdate carries the mutable fields of an item; nil means
// leave unchanged.
type WatchlistUpdate struct {
	Threshold *float64
	IsActive  *bool
}

// WatchlistService handles watchlist business logic scoped to an
// owning user.
type WatchlistService struct {
	itemRepo WatchlistRepository
	runRepo  PriceCheckRepository
	logger   *slog.Logger
}

// NewWatchlistService creates a new WatchlistService
func NewWatchlistService(itemRepo WatchlistRepository, runRepo PriceCheckRepository, logger *slog.Logger) *WatchlistService {
	return &WatchlistService{
		itemRepo: itemRepo,
		runRepo:  runRepo,
		logger:   logger,
	}
}

// CreateItem adds a watchlist item for the user
func (s *WatchlistService) CreateItem(ctx context.Context, userID, productURL string, threshold float64, isActive bool) (*models.WatchlistItem, error) {
	item, err := s.itemRepo.Create(ctx, &models.WatchlistItem{
		UserID:     userID,
		ProductURL: productURL,
		Threshold:  threshold,
		IsActive:   isActive,
	})
	if err != nil {
		s.logger.Error("failed to create watchlist item", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("watchlist item created",
		slog.String("item_id", item.ID),
		slog.String("user_id", userID))

	return item, nil
}

// ListItems returns the user's watchlist
func (s *WatchlistService) ListItems(ctx context.Context, userID string) ([]*models.WatchlistItem, error) {
	items, err := s.itemRepo.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list watchlist items", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return items, nil
}

// getOwnedItem resolves an item and enforces ownership. A foreign item
// is reported as ErrNotFound, not ErrForbidden, to avoid leaking its
// existence.
func (s *WatchlistService) getOwnedItem(ctx context.Context, userID, itemID string) (*models.WatchlistItem, error) {
	item, err := s.itemRepo.GetByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to load watchlist item", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if item.UserID != userID {
		return nil, models.ErrNotFound
	}
	return item, nil
}

// UpdateItem changes the threshold and/or active flag of an owned item
func (s *WatchlistService) UpdateItem(ctx context.Context, userID, itemID string, update WatchlistUpdate) (*models.WatchlistItem, error) {
	item, err := s.getOwnedItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}

	if update.Threshold != nil {
		item.Threshold = *update.Threshold
	}
	if update.IsActive != nil {
		item.IsActive = *update.IsActive
	}

	updated, err := s.itemRepo.Update(ctx, item.ID, item)
	if err != nil {
		s.logger.Error("failed to update watchlist item", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return updated, nil
}

// DeleteItem removes an owned item together with its run history
func (s *WatchlistService) DeleteItem(ctx context.Context, userID, itemID string) error {
	item, err := s.getOwnedItem(ctx, userID, itemID)
	if err != nil {
		return err
	}

	if err := s.itemRepo.Delete(ctx, item.ID); err != nil {
		s.logger.Error("failed to delete watchlist item", slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("watchlist item deleted",
		slog.String("item_id", item.ID),
		slog.String("user_id", userID))

	return nil
}

// ListRuns returns the check history of an owned item, newest first
func (s *WatchlistService) ListRuns(ctx context.Context, userID, itemID string) ([]*models.PriceCheckRun, error) {
	item, err := s.getOwnedItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}

	runs, err := s.runRepo.ListByItem(ctx, item.ID)
	if err != nil {
		s.logger.Error("failed to list price check runs", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return runs, nil
}

// GetOwnedActiveItem resolves an owned item for a manual check,
// rejecting inactive items.
func (s *WatchlistService) GetOwnedActiveItem(ctx context.Context, userID, itemID string) (*models.WatchlistItem, error) {
	item, err := s.getOwnedItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	if !item.IsActive {
		return nil, models.ErrBadRequest
	}
	return item, nil
}
