package services

import (
	"context"
	"testing"

	"github.com/colemurrin/pricewatch/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ownedItem(userID string) *models.WatchlistItem {
	return &models.WatchlistItem{
		ID:         "item-1",
		UserID:     userID,
		ProductURL: "https://shop.example.com/widget",
		Threshold:  49.99,
		IsActive:   true,
	}
}

func TestUpdateForeignItemReportsNotFound(t *testing.T) {
	repo := &mockWatchlistRepository{
		getByIDFunc: func(ctx context.Context, id string) (*models.WatchlistItem, error) {
			return ownedItem("owner-1"), nil
		},
	}
	service := NewWatchlistService(repo, &mockPriceCheckRepository{}, newTestLogger())

	threshold := 10.0
	_, err := service.UpdateItem(context.Background(), "intruder-2", "item-1", WatchlistUpdate{Threshold: &threshold})

	// Existence of another user's item must not leak
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUpdateItemAppliesPartialChanges(t *testing.T) {
	repo := &mockWatchlistRepository{
		getByIDFunc: func(ctx context.Context, id string) (*models.WatchlistItem, error) {
			return ownedItem("owner-1"), nil
		},
	}
	service := NewWatchlistService(repo, &mockPriceCheckRepository{}, newTestLogger())

	threshold := 29.99
	updated, err := service.UpdateItem(context.Background(), "owner-1", "item-1", WatchlistUpdate{Threshold: &threshold})

	require.NoError(t, err)
	assert.Equal(t, 29.99, updated.Threshold)
	assert.True(t, updated.IsActive) // untouched field stays
}

func TestDeleteForeignItemReportsNotFound(t *testing.T) {
	deleted := false
	repo := &mockWatchlistRepository{
		getByIDFunc: func(ctx context.Context, id string) (*models.WatchlistItem, error) {
			return ownedItem("owner-1"), nil
		},
		deleteFunc: func(ctx context.Context, id string) error {
			deleted = true
			return nil
		},
	}
	service := NewWatchlistService(repo, &mockPriceCheckRepository{}, newTestLogger())

	err := service.DeleteItem(context.Background(), "intruder-2", "item-1")

	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.False(t, deleted)
}

func TestGetOwnedActiveItemRejectsInactive(t *testing.T) {
	item := ownedItem("owner-1")
	item.IsActive = false
	repo := &mockWatchlistRepository{
		getByIDFunc: func(ctx context.Context, id string) (*models.WatchlistItem, error) {
			return item, nil
		},
	}
	service := NewWatchlistService(repo, &mockPriceCheckRepository{}, newTestLogger())

	_, err := service.GetOwnedActiveItem(context.Background(), "owner-1", "item-1")

	assert.ErrorIs(t, err, models.ErrBadRequest)
}

func TestListRunsChecksOwnershipFirst(t *testing.T) {
	listed := false
	repo := &mockWatchlistRepository{
		getByIDFunc: func(ctx context.Context, id string) (*models.WatchlistItem, error) {
			return ownedItem("owner-1"), nil
		},
	}
	runRepo := &mockPriceCheckRepository{
		listByItemFunc: func(ctx context.Context, itemID string) ([]*models.PriceCheckRun, error) {
			listed = true
			return []*models.PriceCheckRun{{ID: "run-1", WatchlistItemID: itemID}}, nil
		},
	}
	service := NewWatchlistService(repo, runRepo, newTestLogger())

	_, err := service.ListRuns(context.Background(), "intruder-2", "item-1")
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.False(t, listed)

	runs, err := service.ListRuns(context.Background(), "owner-1", "item-1")
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
