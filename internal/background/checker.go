package background

import (
	"context"
	"log/slog"
	"time"

	"github.com/colemurrin/pricewatch/internal/services"
)

// Checker periodically re-checks every active watchlist item. Items are
// checked serially, least recently checked first, so one slow storefront
// cannot starve the rest indefinitely within a sweep.
type Checker struct {
	items    services.WatchlistRepository
	checks   *services.CheckService
	interval time.Duration
	logger   *slog.Logger
}

// NewChecker creates a new Checker
func NewChecker(items services.WatchlistRepository, checks *services.CheckService, interval time.Duration, logger *slog.Logger) *Checker {
	return &Checker{
		items:    items,
		checks:   checks,
		interval: interval,
		logger:   logger,
	}
}

// Run starts the periodic check loop and blocks until the context is
// cancelled. One sweep runs immediately on start.
func (c *Checker) Run(ctx context.Context) {
	c.logger.Info("price check worker started", slog.Duration("interval", c.interval))

	c.sweep(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("price check worker stopped")
			return
		case <-ticker.C:
			c.sweep(ctx)
		}
	}
}

func (c *Checker) sweep(ctx context.Context) {
	items, err := c.items.ListActive(ctx)
	if err != nil {
		c.logger.Error("failed to list active watchlist items", slog.Any("error", err))
		return
	}

	checked := 0
	for _, item := range items {
		if ctx.Err() != nil {
			return
		}
		if _, err := c.checks.RunCheck(ctx, item); err != nil {
			c.logger.Error("price check failed",
				slog.String("item_id", item.ID),
				slog.Any("error", err))
			continue
		}
		checked++
	}

	c.logger.Info("price check sweep completed",
		slog.Int("total", len(items)),
		slog.Int("checked", checked))
}
