package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/colemurrin/pricewatch/internal/models"
	"github.com/colemurrin/pricewatch/internal/scrape"
)

// PriceScraper defines the interface for fetching a product price
type PriceScraper interface {
	FetchPrice(ctx context.Context, productURL string) (*scrape.Price, error)
}

// CheckService runs one price check for a watchlist item: scrape,
// record the run, update the item's last-observed fields and send an
// alert email when the price drops below threshold.
type CheckService struct {
	itemRepo WatchlistRepository
	runRepo  PriceCheckRepository
	userRepo UserRepository
	scraper  PriceScraper
	email    EmailSender
	logger   *slog.Logger
	now      func() time.Time
}

// NewCheckService creates a new CheckService
func NewCheckService(
	itemRepo WatchlistRepository,
	runRepo PriceCheckRepository,
	userRepo UserRepository,
	scraper PriceScraper,
	email EmailSender,
	logger *slog.Logger,
) *CheckService {
	return &CheckService{
		itemRepo: itemRepo,
		runRepo:  runRepo,
		userRepo: userRepo,
		scraper:  scraper,
		email:    email,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// RunCheck performs one check for the item and returns the recorded
// run. Every outcome lands in one of the closed run statuses; the run
// row is written even when scraping fails.
func (s *CheckService) RunCheck(ctx context.Context, item *models.WatchlistItem) (*models.PriceCheckRun, error) {
	run := &models.PriceCheckRun{WatchlistItemID: item.ID}

	price, err := s.scraper.FetchPrice(ctx, item.ProductURL)
	if err != nil {
		run.Status = models.RunStatusScrapeError
		run.Message = err.Error()
		s.logger.Warn("price check failed",
			slog.String("item_id", item.ID),
			slog.Any("error", err))
		return s.record(ctx, run)
	}

	if price == nil {
		run.Status = models.RunStatusNoPrice
		run.Message = "no price found in page"
		return s.record(ctx, run)
	}

	run.PriceAmount = &price.Amount
	run.PriceCurrency = &price.Currency
	run.Status = models.RunStatusOK
	run.Message = "price checked"

	if err := s.itemRepo.RecordCheck(ctx, item.ID, &price.Amount, &price.Currency, s.now()); err != nil {
		s.logger.Error("failed to update item after check",
			slog.String("item_id", item.ID),
			slog.Any("error", err))
	}

	if price.Amount < item.Threshold {
		if err := s.sendAlert(ctx, item, price); err != nil {
			run.Message = "price below threshold but alert delivery failed"
			s.logger.Error("failed to send price alert",
				slog.String("item_id", item.ID),
				slog.Any("error", err))
		} else {
			run.Status = models.RunStatusAlertSent
			run.Message = "price below threshold, alert sent"
			run.AlertSent = true
		}
	}

	return s.record(ctx, run)
}

func (s *CheckService) sendAlert(ctx context.Context, item *models.WatchlistItem, price *scrape.Price) error {
	owner, err := s.userRepo.GetByID(ctx, item.UserID)
	if err != nil {
		return err
	}
	return s.email.SendPriceAlert(ctx, owner.Email, item.ProductURL, price.Amount, item.Threshold)
}

func (s *CheckService) record(ctx context.Context, run *models.PriceCheckRun) (*models.PriceCheckRun, error) {
	saved, err := s.runRepo.Create(ctx, run)
	if err != nil {
		s.logger.Error("failed to record price check run", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return saved, nil
}
