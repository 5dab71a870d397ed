package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/colemurrin/pricewatch/internal/models"
	"github.com/colemurrin/pricewatch/internal/scrape"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type checkFixture struct {
	service *CheckService
	items   *mockWatchlistRepository
	runs    *mockPriceCheckRepository
	users   *mockUserRepository
	scraper *mockPriceScraper
	email   *mockEmailSender
}

func newCheckFixture(t *testing.T) *checkFixture {
	t.Helper()
	f := &checkFixture{
		items:   &mockWatchlistRepository{},
		runs:    &mockPriceCheckRepository{},
		scraper: &mockPriceScraper{},
		email:   &mockEmailSender{},
	}
	f.users = &mockUserRepository{
		getByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return &models.User{ID: id, Email: "owner@example.com"}, nil
		},
	}
	f.service = NewCheckService(f.items, f.runs, f.users, f.scraper, f.email, newTestLogger())
	return f
}

func TestRunCheckRecordsScrapeFailure(t *testing.T) {
	f := newCheckFixture(t)
	f.scraper.fetchPriceFunc = func(ctx context.Context, productURL string) (*scrape.Price, error) {
		return nil, errors.New("connection refused")
	}

	run, err := f.service.RunCheck(context.Background(), ownedItem("owner-1"))

	require.NoError(t, err)
	assert.Equal(t, models.RunStatusScrapeError, run.Status)
	assert.False(t, run.AlertSent)
	assert.Nil(t, run.PriceAmount)
}

func TestRunCheckAboveThreshold(t *testing.T) {
	f := newCheckFixture(t)
	f.scraper.fetchPriceFunc = func(ctx context.Context, productURL string) (*scrape.Price, error) {
		return &scrape.Price{Amount: 99.99, Currency: "USD"}, nil
	}
	alerted := false
	f.email.sendAlertFunc = func(ctx context.Context, email, productURL string, price, threshold float64) error {
		alerted = true
		return nil
	}

	run, err := f.service.RunCheck(context.Background(), ownedItem("owner-1"))

	require.NoError(t, err)
	assert.Equal(t, models.RunStatusOK, run.Status)
	assert.False(t, run.AlertSent)
	assert.False(t, alerted)
	require.NotNil(t, run.PriceAmount)
	assert.Equal(t, 99.99, *run.PriceAmount)
}

func TestRunCheckBelowThresholdSendsAlert(t *testing.T) {
	f := newCheckFixture(t)
	f.scraper.fetchPriceFunc = func(ctx context.Context, productURL string) (*scrape.Price, error) {
		return &scrape.Price{Amount: 19.99, Currency: "USD"}, nil
	}
	var alertEmail string
	f.email.sendAlertFunc = func(ctx context.Context, email, productURL string, price, threshold float64) error {
		alertEmail = email
		return nil
	}

	run, err := f.service.RunCheck(context.Background(), ownedItem("owner-1"))

	require.NoError(t, err)
	assert.Equal(t, models.RunStatusAlertSent, run.Status)
	assert.True(t, run.AlertSent)
	assert.Equal(t, "owner@example.com", alertEmail)
}

func TestRunCheckAlertFailureStillRecordsPrice(t *testing.T) {
	f := newCheckFixture(t)
	f.scraper.fetchPriceFunc = func(ctx context.Context, productURL string) (*scrape.Price, error) {
		return &scrape.Price{Amount: 19.99, Currency: "USD"}, nil
	}
	f.email.sendAlertFunc = func(ctx context.Context, email, productURL string, price, threshold float64) error {
		return models.ErrDeliveryFailed
	}

	run, err := f.service.RunCheck(context.Background(), ownedItem("owner-1"))

	require.NoError(t, err)
	assert.Equal(t, models.RunStatusOK, run.Status)
	assert.False(t, run.AlertSent)
	require.NotNil(t, run.PriceAmount)
}

func TestRunCheckUpdatesItemLastObserved(t *testing.T) {
	f := newCheckFixture(t)
	f.scraper.fetchPriceFunc = func(ctx context.Context, productURL string) (*scrape.Price, error) {
		return &scrape.Price{Amount: 75.00, Currency: "EUR"}, nil
	}
	var recordedPrice *float64
	var recordedCurrency *string
	f.items.recordCheckFunc = func(ctx context.Context, id string, price *float64, currency *string, checkedAt time.Time) error {
		recordedPrice = price
		recordedCurrency = currency
		return nil
	}

	_, err := f.service.RunCheck(context.Background(), ownedItem("owner-1"))

	require.NoError(t, err)
	require.NotNil(t, recordedPrice)
	assert.Equal(t, 75.00, *recordedPrice)
	require.NotNil(t, recordedCurrency)
	assert.Equal(t, "EUR", *recordedCurrency)
}
