package models

import (
	"time"
)

// WatchlistItem is a product URL + threshold pair monitored by the
// background checker.
type WatchlistItem struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	ProductURL    string     `json:"product_url"`
	Threshold     float64    `json:"threshold"`
	IsActive      bool       `json:"is_active"`
	LastPrice     *float64   `json:"last_price,omitempty"`
	LastCurrency  *string    `json:"last_currency,omitempty"`
	LastCheckedAt *time.Time `json:"last_checked_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Price check run statuses. A closed set plus one unknown fallback so
// failure causes stay enumerable.
const (
	RunStatusOK          = "ok"
	RunStatusAlertSent   = "alert_sent"
	RunStatusNoPrice     = "no_price"
	RunStatusScrapeError = "scrape_failed"
	RunStatusUnknown     = "unknown_error"
)

// PriceCheckRun is the audit row recorded for each check attempt.
type PriceCheckRun struct {
	ID              string    `json:"id"`
	WatchlistItemID string    `json:"watchlist_item_id"`
	Status          string    `json:"status"`
	Message         string    `json:"message"`
	PriceAmount     *float64  `json:"price_amount,omitempty"`
	PriceCurrency   *string   `json:"price_currency,omitempty"`
	AlertSent       bool      `json:"alert_sent"`
	CreatedAt       time.Time `json:"created_at"`
}
