package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Price is the result of a successful extraction.
type Price struct {
	Amount   float64
	Currency string
}

// PageScraper fetches a product page and extracts a price from common
// markup. Extraction is a best-effort regex heuristic over meta tags
// and visible price markup, not a robust parser.
type PageScraper struct {
	httpClient *http.Client
}

// NewPageScraper creates a new PageScraper
func NewPageScraper() *PageScraper {
	return &PageScraper{
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

const maxBodyBytes = 2 << 20 // 2 MiB is plenty for price markup

var pricePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)property="(?:og|product):price:amount"\s+content="([0-9]+(?:[.,][0-9]{1,2})?)"`),
	regexp.MustCompile(`(?i)itemprop="price"\s+content="([0-9]+(?:[.,][0-9]{1,2})?)"`),
	regexp.MustCompile(`(?i)"price"\s*:\s*"?([0-9]+(?:\.[0-9]{1,2})?)"?`),
	regexp.MustCompile(`(?i)[$€£]\s?([0-9]+(?:[.,][0-9]{2}))`),
}

var currencyPattern = regexp.MustCompile(`(?i)property="(?:og|product):price:currency"\s+content="([A-Z]{3})"`)

// FetchPrice downloads the page and returns the first price it can
// recognize. Currency defaults to USD when the page does not declare
// one.
func (s *PageScraper) FetchPrice(ctx context.Context, productURL string) (*Price, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, productURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", "pricewatch/1.0")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("page returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read page body: %w", err)
	}

	return ExtractPrice(string(body))
}

// ExtractPrice scans HTML for the first recognizable price.
func ExtractPrice(html string) (*Price, error) {
	for _, pattern := range pricePatterns {
		match := pattern.FindStringSubmatch(html)
		if match == nil {
			continue
		}

		raw := strings.ReplaceAll(match[1], ",", ".")
		amount, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}

		currency := "USD"
		if cm := currencyPattern.FindStringSubmatch(html); cm != nil {
			currency = strings.ToUpper(cm[1])
		}

		return &Price{Amount: amount, Currency: currency}, nil
	}

	return nil, fmt.Errorf("no price found in page")
}
