package repository

import (
	"context"

	"github.com/user/scraper-service/internal/entity"
)

// ScraperRepository defines the contract for fetching and parsing a single
// product page. Failures are classified for the caller: ErrFetchTimeout,
// *HTTPStatusError and ErrParse are soft, per-row failures.
type ScraperRepository interface {
	// Scrape fetches the URL and extracts product fields from it.
	Scrape(ctx context.Context, rawURL string) (*entity.ProductData, error)
}
