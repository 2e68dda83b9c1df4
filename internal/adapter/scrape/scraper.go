package scrape

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/user/scraper-service/internal/entity"
	"github.com/user/scraper-service/pkg/urlutil"
)

// SiteScraper implements repository.ScraperRepository: it picks the site
// rule for the URL's host, fetches the page with the plain or rendering
// fetcher, extracts product fields and decorates the affiliate URL.
type SiteScraper struct {
	fetcher   Fetcher
	jsFetcher Fetcher
	registry  *Registry
	logger    *zap.Logger
}

// NewSiteScraper wires a scraper. jsFetcher may be nil when headless
// rendering is not available; rules asking for it then degrade to the
// plain fetcher.
func NewSiteScraper(fetcher, jsFetcher Fetcher, registry *Registry, logger *zap.Logger) *SiteScraper {
	return &SiteScraper{
		fetcher:   fetcher,
		jsFetcher: jsFetcher,
		registry:  registry,
		logger:    logger,
	}
}

// Scrape fetches the URL and extracts product fields from it. Failures
// surface classified: repository.ErrFetchTimeout, *repository.HTTPStatusError
// and repository.ErrParse are soft, row-level failures.
func (s *SiteScraper) Scrape(ctx context.Context, rawURL string) (*entity.ProductData, error) {
	host := urlutil.Host(rawURL)
	rule := s.registry.Lookup(host)

	fetcher := s.fetcher
	if rule.RenderJS && s.jsFetcher != nil {
		fetcher = s.jsFetcher
	}

	body, finalURL, err := fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	data, err := NewExtractor(rule).Extract(body, finalURL)
	if err != nil {
		return nil, fmt.Errorf("extracting %s: %w", rawURL, err)
	}

	data.AffiliateURL = AffiliateURL(rawURL, rule.Affiliate)

	s.logger.Debug("scraped page",
		zap.String("url", rawURL),
		zap.String("host", host),
		zap.String("name", data.Name),
		zap.Float64("price", data.Price),
	)
	return data, nil
}
