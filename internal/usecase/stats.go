package usecase

import (
	"context"
	"fmt"

	"github.com/user/scraper-service/internal/entity"
	"github.com/user/scraper-service/internal/repository"
	"github.com/user/scraper-service/pkg/metrics"
)

// StatsReader defines the interface for the derived queue counters.
type StatsReader interface {
	// Summary recomputes the queue counters from a single consistent
	// read, plus the product total.
	Summary(ctx context.Context) (*entity.StatsSummary, error)
}

type statsReader struct {
	queueRepo   repository.QueueRepository
	productRepo repository.ProductRepository
}

// NewStatsReader creates the stats use case.
func NewStatsReader(queueRepo repository.QueueRepository, productRepo repository.ProductRepository) StatsReader {
	return &statsReader{queueRepo: queueRepo, productRepo: productRepo}
}

func (s *statsReader) Summary(ctx context.Context) (*entity.StatsSummary, error) {
	groups, err := s.queueRepo.GroupCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: reading queue stats: %v", repository.ErrStoreUnavailable, err)
	}

	stats := entity.QueueStats{
		ByCategory: make(map[string]int64),
		ByPriority: make(map[string]int64),
	}
	for _, g := range groups {
		stats.Total += g.Count
		stats.ByCategory[g.Category] += g.Count
		stats.ByPriority[string(g.Priority)] += g.Count
		if g.Selected {
			stats.SelectedCount += g.Count
		}
		if g.Scraped {
			stats.ScrapedCount += g.Count
		}
	}
	metrics.QueueSize.Set(float64(stats.Total))

	productsTotal, err := s.productRepo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: counting products: %v", repository.ErrStoreUnavailable, err)
	}

	return &entity.StatsSummary{Queue: stats, ProductsTotal: productsTotal}, nil
}
