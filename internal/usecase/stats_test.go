package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/user/scraper-service/internal/entity"
)

func TestStatsSummary(t *testing.T) {
	queueRepo := newFakeQueueRepo()
	productRepo := newFakeProductRepo()
	ctx := context.Background()

	add := func(id, category string, priority entity.Priority, selected, scraped bool) {
		queueRepo.rows[id] = &entity.SavedURL{
			ID:            id,
			NormalizedURL: "https://example.com/" + id,
			Category:      category,
			Priority:      priority,
			Selected:      selected,
			Scraped:       scraped,
			CreatedAt:     time.Now().UTC(),
		}
	}
	add("r1", "gaming", entity.PriorityHigh, true, false)
	add("r2", "gaming", entity.PriorityLow, false, true)
	add("r3", "audio", entity.PriorityMedium, true, false)
	add("r4", "audio", entity.PriorityMedium, false, false)

	require.NoError(t, productRepo.Insert(ctx, &entity.Product{ID: "p1"}))

	s := NewStatsReader(queueRepo, productRepo)
	summary, err := s.Summary(ctx)
	require.NoError(t, err)

	require.EqualValues(t, 4, summary.Queue.Total)
	require.EqualValues(t, 2, summary.Queue.SelectedCount)
	require.EqualValues(t, 1, summary.Queue.ScrapedCount)
	require.Equal(t, map[string]int64{"gaming": 2, "audio": 2}, summary.Queue.ByCategory)
	require.Equal(t, map[string]int64{"high": 1, "medium": 2, "low": 1}, summary.Queue.ByPriority)
	require.EqualValues(t, 1, summary.ProductsTotal)
}

func TestStatsSummaryEmptyQueue(t *testing.T) {
	s := NewStatsReader(newFakeQueueRepo(), newFakeProductRepo())
	summary, err := s.Summary(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 0, summary.Queue.Total)
	require.Empty(t, summary.Queue.ByCategory)
	require.EqualValues(t, 0, summary.ProductsTotal)
}
