package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/user/scraper-service/internal/entity"
	"github.com/user/scraper-service/internal/repository"
)

func seedRows(t *testing.T, repo *fakeQueueRepo, n int, scraped bool) []*entity.SavedURL {
	t.Helper()
	rows := make([]*entity.SavedURL, n)
	for i := 0; i < n; i++ {
		id := string(rune('a'+i)) + "-row"
		rows[i] = &entity.SavedURL{
			ID:            id,
			RawURL:        "https://example.com/" + id,
			NormalizedURL: "https://example.com/" + id,
			Category:      "tech",
			Priority:      entity.PriorityMedium,
			Scraped:       scraped,
			CreatedAt:     time.Now().UTC(),
		}
		repo.rows[id] = rows[i]
	}
	return rows
}

func TestSetSelection(t *testing.T) {
	repo := newFakeQueueRepo()
	rows := seedRows(t, repo, 1, false)
	sm := NewSelectionManager(repo, zap.NewNop())
	ctx := context.Background()

	got, err := sm.SetSelection(ctx, rows[0].ID, true)
	require.NoError(t, err)
	require.True(t, got.Selected)

	// Same value again is an idempotent no-op.
	got, err = sm.SetSelection(ctx, rows[0].ID, true)
	require.NoError(t, err)
	require.True(t, got.Selected)

	got, err = sm.SetSelection(ctx, rows[0].ID, false)
	require.NoError(t, err)
	require.False(t, got.Selected)
}

func TestSetSelectionRejectsScrapedRow(t *testing.T) {
	repo := newFakeQueueRepo()
	rows := seedRows(t, repo, 1, true)
	sm := NewSelectionManager(repo, zap.NewNop())

	_, err := sm.SetSelection(context.Background(), rows[0].ID, true)
	require.ErrorIs(t, err, repository.ErrRowScraped)

	got, err := repo.Get(context.Background(), rows[0].ID)
	require.NoError(t, err)
	require.False(t, got.Selected, "rejected toggle must not change state")
}

func TestSetSelectionUnknownID(t *testing.T) {
	sm := NewSelectionManager(newFakeQueueRepo(), zap.NewNop())
	_, err := sm.SetSelection(context.Background(), "ghost", true)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSelectAllScope(t *testing.T) {
	repo := newFakeQueueRepo()
	unscraped := seedRows(t, repo, 3, false)
	scraped := &entity.SavedURL{
		ID:            "scraped-row",
		NormalizedURL: "https://example.com/scraped",
		Scraped:       true,
		CreatedAt:     time.Now().UTC(),
	}
	repo.rows[scraped.ID] = scraped

	sm := NewSelectionManager(repo, zap.NewNop())
	updated, err := sm.SelectAll(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 3, updated)

	for _, row := range unscraped {
		got, err := repo.Get(context.Background(), row.ID)
		require.NoError(t, err)
		require.True(t, got.Selected)
	}
	got, err := repo.Get(context.Background(), scraped.ID)
	require.NoError(t, err)
	require.False(t, got.Selected, "scraped rows must stay unselected")
}

func TestUnselectAllIdempotent(t *testing.T) {
	repo := newFakeQueueRepo()
	seedRows(t, repo, 3, false)
	sm := NewSelectionManager(repo, zap.NewNop())
	ctx := context.Background()

	_, err := sm.SelectAll(ctx)
	require.NoError(t, err)

	first, err := sm.UnselectAll(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 3, first)

	second, err := sm.UnselectAll(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 0, second)

	rows, err := repo.List(ctx, repository.QueueFilter{})
	require.NoError(t, err)
	for _, row := range rows {
		require.False(t, row.Selected)
	}
}
