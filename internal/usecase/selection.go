package usecase

import (
	"context"

	"go.uber.org/zap"

	"github.com/user/scraper-service/internal/entity"
	"github.com/user/scraper-service/internal/repository"
)

// SelectionManager defines the interface for marking queue rows for the
// next scrape pass. Only unscraped rows are selectable; that rule is
// enforced here regardless of what the client believes.
type SelectionManager interface {
	// SetSelection sets the selected flag on one row and returns the
	// updated row. ErrRowScraped when the row is already scraped,
	// ErrNotFound when the id is unknown. Idempotent when the flag
	// already has the requested value.
	SetSelection(ctx context.Context, id string, selected bool) (*entity.SavedURL, error)
	// SelectAll selects every unscraped row; returns rows changed.
	SelectAll(ctx context.Context) (int64, error)
	// UnselectAll clears the selection on all rows; returns rows changed.
	UnselectAll(ctx context.Context) (int64, error)
}

type selectionManager struct {
	queueRepo repository.QueueRepository
	logger    *zap.Logger
}

// NewSelectionManager creates the selection use case.
func NewSelectionManager(queueRepo repository.QueueRepository, logger *zap.Logger) SelectionManager {
	return &selectionManager{queueRepo: queueRepo, logger: logger}
}

func (s *selectionManager) SetSelection(ctx context.Context, id string, selected bool) (*entity.SavedURL, error) {
	if err := s.queueRepo.UpdateSelection(ctx, id, selected); err != nil {
		return nil, err
	}
	return s.queueRepo.Get(ctx, id)
}

func (s *selectionManager) SelectAll(ctx context.Context) (int64, error) {
	updated, err := s.queueRepo.SelectAll(ctx)
	if err != nil {
		return 0, err
	}
	s.logger.Info("selected all unscraped rows", zap.Int64("updated", updated))
	return updated, nil
}

func (s *selectionManager) UnselectAll(ctx context.Context) (int64, error) {
	updated, err := s.queueRepo.UnselectAll(ctx)
	if err != nil {
		return 0, err
	}
	s.logger.Info("cleared all selections", zap.Int64("updated", updated))
	return updated, nil
}
