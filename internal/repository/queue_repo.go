package repository

import (
	"context"

	"github.com/user/scraper-service/internal/entity"
)

// QueueFilter narrows List results. Nil pointer fields mean "any".
type QueueFilter struct {
	Category string
	Priority entity.Priority
	Selected *bool
	Scraped  *bool
	Limit    int
	Offset   int
}

// QueueRepository defines the interface for the persistent URL queue.
// All mutations are per-row atomic; no cross-row transaction is required.
type QueueRepository interface {
	// Append inserts the given rows in one call, silently skipping any
	// whose normalized URL already exists, and returns the rows that were
	// actually inserted.
	Append(ctx context.Context, rows []*entity.SavedURL) ([]*entity.SavedURL, error)
	// Get returns a single row by id, or ErrNotFound.
	Get(ctx context.Context, id string) (*entity.SavedURL, error)
	// List returns rows matching the filter, newest first.
	List(ctx context.Context, filter QueueFilter) ([]*entity.SavedURL, error)
	// FindByNormalized returns the live rows for the given normalized URLs.
	FindByNormalized(ctx context.Context, normalized []string) ([]*entity.SavedURL, error)
	// UpdateSelection sets the selected flag on an unscraped row. It is an
	// idempotent no-op when the flag already has the requested value, fails
	// with ErrRowScraped when the row has been scraped and with ErrNotFound
	// when the id is unknown.
	UpdateSelection(ctx context.Context, id string, selected bool) error
	// SelectAll marks every unscraped row selected and returns how many
	// rows changed.
	SelectAll(ctx context.Context) (int64, error)
	// UnselectAll clears the selected flag on all rows unconditionally and
	// returns how many rows changed.
	UnselectAll(ctx context.Context) (int64, error)
	// ListSelectedUnscraped returns the scrape snapshot: all rows with
	// selected=true and scraped=false.
	ListSelectedUnscraped(ctx context.Context) ([]*entity.SavedURL, error)
	// MarkScraped records a successful scrape: scraped=true, selected
	// cleared, product link and estimated price set. ErrNotFound when the
	// row was deleted in the meantime.
	MarkScraped(ctx context.Context, id, productID string, estimatedPrice *float64) error
	// Requeue resets an already scraped row so it can be scraped again,
	// refreshing its category, priority and notes. ErrNotFound when the id
	// is unknown or the row is not scraped.
	Requeue(ctx context.Context, id, category string, priority entity.Priority, notes string) (*entity.SavedURL, error)
	// Delete removes a row unconditionally, regardless of its state.
	Delete(ctx context.Context, id string) error
	// GroupCounts returns row counts grouped by category, priority,
	// selected and scraped, read in a single query.
	GroupCounts(ctx context.Context) ([]entity.QueueGroupCount, error)
}
