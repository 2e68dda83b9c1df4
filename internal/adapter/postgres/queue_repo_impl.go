package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/user/scraper-service/internal/entity"
	"github.com/user/scraper-service/internal/repository"
)

const savedURLColumns = `id, raw_url, normalized_url, category, priority, notes, selected, scraped, estimated_price, linked_product_id, created_at, scraped_at`

// QueueRepoImpl provides a concrete implementation for the QueueRepository
// interface using PostgreSQL. The UNIQUE constraint on normalized_url is
// the authority for deduplication.
type QueueRepoImpl struct {
	db *pgxpool.Pool
}

// NewQueueRepo creates a new instance of QueueRepoImpl.
func NewQueueRepo(db *pgxpool.Pool) *QueueRepoImpl {
	return &QueueRepoImpl{db: db}
}

// Ping reports whether the database is reachable.
func (r *QueueRepoImpl) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

// Append inserts the rows in one batch. Rows whose normalized_url already
// exists are skipped by the conflict clause; only rows actually written
// are returned.
func (r *QueueRepoImpl) Append(ctx context.Context, rows []*entity.SavedURL) ([]*entity.SavedURL, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	query := `
		INSERT INTO saved_urls (id, raw_url, normalized_url, category, priority, notes, selected, scraped, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (normalized_url) DO NOTHING;
	`

	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(query,
			row.ID,
			row.RawURL,
			row.NormalizedURL,
			row.Category,
			string(row.Priority),
			row.Notes,
			row.Selected,
			row.Scraped,
			row.CreatedAt,
		)
	}

	br := r.db.SendBatch(ctx, batch)
	var inserted []*entity.SavedURL
	for _, row := range rows {
		tag, err := br.Exec()
		if err != nil {
			br.Close()
			return nil, fmt.Errorf("inserting %s: %w", row.NormalizedURL, err)
		}
		if tag.RowsAffected() > 0 {
			inserted = append(inserted, row)
		}
	}
	if err := br.Close(); err != nil {
		return nil, err
	}
	return inserted, nil
}

// Get retrieves a single row by id.
func (r *QueueRepoImpl) Get(ctx context.Context, id string) (*entity.SavedURL, error) {
	query := `SELECT ` + savedURLColumns + ` FROM saved_urls WHERE id = $1;`
	return scanSavedURL(r.db.QueryRow(ctx, query, id))
}

// List retrieves rows matching the filter, newest first.
func (r *QueueRepoImpl) List(ctx context.Context, filter repository.QueueFilter) ([]*entity.SavedURL, error) {
	query := `SELECT ` + savedURLColumns + ` FROM saved_urls`
	var conds []string
	var args []any

	if filter.Category != "" {
		args = append(args, filter.Category)
		conds = append(conds, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.Priority != "" {
		args = append(args, string(filter.Priority))
		conds = append(conds, fmt.Sprintf("priority = $%d", len(args)))
	}
	if filter.Selected != nil {
		args = append(args, *filter.Selected)
		conds = append(conds, fmt.Sprintf("selected = $%d", len(args)))
	}
	if filter.Scraped != nil {
		args = append(args, *filter.Scraped)
		conds = append(conds, fmt.Sprintf("scraped = $%d", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSavedURLs(rows)
}

// FindByNormalized retrieves the live rows for the given normalized URLs.
func (r *QueueRepoImpl) FindByNormalized(ctx context.Context, normalized []string) ([]*entity.SavedURL, error) {
	if len(normalized) == 0 {
		return nil, nil
	}
	query := `SELECT ` + savedURLColumns + ` FROM saved_urls WHERE normalized_url = ANY($1);`
	rows, err := r.db.Query(ctx, query, normalized)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSavedURLs(rows)
}

// UpdateSelection sets the selected flag on an unscraped row.
func (r *QueueRepoImpl) UpdateSelection(ctx context.Context, id string, selected bool) error {
	query := `UPDATE saved_urls SET selected = $2 WHERE id = $1 AND scraped = FALSE;`
	tag, err := r.db.Exec(ctx, query, id, selected)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// Zero rows updated: the row is either gone or already scraped.
	var scraped bool
	err = r.db.QueryRow(ctx, `SELECT scraped FROM saved_urls WHERE id = $1;`, id).Scan(&scraped)
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	if err != nil {
		return err
	}
	if scraped {
		return repository.ErrRowScraped
	}
	return nil
}

// SelectAll marks every unscraped row selected.
func (r *QueueRepoImpl) SelectAll(ctx context.Context) (int64, error) {
	query := `UPDATE saved_urls SET selected = TRUE WHERE scraped = FALSE AND selected = FALSE;`
	tag, err := r.db.Exec(ctx, query)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// UnselectAll clears the selected flag on all rows.
func (r *QueueRepoImpl) UnselectAll(ctx context.Context) (int64, error) {
	query := `UPDATE saved_urls SET selected = FALSE WHERE selected = TRUE;`
	tag, err := r.db.Exec(ctx, query)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ListSelectedUnscraped returns the batch snapshot.
func (r *QueueRepoImpl) ListSelectedUnscraped(ctx context.Context) ([]*entity.SavedURL, error) {
	query := `SELECT ` + savedURLColumns + ` FROM saved_urls WHERE selected = TRUE AND scraped = FALSE ORDER BY created_at ASC;`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSavedURLs(rows)
}

// MarkScraped records a successful scrape on a row, clearing its selection.
func (r *QueueRepoImpl) MarkScraped(ctx context.Context, id, productID string, estimatedPrice *float64) error {
	query := `
		UPDATE saved_urls
		SET scraped = TRUE, selected = FALSE, linked_product_id = $2, estimated_price = $3, scraped_at = NOW()
		WHERE id = $1;
	`
	tag, err := r.db.Exec(ctx, query, id, productID, estimatedPrice)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Requeue resets a scraped row for another pass.
func (r *QueueRepoImpl) Requeue(ctx context.Context, id, category string, priority entity.Priority, notes string) (*entity.SavedURL, error) {
	query := `
		UPDATE saved_urls
		SET scraped = FALSE, selected = FALSE, category = $2, priority = $3, notes = $4,
		    linked_product_id = NULL, estimated_price = NULL, scraped_at = NULL
		WHERE id = $1 AND scraped = TRUE
		RETURNING ` + savedURLColumns + `;`
	return scanSavedURL(r.db.QueryRow(ctx, query, id, category, string(priority), notes))
}

// Delete removes a row unconditionally.
func (r *QueueRepoImpl) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM saved_urls WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// GroupCounts reads all stats groups in a single query.
func (r *QueueRepoImpl) GroupCounts(ctx context.Context) ([]entity.QueueGroupCount, error) {
	query := `
		SELECT category, priority, selected, scraped, COUNT(*)
		FROM saved_urls
		GROUP BY category, priority, selected, scraped;
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []entity.QueueGroupCount
	for rows.Next() {
		var c entity.QueueGroupCount
		var priority string
		if err := rows.Scan(&c.Category, &priority, &c.Selected, &c.Scraped, &c.Count); err != nil {
			return nil, err
		}
		c.Priority = entity.Priority(priority)
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

func scanSavedURL(row pgx.Row) (*entity.SavedURL, error) {
	var su entity.SavedURL
	var priority string
	err := row.Scan(
		&su.ID,
		&su.RawURL,
		&su.NormalizedURL,
		&su.Category,
		&priority,
		&su.Notes,
		&su.Selected,
		&su.Scraped,
		&su.EstimatedPrice,
		&su.LinkedProductID,
		&su.CreatedAt,
		&su.ScrapedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	su.Priority = entity.Priority(priority)
	return &su, nil
}

func collectSavedURLs(rows pgx.Rows) ([]*entity.SavedURL, error) {
	var out []*entity.SavedURL
	for rows.Next() {
		su, err := scanSavedURL(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, su)
	}
	return out, rows.Err()
}
