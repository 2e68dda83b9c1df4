package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS saved_urls (
	id                TEXT PRIMARY KEY,
	raw_url           TEXT NOT NULL,
	normalized_url    TEXT NOT NULL UNIQUE,
	category          TEXT NOT NULL DEFAULT 'general',
	priority          TEXT NOT NULL DEFAULT 'medium',
	notes             TEXT NOT NULL DEFAULT '',
	selected          BOOLEAN NOT NULL DEFAULT FALSE,
	scraped           BOOLEAN NOT NULL DEFAULT FALSE,
	estimated_price   DOUBLE PRECISION,
	linked_product_id TEXT,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	scraped_at        TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS saved_urls_selected_scraped_idx ON saved_urls (selected, scraped);
CREATE INDEX IF NOT EXISTS saved_urls_category_idx ON saved_urls (category);

CREATE TABLE IF NOT EXISTS products (
	id             TEXT PRIMARY KEY,
	source_url     TEXT NOT NULL,
	name           TEXT NOT NULL,
	price          DOUBLE PRECISION NOT NULL,
	original_price DOUBLE PRECISION,
	description    TEXT NOT NULL DEFAULT '',
	category       TEXT NOT NULL DEFAULT 'general',
	source         TEXT NOT NULL DEFAULT '',
	rating         DOUBLE PRECISION,
	tags           JSONB NOT NULL DEFAULT '[]',
	image_url      TEXT NOT NULL DEFAULT '',
	affiliate_url  TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS products_category_idx ON products (category);
`

// EnsureSchema creates the tables and indexes if they do not exist yet.
// Called once at startup.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}
