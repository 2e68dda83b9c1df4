package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/user/scraper-service/internal/entity"
	"github.com/user/scraper-service/internal/repository"
)

const productColumns = `id, source_url, name, price, original_price, description, category, source, rating, tags, image_url, affiliate_url, created_at`

// ProductRepoImpl provides a concrete implementation for the
// ProductRepository interface using PostgreSQL.
type ProductRepoImpl struct {
	db *pgxpool.Pool
}

// NewProductRepo creates a new instance of ProductRepoImpl.
func NewProductRepo(db *pgxpool.Pool) *ProductRepoImpl {
	return &ProductRepoImpl{db: db}
}

// Insert stores a newly scraped product.
func (r *ProductRepoImpl) Insert(ctx context.Context, product *entity.Product) error {
	tags := product.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO products (id, source_url, name, price, original_price, description, category, source, rating, tags, image_url, affiliate_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13);
	`
	_, err = r.db.Exec(ctx, query,
		product.ID,
		product.SourceURL,
		product.Name,
		product.Price,
		product.OriginalPrice,
		product.Description,
		product.Category,
		product.Source,
		product.Rating,
		tagsJSON,
		product.ImageURL,
		product.AffiliateURL,
		product.CreatedAt,
	)
	return err
}

// Get retrieves a product by id.
func (r *ProductRepoImpl) Get(ctx context.Context, id string) (*entity.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1;`
	return scanProduct(r.db.QueryRow(ctx, query, id))
}

// List retrieves products matching the filter, newest first.
func (r *ProductRepoImpl) List(ctx context.Context, filter repository.ProductFilter) ([]*entity.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products`
	var conds []string
	var args []any

	if filter.Category != "" {
		args = append(args, filter.Category)
		conds = append(conds, fmt.Sprintf("category = $%d", len(args)))
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

	var out []*entity.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Count returns the total number of stored products.
func (r *ProductRepoImpl) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM products;`).Scan(&n)
	return n, err
}

func scanProduct(row pgx.Row) (*entity.Product, error) {
	var p entity.Product
	var tagsJSON []byte
	err := row.Scan(
		&p.ID,
		&p.SourceURL,
		&p.Name,
		&p.Price,
		&p.OriginalPrice,
		&p.Description,
		&p.Category,
		&p.Source,
		&p.Rating,
		&tagsJSON,
		&p.ImageURL,
		&p.AffiliateURL,
		&p.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(tagsJSON, &p.Tags); err != nil {
		return nil, err
	}
	return &p, nil
}
