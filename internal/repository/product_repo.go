package repository

import (
	"context"

	"github.com/user/scraper-service/internal/entity"
)

// ProductFilter narrows product listings.
type ProductFilter struct {
	Category string
	Limit    int
	Offset   int
}

// ProductRepository defines the interface for storing and reading scraped
// products. Consumers outside the orchestrator are read-only.
type ProductRepository interface {
	// Insert stores a newly scraped product.
	Insert(ctx context.Context, product *entity.Product) error
	// Get returns a product by id, or ErrNotFound.
	Get(ctx context.Context, id string) (*entity.Product, error)
	// List returns products matching the filter, newest first.
	List(ctx context.Context, filter ProductFilter) ([]*entity.Product, error)
	// Count returns the total number of stored products.
	Count(ctx context.Context) (int64, error)
}
