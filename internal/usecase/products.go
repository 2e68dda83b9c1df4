package usecase

import (
	"context"

	"github.com/user/scraper-service/internal/entity"
	"github.com/user/scraper-service/internal/repository"
)

// ProductReader defines the read-only interface over scraped products,
// used by downstream consumers like content generation and analytics.
type ProductReader interface {
	List(ctx context.Context, filter repository.ProductFilter) ([]*entity.Product, error)
	Get(ctx context.Context, id string) (*entity.Product, error)
}

type productReader struct {
	productRepo repository.ProductRepository
}

// NewProductReader creates the product read use case.
func NewProductReader(productRepo repository.ProductRepository) ProductReader {
	return &productReader{productRepo: productRepo}
}

func (p *productReader) List(ctx context.Context, filter repository.ProductFilter) ([]*entity.Product, error) {
	return p.productRepo.List(ctx, filter)
}

func (p *productReader) Get(ctx context.Context, id string) (*entity.Product, error) {
	return p.productRepo.Get(ctx, id)
}
