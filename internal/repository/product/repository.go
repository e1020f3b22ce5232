package product

import (
	"context"

	"buildmart/internal/domain"
)

// ListFilter narrows List; zero values mean no filter.
type ListFilter struct {
	CategoryKey string
	Limit       int
	Offset      int
}

type Repository interface {
	List(ctx context.Context, filter ListFilter) ([]domain.Product, error)
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}
