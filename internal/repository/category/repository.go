package category

import (
	"context"

	"buildmart/internal/domain"
)

type Repository interface {
	List(ctx context.Context) ([]domain.Category, error)
	Upsert(ctx context.Context, c domain.Category) (*domain.Category, error)
}
