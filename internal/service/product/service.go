package product

import (
	"context"
	"strings"

	"buildmart/internal/domain"
	productrepo "buildmart/internal/repository/product"
)

type Service struct {
	repo productrepo.Repository
}

func New(repo productrepo.Repository) *Service {
	return &Service{repo: repo}
}

// List returns products, optionally only those of categoryKey.
func (s *Service) List(ctx context.Context, categoryKey string, limit, offset int) ([]domain.Product, error) {
	return s.repo.List(ctx, productrepo.ListFilter{
		CategoryKey: strings.TrimSpace(categoryKey),
		Limit:       limit,
		Offset:      offset,
	})
}

// Get looks a product up by id or key.
func (s *Service) Get(ctx context.Context, id string) (*domain.Product, error) {
	return s.repo.GetByID(ctx, strings.TrimSpace(id))
}
