package category

import (
	"context"
	"errors"
	"strings"

	"buildmart/internal/domain"
	"buildmart/internal/repository/category"
)

type Service struct {
	repo category.Repository
}

func New(repo category.Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context) ([]domain.Category, error) {
	return s.repo.List(ctx)
}

func (s *Service) Upsert(ctx context.Context, c domain.Category) (*domain.Category, error) {
	c.Key = strings.TrimSpace(c.Key)
	c.Name = strings.TrimSpace(c.Name)
	if c.Key == "" || c.Name == "" {
		return nil, errors.New("category key and name required")
	}
	return s.repo.Upsert(ctx, c)
}
