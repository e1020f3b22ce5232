package cart

import (
	"context"
	"errors"
	"strings"

	"buildmart/internal/domain"
	"go.uber.org/zap"
)

var (
	ErrProductRequired  = errors.New("productId required")
	ErrQuantityNegative = errors.New("quantity must be positive")
	ErrProductNotFound  = errors.New("product not found")
	ErrUnknownColor     = errors.New("color not offered for product")
	ErrVariantNotFound  = errors.New("variant not found")
	ErrKeyRequired      = errors.New("identity key required")
)

// IsValidation reports whether err is caused by bad caller input.
func IsValidation(err error) bool {
	for _, target := range []error{ErrProductRequired, ErrQuantityNegative, ErrProductNotFound, ErrUnknownColor, ErrVariantNotFound, ErrKeyRequired} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Service builds facades and resolves cart requests against the catalog.
type Service struct {
	remote      RemoteLines
	productRepo productRepo
	logger      *zap.Logger
}

type productRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}

func New(remote RemoteLines, productRepo productRepo, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{remote: remote, productRepo: productRepo, logger: logger}
}

// AddInput is the add-to-cart request of a storefront client.
type AddInput struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Color     string `json:"color,omitempty"`
	VariantID string `json:"variantId,omitempty"`
}

// NewFacade creates the cart facade of one session.
func (s *Service) NewFacade(storage Storage, identity Identity, notifier Notifier) *Facade {
	return NewFacade(storage, s.remote, identity, notifier, s.logger)
}

// Add validates in against the catalog and adds it through f.
// A zero quantity means one unit.
func (s *Service) Add(ctx context.Context, f *Facade, in AddInput) error {
	productID := strings.TrimSpace(in.ProductID)
	if productID == "" {
		return ErrProductRequired
	}
	if in.Quantity < 0 {
		return ErrQuantityNegative
	}
	quantity := in.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if s.productRepo == nil {
		return errors.New("product repository unavailable")
	}

	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrProductNotFound
		}
		return err
	}

	color := strings.TrimSpace(in.Color)
	if color != "" && len(product.Colors) > 0 && !product.HasColor(color) {
		return ErrUnknownColor
	}

	var variant *domain.Variant
	if variantID := strings.TrimSpace(in.VariantID); variantID != "" {
		v, ok := product.FindVariant(variantID)
		if !ok {
			return ErrVariantNotFound
		}
		variant = &v
	}

	return f.AddToCart(ctx, *product, quantity, color, variant)
}

// Update sets the quantity of the line identified by key.
func (s *Service) Update(ctx context.Context, f *Facade, key string, quantity int) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrKeyRequired
	}
	return f.UpdateQuantity(ctx, key, quantity)
}

// Remove deletes the line identified by key.
func (s *Service) Remove(ctx context.Context, f *Facade, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrKeyRequired
	}
	return f.RemoveFromCart(ctx, key)
}
