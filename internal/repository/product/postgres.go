package product

import (
	"context"
	"errors"
	"fmt"

	"buildmart/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &postgresRepo{pool: pool, logger: logger}
}

const productColumns = `id::text, key, sku, name, COALESCE(description, ''), category_key, price_cents, discount_price_cents, currency, colors, variants, images, created_at`

func scanProduct(row pgx.Row) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(
		&p.ID,
		&p.Key,
		&p.SKU,
		&p.Name,
		&p.Description,
		&p.CategoryKey,
		&p.PriceCents,
		&p.DiscountPriceCents,
		&p.Currency,
		&p.Colors,
		&p.Variants,
		&p.Images,
		&p.CreatedAt,
	)
	return p, err
}

func (r *postgresRepo) List(ctx context.Context, filter ListFilter) ([]domain.Product, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	q := `
SELECT ` + productColumns + `
FROM products
WHERE ($1 = '' OR category_key = $1)
ORDER BY name ASC, id ASC
LIMIT $2 OFFSET $3
`
	rows, err := r.pool.Query(ctx, q, filter.CategoryKey, limit, filter.Offset)
	if err != nil {
		r.logger.Error("product repo: list failed", zap.String("category", filter.CategoryKey), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	result := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	r.logger.Debug("product repo: list", zap.String("category", filter.CategoryKey), zap.Int("count", len(result)))
	return result, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	q := `SELECT ` + productColumns + ` FROM products WHERE id::text = $1 OR key = $1 LIMIT 1`
	p, err := scanProduct(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error("product repo: get failed", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return &p, nil
}

func (r *postgresRepo) Upsert(ctx context.Context, product domain.Product) (*domain.Product, error) {
	const q = `
INSERT INTO products (id, key, sku, name, description, category_key, price_cents, discount_price_cents, currency, colors, variants, images)
VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9,
        COALESCE($10::jsonb, '[]'::jsonb), COALESCE($11::jsonb, '[]'::jsonb), COALESCE($12::jsonb, '[]'::jsonb))
ON CONFLICT (key) DO UPDATE SET
    sku = EXCLUDED.sku,
    name = EXCLUDED.name,
    description = EXCLUDED.description,
    category_key = EXCLUDED.category_key,
    price_cents = EXCLUDED.price_cents,
    discount_price_cents = EXCLUDED.discount_price_cents,
    currency = EXCLUDED.currency,
    colors = EXCLUDED.colors,
    variants = EXCLUDED.variants,
    images = EXCLUDED.images
RETURNING id::text, created_at
`
	res := product
	err := r.pool.QueryRow(ctx, q,
		product.ID,
		product.Key,
		product.SKU,
		product.Name,
		product.Description,
		product.CategoryKey,
		product.PriceCents,
		product.DiscountPriceCents,
		product.Currency,
		product.Colors,
		product.Variants,
		product.Images,
	).Scan(&res.ID, &res.CreatedAt)
	if err != nil {
		r.logger.Error("product repo: upsert failed", zap.String("key", product.Key), zap.Error(err))
		return nil, err
	}
	if product.ID != "" && res.ID != product.ID {
		return nil, fmt.Errorf("product repo: id mismatch for key=%s existing_id=%s import_id=%s", product.Key, res.ID, product.ID)
	}
	r.logger.Debug("product repo: upserted", zap.String("key", res.Key), zap.String("id", res.ID))
	return &res, nil
}
