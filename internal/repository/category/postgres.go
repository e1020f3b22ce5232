package category

import (
	"context"

	"buildmart/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) List(ctx context.Context) ([]domain.Category, error) {
	const q = `
SELECT id::text, key, name, slug, COALESCE(description, ''), created_at
FROM categories
ORDER BY name ASC
`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Category{}
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Key, &c.Name, &c.Slug, &c.Description, &c.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *postgresRepo) Upsert(ctx context.Context, c domain.Category) (*domain.Category, error) {
	const q = `
INSERT INTO categories (key, name, slug, description)
VALUES ($1, $2, COALESCE(NULLIF($3, ''), $1), NULLIF($4, ''))
ON CONFLICT (key) DO UPDATE
SET name = EXCLUDED.name,
    slug = COALESCE(NULLIF($3, ''), categories.slug),
    description = COALESCE(EXCLUDED.description, categories.description)
RETURNING id::text, slug, COALESCE(description, ''), created_at
`
	out := domain.Category{Key: c.Key, Name: c.Name}
	err := r.pool.QueryRow(ctx, q, c.Key, c.Name, c.Slug, c.Description).
		Scan(&out.ID, &out.Slug, &out.Description, &out.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
