package customer

import (
	"context"
	"errors"
	"strings"

	"buildmart/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgres returns a Repository backed by Postgres.
func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &postgresRepo{pool: pool, logger: logger}
}

const customerColumns = `id::text, email, password_hash, first_name, last_name, phone, created_at`

func (r *postgresRepo) Create(ctx context.Context, c domain.Customer) (*domain.Customer, error) {
	q := `
INSERT INTO customers (email, password_hash, first_name, last_name, phone)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + customerColumns
	return r.scanCustomer(r.pool.QueryRow(ctx, q,
		strings.ToLower(c.Email),
		c.PasswordHash,
		c.FirstName,
		c.LastName,
		c.Phone,
	))
}

func (r *postgresRepo) GetByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	q := `SELECT ` + customerColumns + ` FROM customers WHERE lower(email) = lower($1) LIMIT 1`
	return r.scanCustomer(r.pool.QueryRow(ctx, q, email))
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	q := `SELECT ` + customerColumns + ` FROM customers WHERE id::text = $1 LIMIT 1`
	return r.scanCustomer(r.pool.QueryRow(ctx, q, id))
}

func (r *postgresRepo) scanCustomer(row pgx.Row) (*domain.Customer, error) {
	var c domain.Customer
	err := row.Scan(&c.ID, &c.Email, &c.PasswordHash, &c.FirstName, &c.LastName, &c.Phone, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrAlreadyExists
		}
		r.logger.Error("customer repo: scan failed", zap.Error(err))
		return nil, err
	}
	return &c, nil
}
