package cart

import (
	"context"
	"time"

	"buildmart/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type postgresRepo struct {
	pool    *pgxpool.Pool
	channel string
	logger  *zap.Logger
}

func NewPostgres(pool *pgxpool.Pool, channel string, logger *zap.Logger) Repository {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &postgresRepo{pool: pool, channel: channel, logger: logger}
}

func (r *postgresRepo) AddLine(ctx context.Context, userID string, line domain.CartLine) error {
	if line.Quantity <= 0 {
		return domain.ErrInvalidQuantity
	}
	addedAt := line.AddedAt
	if addedAt.IsZero() {
		addedAt = time.Now().UTC()
	}

	return r.withTx(ctx, userID, func(tx pgx.Tx) (bool, error) {
		_, err := tx.Exec(ctx, `
INSERT INTO cart_lines (user_id, identity_key, product_id, quantity, color, variant, snapshot, added_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (user_id, identity_key) DO UPDATE
SET quantity = cart_lines.quantity + EXCLUDED.quantity,
    updated_at = now()
`, userID, line.IdentityKey, line.ProductID, line.Quantity, line.Color, line.Variant, line.Product, addedAt)
		if err != nil {
			r.logger.Warn("cart repo: add line failed", zap.String("user_id", userID), zap.String("identity_key", line.IdentityKey), zap.Error(err))
			return false, err
		}
		return true, nil
	})
}

func (r *postgresRepo) RemoveLine(ctx context.Context, userID, identityKey string) error {
	return r.withTx(ctx, userID, func(tx pgx.Tx) (bool, error) {
		cmd, err := tx.Exec(ctx, `
DELETE FROM cart_lines
WHERE user_id = $1 AND identity_key = $2
`, userID, identityKey)
		if err != nil {
			return false, err
		}
		return cmd.RowsAffected() > 0, nil
	})
}

func (r *postgresRepo) SetQuantity(ctx context.Context, userID, identityKey string, quantity int) error {
	if quantity <= 0 {
		return r.RemoveLine(ctx, userID, identityKey)
	}
	return r.withTx(ctx, userID, func(tx pgx.Tx) (bool, error) {
		cmd, err := tx.Exec(ctx, `
UPDATE cart_lines
SET quantity = $3, updated_at = now()
WHERE user_id = $1 AND identity_key = $2
`, userID, identityKey, quantity)
		if err != nil {
			return false, err
		}
		if cmd.RowsAffected() == 0 {
			return false, domain.ErrNotFound
		}
		return true, nil
	})
}

func (r *postgresRepo) Clear(ctx context.Context, userID string) error {
	return r.withTx(ctx, userID, func(tx pgx.Tx) (bool, error) {
		cmd, err := tx.Exec(ctx, `DELETE FROM cart_lines WHERE user_id = $1`, userID)
		if err != nil {
			return false, err
		}
		r.logger.Debug("cart repo: cleared", zap.String("user_id", userID), zap.Int64("lines", cmd.RowsAffected()))
		return cmd.RowsAffected() > 0, nil
	})
}

func (r *postgresRepo) List(ctx context.Context, userID string) ([]domain.CartLine, error) {
	const q = `
SELECT identity_key, product_id, quantity, color, variant, snapshot, added_at
FROM cart_lines
WHERE user_id = $1
ORDER BY added_at ASC, identity_key ASC
`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := []domain.CartLine{}
	for rows.Next() {
		var line domain.CartLine
		if err := rows.Scan(
			&line.IdentityKey,
			&line.ProductID,
			&line.Quantity,
			&line.Color,
			&line.Variant,
			&line.Product,
			&line.AddedAt,
		); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// withTx runs fn and, when it reports a change, notifies listeners of the
// user's cart before committing. Postgres delivers the notification on commit.
func (r *postgresRepo) withTx(ctx context.Context, userID string, fn func(tx pgx.Tx) (bool, error)) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	changed, err := fn(tx)
	if err != nil {
		return err
	}
	if changed {
		if _, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`, r.channel, userID); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
