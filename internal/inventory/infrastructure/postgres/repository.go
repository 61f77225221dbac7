package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kiffmarket/marketplace/internal/inventory/domain"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		reference_number TEXT NOT NULL DEFAULT '',
		quantity INT NOT NULL DEFAULT 1,
		status TEXT NOT NULL DEFAULT 'Available',
		owner_id TEXT NOT NULL DEFAULT ''
	)`)
	return err
}

// Decrement runs as a single statement so two concurrent orders on the same
// product cannot both read the old quantity. The clamp and the Sold Out flip
// happen inside the same write.
func (r *Repository) Decrement(ctx context.Context, productID string, quantity int) (domain.Stock, error) {
	var s domain.Stock
	err := r.pool.QueryRow(ctx, `
		UPDATE products
		SET quantity = GREATEST(quantity - $2, 0),
		    status = CASE WHEN quantity - $2 <= 0 THEN 'Sold Out' ELSE status END
		WHERE id = $1
		RETURNING id, quantity, status
	`, productID, quantity).Scan(&s.ProductID, &s.Quantity, &s.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Stock{}, domain.ErrProductNotFound
	}
	if err != nil {
		return domain.Stock{}, err
	}
	return s, nil
}

func (r *Repository) Restock(ctx context.Context, productID string, quantity int) (domain.Stock, error) {
	var s domain.Stock
	err := r.pool.QueryRow(ctx, `
		UPDATE products
		SET quantity = quantity + $2,
		    status = CASE WHEN quantity + $2 > 0 THEN 'Available' ELSE 'Sold Out' END
		WHERE id = $1
		RETURNING id, quantity, status
	`, productID, quantity).Scan(&s.ProductID, &s.Quantity, &s.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Stock{}, domain.ErrProductNotFound
	}
	if err != nil {
		return domain.Stock{}, err
	}
	return s, nil
}
