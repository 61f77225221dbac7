package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kiffmarket/marketplace/internal/order/application"
	"github.com/kiffmarket/marketplace/internal/order/domain"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		avatar TEXT NOT NULL DEFAULT '',
		shipping_street TEXT NOT NULL DEFAULT '',
		shipping_phone TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		buyer_id TEXT NOT NULL,
		seller_id TEXT NOT NULL,
		product_id TEXT NOT NULL,
		ship_city TEXT NOT NULL DEFAULT '',
		ship_street TEXT NOT NULL DEFAULT '',
		ship_phone TEXT NOT NULL DEFAULT '',
		ship_name TEXT NOT NULL DEFAULT '',
		payment_method TEXT NOT NULL DEFAULT '',
		total_cents BIGINT NOT NULL,
		quantity INT NOT NULL,
		payment_intent_id TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		delivery JSONB,
		created_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders (created_at DESC);
	CREATE TABLE IF NOT EXISTS outbox (
		id BIGSERIAL PRIMARY KEY,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		type TEXT NOT NULL,
		payload JSONB NOT NULL,
		traceparent TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		relay_id TEXT,
		lease_until TIMESTAMPTZ,
		retry_count INT NOT NULL DEFAULT 0,
		last_error TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	`)
	return err
}

func (r *Repository) Create(ctx context.Context, o domain.Order) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO orders
		(id, buyer_id, seller_id, product_id, ship_city, ship_street, ship_phone, ship_name,
		 payment_method, total_cents, quantity, payment_intent_id, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		o.ID, o.BuyerID, o.SellerID, o.ProductID,
		o.ShippingAddress.City, o.ShippingAddress.Street, o.ShippingAddress.Phone, o.ShippingAddress.RecipientName,
		o.PaymentMethod, o.TotalCents, o.Quantity, o.PaymentIntentID, o.Status, o.CreatedAt)
	return err
}

const detailColumns = `
	o.id, o.buyer_id, o.seller_id, o.product_id,
	o.ship_city, o.ship_street, o.ship_phone, o.ship_name,
	o.payment_method, o.total_cents, o.quantity, o.payment_intent_id,
	o.status, o.delivery, o.created_at,
	COALESCE(b.name, ''), COALESCE(b.avatar, ''), COALESCE(b.shipping_street, ''), COALESCE(b.shipping_phone, ''),
	COALESCE(s.name, ''), COALESCE(s.avatar, ''),
	COALESCE(p.title, ''), COALESCE(p.reference_number, '')`

const detailJoins = `
	FROM orders o
	LEFT JOIN users b ON b.id = o.buyer_id
	LEFT JOIN users s ON s.id = o.seller_id
	LEFT JOIN products p ON p.id = o.product_id`

func scanDetail(row pgx.Row) (domain.OrderDetail, error) {
	var d domain.OrderDetail
	var delivery []byte
	err := row.Scan(
		&d.ID, &d.BuyerID, &d.SellerID, &d.ProductID,
		&d.ShippingAddress.City, &d.ShippingAddress.Street, &d.ShippingAddress.Phone, &d.ShippingAddress.RecipientName,
		&d.PaymentMethod, &d.TotalCents, &d.Quantity, &d.PaymentIntentID,
		&d.Status, &delivery, &d.CreatedAt,
		&d.Buyer.Name, &d.Buyer.Avatar, &d.Buyer.ShippingStreet, &d.Buyer.ShippingPhone,
		&d.Seller.Name, &d.Seller.Avatar,
		&d.Product.Title, &d.Product.ReferenceNumber,
	)
	if err != nil {
		return domain.OrderDetail{}, err
	}
	if len(delivery) > 0 {
		d.Delivery = json.RawMessage(delivery)
	}
	d.Buyer.ID = d.BuyerID
	d.Seller.ID = d.SellerID
	d.Product.ID = d.ProductID
	return d, nil
}

func (r *Repository) Get(ctx context.Context, id string) (domain.OrderDetail, error) {
	row := r.pool.QueryRow(ctx, `SELECT`+detailColumns+detailJoins+` WHERE o.id = $1`, id)
	d, err := scanDetail(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.OrderDetail{}, domain.ErrOrderNotFound
	}
	return d, err
}

func (r *Repository) List(ctx context.Context, f application.ListFilter) ([]domain.OrderDetail, error) {
	var where []string
	var args []any
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("o.status = $%d", len(args)))
	}
	switch f.Role {
	case application.RoleBought:
		args = append(args, f.UserID)
		where = append(where, fmt.Sprintf("o.buyer_id = $%d", len(args)))
	case application.RoleSold:
		args = append(args, f.UserID)
		where = append(where, fmt.Sprintf("o.seller_id = $%d", len(args)))
	}

	q := `SELECT` + detailColumns + detailJoins
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY o.created_at DESC"

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.OrderDetail
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *Repository) AttachDelivery(ctx context.Context, id string, delivery json.RawMessage, eventType string, payload []byte, traceparent string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	ct, err := tx.Exec(ctx, `UPDATE orders SET delivery = $2 WHERE id = $1`, id, []byte(delivery))
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}

	_, err = tx.Exec(ctx, `INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, traceparent, status)
		VALUES ($1,$2,$3,$4,$5,'pending')`,
		"order", id, eventType, payload, traceparent)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repository) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus, eventType string, payload []byte, traceparent string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	ct, err := tx.Exec(ctx, `UPDATE orders SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}

	_, err = tx.Exec(ctx, `INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, traceparent, status)
		VALUES ($1,$2,$3,$4,$5,'pending')`,
		"order", id, eventType, payload, traceparent)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Delete removes the order together with any lifecycle events it queued
// that the relay has not picked up yet. An order that is compensated away
// must not announce itself on the bus afterwards.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM outbox
		WHERE aggregate_type = 'order' AND aggregate_id = $1 AND status = 'pending'`, id); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
