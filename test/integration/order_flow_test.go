package integration

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	invdomain "github.com/kiffmarket/marketplace/internal/inventory/domain"
	invpg "github.com/kiffmarket/marketplace/internal/inventory/infrastructure/postgres"
	"github.com/kiffmarket/marketplace/internal/order/application"
	"github.com/kiffmarket/marketplace/internal/order/domain"
	orderpg "github.com/kiffmarket/marketplace/internal/order/infrastructure/postgres"
)

func TestOrderRepository_AgainstPostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("container test")
	}

	ctx := context.Background()
	env, err := SetupPostgres(ctx)
	require.NoError(t, err)
	defer env.Teardown(ctx)

	pool, err := pgxpool.New(ctx, env.PGURL)
	require.NoError(t, err)
	defer pool.Close()

	require.NoError(t, orderpg.EnsureSchema(ctx, pool))
	require.NoError(t, invpg.EnsureSchema(ctx, pool))

	_, err = pool.Exec(ctx, `INSERT INTO users (id, name, avatar, shipping_street, shipping_phone)
		VALUES ('buyer-1', 'Amine', 'a.png', '12 Rue Atlas', '0600000001'),
		       ('seller-1', 'Sara', 's.png', '', '')`)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `INSERT INTO products (id, title, reference_number, quantity, status, owner_id)
		VALUES ('prod-1', 'Vintage lamp', 'REF-9', 3, 'Available', 'seller-1')`)
	require.NoError(t, err)

	log := slog.New(slog.DiscardHandler)
	repo := orderpg.NewRepository(log, pool)

	order, err := domain.NewOrder("buyer-1", "seller-1", "prod-1",
		domain.ShippingAddress{City: "Casablanca", Street: "12 Rue Atlas", Phone: "0600000001", RecipientName: "Amine"},
		"card", 15000, 2, "")
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, order))

	t.Run("get expands related entities", func(t *testing.T) {
		detail, err := repo.Get(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, "Amine", detail.Buyer.Name)
		assert.Equal(t, "12 Rue Atlas", detail.Buyer.ShippingStreet)
		assert.Equal(t, "Sara", detail.Seller.Name)
		assert.Equal(t, "REF-9", detail.Product.ReferenceNumber)
		assert.Equal(t, domain.StatusInProgress, detail.Status)
	})

	t.Run("attach delivery writes outbox event in the same transaction", func(t *testing.T) {
		delivery := json.RawMessage(`{"tracking":"DLV-42"}`)
		payload, _ := json.Marshal(map[string]string{"orderId": order.ID})
		require.NoError(t, repo.AttachDelivery(ctx, order.ID, delivery, "order.placed", payload, "00-abc-def-01"))

		detail, err := repo.Get(ctx, order.ID)
		require.NoError(t, err)
		assert.JSONEq(t, string(delivery), string(detail.Delivery))

		var count int
		var eventType, traceparent string
		err = pool.QueryRow(ctx, `SELECT count(*), max(type), max(traceparent) FROM outbox WHERE aggregate_id = $1`, order.ID).
			Scan(&count, &eventType, &traceparent)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
		assert.Equal(t, "order.placed", eventType)
		assert.Equal(t, "00-abc-def-01", traceparent)
	})

	t.Run("update status on a missing order reports not found", func(t *testing.T) {
		err := repo.UpdateStatus(ctx, "no-such-order", domain.StatusShipped, "order.status_changed", []byte(`{}`), "")
		assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	})

	t.Run("list filters by role and orders newest first", func(t *testing.T) {
		second, err := domain.NewOrder("buyer-1", "seller-1", "prod-1",
			domain.ShippingAddress{City: "Rabat"}, "card", 5000, 1, "")
		require.NoError(t, err)
		second.CreatedAt = second.CreatedAt.Add(time.Second)
		require.NoError(t, repo.Create(ctx, second))

		bought, err := repo.List(ctx, application.ListFilter{Role: application.RoleBought, UserID: "buyer-1"})
		require.NoError(t, err)
		require.Len(t, bought, 2)
		assert.Equal(t, second.ID, bought[0].ID)

		sold, err := repo.List(ctx, application.ListFilter{Role: application.RoleSold, UserID: "buyer-1"})
		require.NoError(t, err)
		assert.Empty(t, sold)
	})

	t.Run("delete removes the row and its pending events", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, order.ID))
		_, err := repo.Get(ctx, order.ID)
		assert.ErrorIs(t, err, domain.ErrOrderNotFound)

		var pending int
		err = pool.QueryRow(ctx, `SELECT count(*) FROM outbox WHERE aggregate_id = $1 AND status = 'pending'`, order.ID).Scan(&pending)
		require.NoError(t, err)
		assert.Zero(t, pending, "deleting an order must take its undispatched events with it")
	})
}

func TestStockRepository_AgainstPostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("container test")
	}

	ctx := context.Background()
	env, err := SetupPostgres(ctx)
	require.NoError(t, err)
	defer env.Teardown(ctx)

	pool, err := pgxpool.New(ctx, env.PGURL)
	require.NoError(t, err)
	defer pool.Close()

	require.NoError(t, invpg.EnsureSchema(ctx, pool))
	_, err = pool.Exec(ctx, `INSERT INTO products (id, quantity, status) VALUES ('prod-1', 2, 'Available')`)
	require.NoError(t, err)

	repo := invpg.NewRepository(slog.New(slog.DiscardHandler), pool)

	stock, err := repo.Decrement(ctx, "prod-1", 3)
	require.NoError(t, err)
	assert.Equal(t, 0, stock.Quantity, "clamped at zero even when oversold")
	assert.Equal(t, "Sold Out", string(stock.Status))

	stock, err = repo.Restock(ctx, "prod-1", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, stock.Quantity)
	assert.Equal(t, "Available", string(stock.Status))

	_, err = repo.Decrement(ctx, "ghost", 1)
	assert.ErrorIs(t, err, invdomain.ErrProductNotFound)
}
