package application

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiffmarket/marketplace/internal/inventory/domain"
)

type fakeStockRepo struct {
	quantity int
	status   domain.ProductStatus
	missing  bool
}

func (r *fakeStockRepo) Decrement(_ context.Context, _ string, qty int) (domain.Stock, error) {
	if r.missing {
		return domain.Stock{}, domain.ErrProductNotFound
	}
	r.quantity -= qty
	if r.quantity <= 0 {
		r.quantity = 0
		r.status = domain.StatusSoldOut
	}
	return domain.Stock{Quantity: r.quantity, Status: r.status}, nil
}

func (r *fakeStockRepo) Restock(_ context.Context, _ string, qty int) (domain.Stock, error) {
	if r.missing {
		return domain.Stock{}, domain.ErrProductNotFound
	}
	r.quantity += qty
	if r.quantity > 0 {
		r.status = domain.StatusAvailable
	}
	return domain.Stock{Quantity: r.quantity, Status: r.status}, nil
}

func newLedger(repo *fakeStockRepo) *Ledger {
	return NewLedger(slog.New(slog.DiscardHandler), repo)
}

func TestDecrement_RejectsNonPositiveQuantity(t *testing.T) {
	l := newLedger(&fakeStockRepo{quantity: 5, status: domain.StatusAvailable})

	_, err := l.Decrement(context.Background(), "p1", 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = l.Restock(context.Background(), "p1", -1)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestDecrement_FlipsToSoldOutAtZero(t *testing.T) {
	repo := &fakeStockRepo{quantity: 2, status: domain.StatusAvailable}
	l := newLedger(repo)

	stock, err := l.Decrement(context.Background(), "p1", 2)
	require.NoError(t, err)
	assert.Equal(t, 0, stock.Quantity)
	assert.Equal(t, domain.StatusSoldOut, stock.Status)
}

func TestRestock_RestoresAvailability(t *testing.T) {
	repo := &fakeStockRepo{quantity: 0, status: domain.StatusSoldOut}
	l := newLedger(repo)

	stock, err := l.Restock(context.Background(), "p1", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, stock.Quantity)
	assert.Equal(t, domain.StatusAvailable, stock.Status)
}

func TestLedger_PropagatesMissingProduct(t *testing.T) {
	l := newLedger(&fakeStockRepo{missing: true})

	_, err := l.Decrement(context.Background(), "gone", 1)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}
