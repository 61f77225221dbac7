package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/kiffmarket/marketplace/internal/inventory/domain"
)

var ErrInvalidQuantity = errors.New("quantity must be positive")

// Ledger is the only mutator of product quantity and availability. It is
// called exactly once per order placement (Decrement) and once per
// cancellation (Restock).
type Ledger struct {
	log  *slog.Logger
	repo StockRepository
}

func NewLedger(log *slog.Logger, repo StockRepository) *Ledger {
	return &Ledger{log: log, repo: repo}
}

// Decrement subtracts quantity from the product's stock. The result is
// clamped at zero and the product flips to Sold Out when nothing remains;
// availability is never restored here.
func (l *Ledger) Decrement(ctx context.Context, productID string, quantity int) (domain.Stock, error) {
	if quantity < 1 {
		return domain.Stock{}, ErrInvalidQuantity
	}
	stock, err := l.repo.Decrement(ctx, productID, quantity)
	if err != nil {
		return domain.Stock{}, err
	}
	l.log.Info("stock decremented", "product_id", productID, "by", quantity, "remaining", stock.Quantity, "status", stock.Status)
	return stock, nil
}

// Restock adds quantity back and recomputes availability: Available when
// anything remains, Sold Out otherwise.
func (l *Ledger) Restock(ctx context.Context, productID string, quantity int) (domain.Stock, error) {
	if quantity < 1 {
		return domain.Stock{}, ErrInvalidQuantity
	}
	stock, err := l.repo.Restock(ctx, productID, quantity)
	if err != nil {
		return domain.Stock{}, err
	}
	l.log.Info("stock restored", "product_id", productID, "by", quantity, "remaining", stock.Quantity, "status", stock.Status)
	return stock, nil
}
