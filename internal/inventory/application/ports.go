package application

import (
	"context"

	"github.com/kiffmarket/marketplace/internal/inventory/domain"
)

type StockRepository interface {
	// Decrement applies the quantity change and status recompute in a single
	// atomic statement so that concurrent orders never lose updates.
	Decrement(ctx context.Context, productID string, quantity int) (domain.Stock, error)
	Restock(ctx context.Context, productID string, quantity int) (domain.Stock, error)
}
