package domain

import "errors"

var ErrProductNotFound = errors.New("product not found")

type ProductStatus string

const (
	StatusAvailable ProductStatus = "Available"
	StatusSoldOut   ProductStatus = "Sold Out"
)

// Stock is the inventory-relevant slice of a product. Quantity never goes
// negative; Sold Out is set when it reaches zero and only an explicit restock
// brings the product back to Available.
type Stock struct {
	ProductID string        `json:"productId"`
	Quantity  int           `json:"quantity"`
	Status    ProductStatus `json:"status"`
}
