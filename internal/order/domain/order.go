package domain

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	StatusInProgress OrderStatus = "In Progress"
	StatusShipped    OrderStatus = "Shipped"
	StatusDelivered  OrderStatus = "Delivered"
	StatusCancelled  OrderStatus = "Cancelled"
	StatusCompleted  OrderStatus = "Completed"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid status transition")
)

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusInProgress, StatusShipped, StatusDelivered, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// CanTransition reports whether the status may move to the given one.
// In Progress can move to Shipped, Cancelled or Completed; Shipped can move
// to Delivered. Delivered, Cancelled and Completed are terminal.
func (s OrderStatus) CanTransition(to OrderStatus) bool {
	switch s {
	case StatusInProgress:
		return to == StatusShipped || to == StatusCancelled || to == StatusCompleted
	case StatusShipped:
		return to == StatusDelivered
	}
	return false
}

type ShippingAddress struct {
	City          string `json:"city"`
	Street        string `json:"street"`
	Phone         string `json:"phone"`
	RecipientName string `json:"name"`
}

type Order struct {
	ID              string          `json:"id"`
	BuyerID         string          `json:"buyer"`
	SellerID        string          `json:"seller"`
	ProductID       string          `json:"product"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string          `json:"paymentMethod,omitempty"`
	TotalCents      int64           `json:"totalPrice"`
	Quantity        int             `json:"quantity"`
	PaymentIntentID string          `json:"paymentIntentId,omitempty"`
	Status          OrderStatus     `json:"status"`
	// Delivery is the carrier's payload, stored exactly as returned. Present
	// only once the order survived the full creation sequence.
	Delivery  json.RawMessage `json:"delivery,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

func NewOrder(buyerID, sellerID, productID string, addr ShippingAddress, paymentMethod string, totalCents int64, quantity int, paymentIntentID string) (Order, error) {
	if buyerID == "" || sellerID == "" || productID == "" {
		return Order{}, errors.New("buyer, seller and product are required")
	}
	if buyerID == sellerID {
		return Order{}, errors.New("buyer and seller must differ")
	}
	if quantity < 1 {
		return Order{}, errors.New("quantity must be at least 1")
	}
	if totalCents < 0 {
		return Order{}, errors.New("total price must not be negative")
	}
	return Order{
		ID:              uuid.NewString(),
		BuyerID:         buyerID,
		SellerID:        sellerID,
		ProductID:       productID,
		ShippingAddress: addr,
		PaymentMethod:   paymentMethod,
		TotalCents:      totalCents,
		Quantity:        quantity,
		PaymentIntentID: paymentIntentID,
		Status:          StatusInProgress,
		CreatedAt:       time.Now().UTC(),
	}, nil
}

// User is the slice of a profile the order flow needs: display identity plus
// the stored shipping details used to fill the carrier request.
type User struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Avatar         string `json:"avatar,omitempty"`
	ShippingStreet string `json:"shippingStreet,omitempty"`
	ShippingPhone  string `json:"shippingPhone,omitempty"`
}

// Product is the catalog subset referenced by orders.
type Product struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	ReferenceNumber string `json:"referenceNumber,omitempty"`
}

// OrderDetail is an order expanded with its related entities, the shape
// returned by every read path.
type OrderDetail struct {
	Order
	Buyer   User    `json:"buyerDetail"`
	Seller  User    `json:"sellerDetail"`
	Product Product `json:"productDetail"`
}
