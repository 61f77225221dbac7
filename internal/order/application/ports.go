package application

import (
	"context"
	"encoding/json"
	"errors"

	invdomain "github.com/kiffmarket/marketplace/internal/inventory/domain"
	notifdomain "github.com/kiffmarket/marketplace/internal/notification/domain"
	"github.com/kiffmarket/marketplace/internal/order/domain"
)

// ErrDistrictNotFound is the absence sentinel a CarrierGateway returns when a
// city cannot be mapped to a district, whatever the underlying cause.
var ErrDistrictNotFound = errors.New("district not found")

// CarrierError carries the carrier's reported reason for rejecting a
// delivery, or the transport failure that stood in for one.
type CarrierError struct {
	Reason string
}

func (e *CarrierError) Error() string {
	return "carrier rejected delivery: " + e.Reason
}

type Role string

const (
	RoleBought Role = "bought"
	RoleSold   Role = "sold"
)

type ListFilter struct {
	Status domain.OrderStatus
	Role   Role
	UserID string
}

type OrderRepository interface {
	Create(ctx context.Context, o domain.Order) error
	// Get returns the order expanded with buyer, seller and product.
	Get(ctx context.Context, id string) (domain.OrderDetail, error)
	// AttachDelivery stores the carrier payload and the lifecycle event in
	// the same transaction.
	AttachDelivery(ctx context.Context, id string, delivery json.RawMessage, eventType string, payload []byte, traceparent string) error
	// UpdateStatus persists the new status and the lifecycle event in the
	// same transaction.
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus, eventType string, payload []byte, traceparent string) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f ListFilter) ([]domain.OrderDetail, error)
}

type DeliveryRequest struct {
	PickupDistrictID int
	DistrictID       int
	Name             string
	Amount           int64
	Address          string
	Phone            string
	ProductRef       string
}

type CarrierGateway interface {
	ResolveDistrict(ctx context.Context, city string) (int, error)
	SubmitDelivery(ctx context.Context, d DeliveryRequest) (json.RawMessage, error)
}

type InventoryLedger interface {
	Decrement(ctx context.Context, productID string, quantity int) (invdomain.Stock, error)
	Restock(ctx context.Context, productID string, quantity int) (invdomain.Stock, error)
}

type Notifier interface {
	// Notify persists the notification and pushes it to the recipient.
	// eventDetail is the detail text for the push only; the record keeps
	// n.Detail.
	Notify(ctx context.Context, n notifdomain.Notification, senderAvatar, eventDetail string) (notifdomain.Notification, error)
}
