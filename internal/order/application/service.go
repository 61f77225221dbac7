package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	notifdomain "github.com/kiffmarket/marketplace/internal/notification/domain"
	"github.com/kiffmarket/marketplace/internal/order/domain"
)

var (
	ErrInvalidOrder        = errors.New("invalid order")
	ErrShippingCityMissing = errors.New("shipping city is missing")
	ErrInvalidDistrict     = errors.New("invalid district")
	ErrInvalidStatus       = errors.New("unknown order status")
	// ErrInconsistentWrite covers the re-read after create coming back empty.
	ErrInconsistentWrite = errors.New("order not found after saving")
)

const (
	EventOrderPlaced        = "OrderPlaced"
	EventOrderStatusChanged = "OrderStatusChanged"

	fallbackAddress = "Unknown Address"
	fallbackName    = "Unknown"
)

type Config struct {
	// PickupDistrictID is the fixed origin district every delivery ships from.
	PickupDistrictID int
	// FallbackPhone is used when the buyer profile carries no phone number.
	FallbackPhone string
}

type Service struct {
	log       *slog.Logger
	cfg       Config
	repo      OrderRepository
	carrier   CarrierGateway
	inventory InventoryLedger
	notifier  Notifier
}

func NewService(log *slog.Logger, cfg Config, repo OrderRepository, carrier CarrierGateway, inventory InventoryLedger, notifier Notifier) *Service {
	return &Service{
		log:       log,
		cfg:       cfg,
		repo:      repo,
		carrier:   carrier,
		inventory: inventory,
		notifier:  notifier,
	}
}

type CreateOrderInput struct {
	BuyerID         string
	SellerID        string
	ProductID       string
	ShippingAddress domain.ShippingAddress
	PaymentMethod   string
	TotalCents      int64
	Quantity        int
	PaymentIntentID string
}

// CreateOrder runs the full placement sequence: persist, re-read expanded,
// resolve the destination district, register the delivery with the carrier,
// attach its payload, decrement stock and notify the seller. Every failure
// after the initial persist deletes the order again; a failed placement
// leaves no order behind.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput, traceparent string) (domain.OrderDetail, error) {
	order, err := domain.NewOrder(in.BuyerID, in.SellerID, in.ProductID, in.ShippingAddress, in.PaymentMethod, in.TotalCents, in.Quantity, in.PaymentIntentID)
	if err != nil {
		return domain.OrderDetail{}, fmt.Errorf("%w: %s", ErrInvalidOrder, err)
	}

	if err := s.repo.Create(ctx, order); err != nil {
		return domain.OrderDetail{}, fmt.Errorf("persist order: %w", err)
	}

	detail, err := s.repo.Get(ctx, order.ID)
	if err != nil {
		// Nothing durable to compensate: the write either did not land or
		// cannot be seen, and deleting on top of that would mask the cause.
		if errors.Is(err, domain.ErrOrderNotFound) {
			return domain.OrderDetail{}, ErrInconsistentWrite
		}
		return domain.OrderDetail{}, fmt.Errorf("reload order: %w", err)
	}

	city := detail.ShippingAddress.City
	if city == "" {
		s.compensate(ctx, order.ID)
		return domain.OrderDetail{}, ErrShippingCityMissing
	}

	districtID, err := s.carrier.ResolveDistrict(ctx, city)
	if err != nil {
		s.compensate(ctx, order.ID)
		return domain.OrderDetail{}, ErrInvalidDistrict
	}

	delivery, err := s.carrier.SubmitDelivery(ctx, s.deliveryRequest(detail, districtID))
	if err != nil {
		s.compensate(ctx, order.ID)
		return domain.OrderDetail{}, err
	}

	placed, err := json.Marshal(domain.OrderPlaced{
		OrderID:    order.ID,
		BuyerID:    order.BuyerID,
		SellerID:   order.SellerID,
		ProductID:  order.ProductID,
		Quantity:   order.Quantity,
		TotalCents: order.TotalCents,
	})
	if err != nil {
		s.compensate(ctx, order.ID)
		return domain.OrderDetail{}, fmt.Errorf("marshal placement event: %w", err)
	}
	if err := s.repo.AttachDelivery(ctx, order.ID, delivery, EventOrderPlaced, placed, traceparent); err != nil {
		s.compensate(ctx, order.ID)
		return domain.OrderDetail{}, fmt.Errorf("attach delivery: %w", err)
	}

	if _, err := s.inventory.Decrement(ctx, order.ProductID, order.Quantity); err != nil {
		s.compensate(ctx, order.ID)
		return domain.OrderDetail{}, err
	}

	s.notifySeller(ctx, detail)

	detail.Delivery = delivery
	return detail, nil
}

// UpdateStatus moves an order along its lifecycle. A transition into
// Cancelled puts the ordered quantity back on the shelf.
func (s *Service) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus, traceparent string) (domain.OrderDetail, error) {
	if !status.Valid() {
		return domain.OrderDetail{}, ErrInvalidStatus
	}

	detail, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.OrderDetail{}, err
	}
	if !detail.Status.CanTransition(status) {
		return domain.OrderDetail{}, fmt.Errorf("%w: %s to %s", domain.ErrInvalidTransition, detail.Status, status)
	}

	changed, err := json.Marshal(domain.OrderStatusChanged{OrderID: id, Status: status})
	if err != nil {
		return domain.OrderDetail{}, fmt.Errorf("marshal status event: %w", err)
	}
	if err := s.repo.UpdateStatus(ctx, id, status, EventOrderStatusChanged, changed, traceparent); err != nil {
		return domain.OrderDetail{}, fmt.Errorf("persist status: %w", err)
	}

	if status == domain.StatusCancelled {
		if _, err := s.inventory.Restock(ctx, detail.ProductID, detail.Quantity); err != nil {
			return domain.OrderDetail{}, fmt.Errorf("restock on cancel: %w", err)
		}
	}

	return s.repo.Get(ctx, id)
}

func (s *Service) Get(ctx context.Context, id string) (domain.OrderDetail, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]domain.OrderDetail, error) {
	// "All" is the wildcard the UI sends; it means no status filter at all.
	if f.Status == "All" {
		f.Status = ""
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	return s.repo.List(ctx, f)
}

func (s *Service) deliveryRequest(detail domain.OrderDetail, districtID int) DeliveryRequest {
	address := detail.Buyer.ShippingStreet
	if address == "" {
		address = fallbackAddress
	}
	phone := detail.Buyer.ShippingPhone
	if phone == "" {
		phone = s.cfg.FallbackPhone
	}
	productRef := detail.Product.ReferenceNumber
	if productRef == "" {
		productRef = detail.ProductID
	}
	return DeliveryRequest{
		PickupDistrictID: s.cfg.PickupDistrictID,
		DistrictID:       districtID,
		Name:             detail.Buyer.Name,
		Amount:           detail.TotalCents,
		Address:          address,
		Phone:            phone,
		ProductRef:       productRef,
	}
}

// notifySeller is best-effort: by the time it runs the order, delivery and
// stock change are committed, so a notification problem is logged rather
// than unwinding the placement.
func (s *Service) notifySeller(ctx context.Context, detail domain.OrderDetail) {
	buyerName := detail.Buyer.Name
	if buyerName == "" {
		buyerName = fallbackName
	}
	const detailText = "Check your orders for more details."
	_, err := s.notifier.Notify(ctx, notifdomain.Notification{
		UserID:    detail.SellerID,
		SenderID:  detail.BuyerID,
		ProductID: detail.ProductID,
		Message:   fmt.Sprintf("You have a new order from %s", buyerName),
		Detail:    detailText,
	}, detail.Buyer.Avatar, fmt.Sprintf("Order ID: %s. %s", detail.ID, detailText))
	if err != nil {
		s.log.Error("seller notification failed", "order_id", detail.ID, "seller_id", detail.SellerID, "err", err)
	}
}

// compensate removes the partially created order. Its own failure is logged
// only; the original error is what the caller must see.
func (s *Service) compensate(ctx context.Context, orderID string) {
	if err := s.repo.Delete(ctx, orderID); err != nil {
		s.log.Error("compensating delete failed", "order_id", orderID, "err", err)
	}
}
