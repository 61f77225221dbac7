package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	invdomain "github.com/kiffmarket/marketplace/internal/inventory/domain"
	"github.com/kiffmarket/marketplace/internal/order/application"
	"github.com/kiffmarket/marketplace/internal/order/domain"
)

type Handler struct {
	log     *slog.Logger
	service *application.Service
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
		tracer:  otel.Tracer("order-http"),
	}
}

type createOrderReq struct {
	Buyer           string                 `json:"buyer"`
	Seller          string                 `json:"seller"`
	Product         string                 `json:"product"`
	ShippingAddress domain.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string                 `json:"paymentMethod"`
	TotalPrice      int64                  `json:"totalPrice"`
	Quantity        int                    `json:"quantity"`
	PaymentIntentID string                 `json:"paymentIntentId"`
}

type updateStatusReq struct {
	NewStatus domain.OrderStatus `json:"newStatus"`
}

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

type listEnvelope struct {
	Success bool `json:"success"`
	Count   int  `json:"count"`
	Data    any  `json:"data"`
}

// Routes mounts the order endpoints. Middlewares passed in guard only the
// create route; reads and status updates are safe to replay as-is.
func (h *Handler) Routes(createMW ...func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.With(createMW...).Post("/order/create", h.createOrder)
	r.Put("/order/status/{id}", h.updateStatus)
	r.Get("/order/get-all-orders", h.getOrdersByStatus)
	r.Get("/order/all-orders", h.getAllOrders)
	r.Get("/order/getOrderById/{id}", h.getOrderByID)

	return r
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateOrder")
	defer span.End()

	var req createOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, envelope{Success: false, Message: "invalid body"})
		return
	}

	traceparent := r.Header.Get("traceparent")
	if traceparent == "" {
		carrier := propagation.MapCarrier{}
		otel.GetTextMapPropagator().Inject(ctx, carrier)
		traceparent = carrier.Get("traceparent")
	}

	detail, err := h.service.CreateOrder(ctx, application.CreateOrderInput{
		BuyerID:         req.Buyer,
		SellerID:        req.Seller,
		ProductID:       req.Product,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		TotalCents:      req.TotalPrice,
		Quantity:        req.Quantity,
		PaymentIntentID: req.PaymentIntentID,
	}, traceparent)
	if err != nil {
		h.writeError(w, err)
		return
	}

	respond(w, http.StatusCreated, envelope{
		Success: true,
		Message: "Order and delivery created successfully",
		Data:    detail,
	})
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "UpdateOrderStatus")
	defer span.End()

	var req updateStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, envelope{Success: false, Message: "invalid body"})
		return
	}

	traceparent := r.Header.Get("traceparent")
	detail, err := h.service.UpdateStatus(ctx, chi.URLParam(r, "id"), req.NewStatus, traceparent)
	if err != nil {
		h.writeError(w, err)
		return
	}

	respond(w, http.StatusOK, envelope{
		Success: true,
		Message: "Order status updated successfully",
		Data:    detail,
	})
}

func (h *Handler) getOrdersByStatus(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	orders, err := h.service.List(r.Context(), application.ListFilter{
		Status: domain.OrderStatus(q.Get("status")),
		Role:   application.Role(q.Get("userType")),
		UserID: q.Get("userId"),
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond(w, http.StatusOK, listEnvelope{Success: true, Count: len(orders), Data: orders})
}

func (h *Handler) getAllOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.List(r.Context(), application.ListFilter{})
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond(w, http.StatusOK, listEnvelope{Success: true, Count: len(orders), Data: orders})
}

func (h *Handler) getOrderByID(w http.ResponseWriter, r *http.Request) {
	detail, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond(w, http.StatusOK, envelope{Success: true, Data: detail})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var carrierErr *application.CarrierError
	switch {
	case errors.Is(err, application.ErrInvalidOrder),
		errors.Is(err, application.ErrShippingCityMissing),
		errors.Is(err, application.ErrInvalidDistrict),
		errors.Is(err, application.ErrInvalidStatus),
		errors.Is(err, domain.ErrInvalidTransition):
		respond(w, http.StatusBadRequest, envelope{Success: false, Message: err.Error()})
	case errors.Is(err, domain.ErrOrderNotFound):
		respond(w, http.StatusNotFound, envelope{Success: false, Message: "Order not found"})
	case errors.Is(err, invdomain.ErrProductNotFound):
		respond(w, http.StatusNotFound, envelope{Success: false, Message: "Product not found"})
	case errors.As(err, &carrierErr):
		respond(w, http.StatusInternalServerError, envelope{
			Success: false,
			Message: "Error creating delivery with carrier",
			Error:   carrierErr.Reason,
		})
	default:
		h.log.Error("request failed", "err", err)
		respond(w, http.StatusInternalServerError, envelope{Success: false, Message: "Server Error", Error: err.Error()})
	}
}

func respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
