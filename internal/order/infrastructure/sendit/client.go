package sendit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/kiffmarket/marketplace/internal/order/application"
)

// Config carries the carrier credentials and routing constants. The bearer
// token is injected here and never appears in request code.
type Config struct {
	BaseURL  string
	APIToken string
}

// Client talks to the Sendit carrier API. It implements
// application.CarrierGateway: district resolution failures collapse into the
// absence sentinel, delivery failures into *application.CarrierError, so the
// workflow never sees carrier-specific branching.
type Client struct {
	log    *slog.Logger
	cfg    Config
	http   *http.Client
	tracer trace.Tracer
}

func NewClient(log *slog.Logger, cfg Config) *Client {
	return &Client{
		log: log,
		cfg: cfg,
		http: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
			},
		},
		tracer: otel.Tracer("sendit-client"),
	}
}

type districtsResponse struct {
	Success bool `json:"success"`
	Data    []struct {
		ID int `json:"id"`
	} `json:"data"`
}

type deliveriesResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// deliveryPayload is the wire shape of a delivery request. The operational
// flags are fixed for this marketplace: parcels may be opened and tried,
// nothing ships from carrier stock, no exchange.
type deliveryPayload struct {
	PickupDistrictID   int    `json:"pickup_district_id"`
	DistrictID         int    `json:"district_id"`
	Name               string `json:"name"`
	Amount             int64  `json:"amount"`
	Address            string `json:"address"`
	Phone              string `json:"phone"`
	Products           string `json:"products"`
	AllowOpen          int    `json:"allow_open"`
	Comment            string `json:"comment"`
	AllowTry           int    `json:"allow_try"`
	ProductsFromStock  int    `json:"products_from_stock"`
	OptionExchange     int    `json:"option_exchange"`
	DeliveryExchangeID string `json:"delivery_exchange_id"`
}

// ResolveDistrict maps a city name to the carrier's district identifier.
// Any failure mode, transport error, non-2xx status, malformed body or an
// empty match list, is reported as ErrDistrictNotFound; the underlying cause
// is logged here.
func (c *Client) ResolveDistrict(ctx context.Context, city string) (int, error) {
	ctx, span := c.tracer.Start(ctx, "sendit.ResolveDistrict", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	u := fmt.Sprintf("%s/districts?querystring=%s", c.cfg.BaseURL, url.QueryEscape(city))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, application.ErrDistrictNotFound
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		c.log.Error("district lookup failed", "city", city, "err", err)
		return 0, application.ErrDistrictNotFound
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Error("district lookup returned non-success status", "city", city, "status", resp.StatusCode)
		return 0, application.ErrDistrictNotFound
	}

	var body districtsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		span.RecordError(err)
		c.log.Error("district lookup returned malformed payload", "city", city, "err", err)
		return 0, application.ErrDistrictNotFound
	}
	if !body.Success || len(body.Data) == 0 {
		c.log.Warn("no districts found for city", "city", city)
		return 0, application.ErrDistrictNotFound
	}
	return body.Data[0].ID, nil
}

// SubmitDelivery registers the delivery with the carrier and returns its
// payload untouched.
func (c *Client) SubmitDelivery(ctx context.Context, d application.DeliveryRequest) (json.RawMessage, error) {
	ctx, span := c.tracer.Start(ctx, "sendit.SubmitDelivery", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	payload := deliveryPayload{
		PickupDistrictID: d.PickupDistrictID,
		DistrictID:       d.DistrictID,
		Name:             d.Name,
		Amount:           d.Amount,
		Address:          d.Address,
		Phone:            d.Phone,
		Products:         d.ProductRef,
		AllowOpen:        1,
		Comment:          "No Comment",
		AllowTry:         1,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, &application.CarrierError{Reason: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/deliveries", bytes.NewReader(raw))
	if err != nil {
		return nil, &application.CarrierError{Reason: err.Error()}
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, &application.CarrierError{Reason: err.Error()}
	}
	defer resp.Body.Close()

	var body deliveriesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		span.RecordError(err)
		return nil, &application.CarrierError{Reason: "malformed carrier response: " + err.Error()}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !body.Success {
		reason := body.Message
		if reason == "" {
			reason = fmt.Sprintf("carrier returned status %d", resp.StatusCode)
		}
		c.log.Error("delivery submission rejected", "reason", reason)
		return nil, &application.CarrierError{Reason: reason}
	}
	return body.Data, nil
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)
	req.Header.Set("Content-Type", "application/json")
}
