package sendit

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiffmarket/marketplace/internal/order/application"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(slog.New(slog.DiscardHandler), Config{BaseURL: srv.URL, APIToken: "test-token"})
}

func TestResolveDistrict_ReturnsFirstMatch(t *testing.T) {
	var gotAuth, gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.Query().Get("querystring")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    []map[string]any{{"id": 31, "name": "Casablanca"}, {"id": 32, "name": "Casablanca Sud"}},
		})
	})

	id, err := c.ResolveDistrict(context.Background(), "Casablanca")
	require.NoError(t, err)
	assert.Equal(t, 31, id)
	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, "Casablanca", gotQuery)
}

func TestResolveDistrict_EmptyMatchList(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": []any{}})
	})

	_, err := c.ResolveDistrict(context.Background(), "Atlantis")
	assert.ErrorIs(t, err, application.ErrDistrictNotFound)
}

func TestResolveDistrict_NonSuccessStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.ResolveDistrict(context.Background(), "Casablanca")
	assert.ErrorIs(t, err, application.ErrDistrictNotFound)
}

func TestResolveDistrict_MalformedPayload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	})

	_, err := c.ResolveDistrict(context.Background(), "Casablanca")
	assert.ErrorIs(t, err, application.ErrDistrictNotFound)
}

func TestResolveDistrict_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	c := NewClient(slog.New(slog.DiscardHandler), Config{BaseURL: srv.URL, APIToken: "t"})
	srv.Close()

	_, err := c.ResolveDistrict(context.Background(), "Casablanca")
	assert.ErrorIs(t, err, application.ErrDistrictNotFound)
}

func TestSubmitDelivery_Success(t *testing.T) {
	var body map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/deliveries", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]any{"id": 99, "tracking": "DLV-99"},
		})
	})

	record, err := c.SubmitDelivery(context.Background(), application.DeliveryRequest{
		PickupDistrictID: 2,
		DistrictID:       31,
		Name:             "Amine",
		Amount:           15000,
		Address:          "12 Rue Atlas",
		Phone:            "0600000001",
		ProductRef:       "REF-001",
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":99,"tracking":"DLV-99"}`, string(record))

	// Fixed operational flags are always present on the wire.
	assert.EqualValues(t, 1, body["allow_open"])
	assert.EqualValues(t, 1, body["allow_try"])
	assert.EqualValues(t, 0, body["products_from_stock"])
	assert.EqualValues(t, 0, body["option_exchange"])
	assert.EqualValues(t, 2, body["pickup_district_id"])
	assert.EqualValues(t, "REF-001", body["products"])
}

func TestSubmitDelivery_CarrierReportedFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "district without coverage"})
	})

	_, err := c.SubmitDelivery(context.Background(), application.DeliveryRequest{})
	var carrierErr *application.CarrierError
	require.ErrorAs(t, err, &carrierErr)
	assert.Equal(t, "district without coverage", carrierErr.Reason)
}

func TestSubmitDelivery_NonSuccessStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{"success": false})
	})

	_, err := c.SubmitDelivery(context.Background(), application.DeliveryRequest{})
	var carrierErr *application.CarrierError
	require.ErrorAs(t, err, &carrierErr)
	assert.Contains(t, carrierErr.Reason, "401")
}

func TestSubmitDelivery_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	c := NewClient(slog.New(slog.DiscardHandler), Config{BaseURL: srv.URL, APIToken: "t"})
	srv.Close()

	_, err := c.SubmitDelivery(context.Background(), application.DeliveryRequest{})
	var carrierErr *application.CarrierError
	assert.ErrorAs(t, err, &carrierErr)
}
