package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOrder_Validation(t *testing.T) {
	addr := ShippingAddress{City: "Rabat"}

	tests := []struct {
		name     string
		buyer    string
		seller   string
		product  string
		total    int64
		quantity int
		wantErr  string
	}{
		{"valid", "b", "s", "p", 100, 1, ""},
		{"missing product", "b", "s", "", 100, 1, "required"},
		{"buyer is seller", "b", "b", "p", 100, 1, "must differ"},
		{"zero quantity", "b", "s", "p", 100, 0, "at least 1"},
		{"negative total", "b", "s", "p", -1, 1, "not be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := NewOrder(tt.buyer, tt.seller, tt.product, addr, "cod", tt.total, tt.quantity, "")
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, o.ID)
			assert.Equal(t, StatusInProgress, o.Status)
			assert.False(t, o.CreatedAt.IsZero())
		})
	}
}

func TestOrderStatus_CanTransition(t *testing.T) {
	tests := []struct {
		from OrderStatus
		to   OrderStatus
		ok   bool
	}{
		{StatusInProgress, StatusShipped, true},
		{StatusInProgress, StatusCancelled, true},
		{StatusInProgress, StatusCompleted, true},
		{StatusInProgress, StatusDelivered, false},
		{StatusShipped, StatusDelivered, true},
		{StatusShipped, StatusCancelled, false},
		{StatusDelivered, StatusCompleted, false},
		{StatusCancelled, StatusInProgress, false},
		{StatusCompleted, StatusShipped, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.ok, tt.from.CanTransition(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestOrderStatus_Valid(t *testing.T) {
	for _, s := range []OrderStatus{StatusInProgress, StatusShipped, StatusDelivered, StatusCancelled, StatusCompleted} {
		assert.True(t, s.Valid(), string(s))
	}
	assert.False(t, OrderStatus("All").Valid())
	assert.False(t, OrderStatus("").Valid())
}
