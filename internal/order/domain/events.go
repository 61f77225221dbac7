package domain

type OrderPlaced struct {
	OrderID    string `json:"order_id"`
	BuyerID    string `json:"buyer_id"`
	SellerID   string `json:"seller_id"`
	ProductID  string `json:"product_id"`
	Quantity   int    `json:"quantity"`
	TotalCents int64  `json:"total_cents"`
}

type OrderStatusChanged struct {
	OrderID string      `json:"order_id"`
	Status  OrderStatus `json:"status"`
}
