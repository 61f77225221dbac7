package domain

import "time"

// Notification is the durable record; realtime delivery is best-effort on
// top of it.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	SenderID  string    `json:"senderId"`
	ProductID string    `json:"productId,omitempty"`
	Message   string    `json:"message"`
	Detail    string    `json:"detail"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}
