package application

import (
	"context"
	"time"

	"github.com/kiffmarket/marketplace/internal/notification/domain"
)

type NotificationRepository interface {
	Save(ctx context.Context, n domain.Notification) (domain.Notification, error)
}

// Sender identifies who triggered the notification in the realtime event.
type Sender struct {
	ID     string `json:"id"`
	Avatar string `json:"avatar,omitempty"`
}

// Event is the payload pushed to the target user's channel. It repeats the
// durable record's fields plus a server timestamp.
type Event struct {
	Message string              `json:"message"`
	UserID  string              `json:"userId"`
	Sender  Sender              `json:"senderId"`
	Detail  string              `json:"detail"`
	Data    domain.Notification `json:"data"`
	Time    time.Time           `json:"time"`
}

// Publisher pushes an event to a user-addressed channel. Implementations are
// best-effort; an unreachable user is not an error.
type Publisher interface {
	Publish(channel string, event any) error
}
