package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/kiffmarket/marketplace/internal/notification/domain"
)

// Dispatcher persists a notification and then pushes it to the target user's
// realtime channel. The record is the source of truth; the push may be lost
// without consequence.
type Dispatcher struct {
	log  *slog.Logger
	repo NotificationRepository
	pub  Publisher
}

func NewDispatcher(log *slog.Logger, repo NotificationRepository, pub Publisher) *Dispatcher {
	return &Dispatcher{log: log, repo: repo, pub: pub}
}

// Notify saves the record, then pushes it. eventDetail is the text carried
// on the push only, typically the record's detail prefixed with the order
// reference; empty means reuse the record's detail verbatim.
func (d *Dispatcher) Notify(ctx context.Context, n domain.Notification, senderAvatar, eventDetail string) (domain.Notification, error) {
	saved, err := d.repo.Save(ctx, n)
	if err != nil {
		return domain.Notification{}, err
	}

	if eventDetail == "" {
		eventDetail = saved.Detail
	}
	event := Event{
		Message: saved.Message,
		UserID:  saved.UserID,
		Sender:  Sender{ID: saved.SenderID, Avatar: senderAvatar},
		Detail:  eventDetail,
		Data:    saved,
		Time:    time.Now().UTC(),
	}
	if err := d.pub.Publish(saved.UserID, event); err != nil {
		d.log.Warn("realtime publish failed", "user_id", saved.UserID, "notification_id", saved.ID, "err", err)
	}
	return saved, nil
}
