package inbox

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"farm-alert-service/internal/logging"
	"farm-alert-service/internal/models"
)

// Broadcaster receives a copy of every pushed notification.
type Broadcaster interface {
	Broadcast(farmerID int64, message []byte)
}

// Inbox is the in-app channel: it stamps notifications, stores them and pushes them
// to live connections.
type Inbox struct {
	store  Store
	hub    Broadcaster
	clock  clockwork.Clock
	logger *logging.Logger
}

func New(store Store, hub Broadcaster, clock clockwork.Clock, logger *logging.Logger) *Inbox {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Inbox{store: store, hub: hub, clock: clock, logger: logger}
}

type event struct {
	Type         string              `json:"type"`
	Notification models.Notification `json:"notification"`
}

// Push assigns an id and timestamp to n, stores it unread and broadcasts it.
func (i *Inbox) Push(ctx context.Context, n models.Notification) (models.Notification, error) {
	n.ID = uuid.NewString()
	n.CreatedAt = i.clock.Now().UTC()
	n.Read = false
	if err := i.store.Push(ctx, n); err != nil {
		return models.Notification{}, err
	}

	if i.hub != nil && !n.Quiet {
		msg, err := json.Marshal(event{Type: "notification", Notification: n})
		if err != nil {
			i.logger.Errorf("Failed to encode notification %s: %v", n.ID, err)
		} else {
			i.hub.Broadcast(n.FarmerID, msg)
		}
	}
	return n, nil
}

func (i *Inbox) List(ctx context.Context, farmerID int64, opts models.ListOptions) ([]models.Notification, error) {
	return i.store.List(ctx, farmerID, opts)
}

func (i *Inbox) UnreadCount(ctx context.Context, farmerID int64) (int, error) {
	return i.store.UnreadCount(ctx, farmerID)
}

func (i *Inbox) MarkRead(ctx context.Context, farmerID int64, id string) error {
	return i.store.MarkRead(ctx, farmerID, id)
}

func (i *Inbox) MarkAllRead(ctx context.Context, farmerID int64) error {
	return i.store.MarkAllRead(ctx, farmerID)
}

func (i *Inbox) Remove(ctx context.Context, farmerID int64, id string) error {
	return i.store.Remove(ctx, farmerID, id)
}

func (i *Inbox) Clear(ctx context.Context, farmerID int64) error {
	return i.store.Clear(ctx, farmerID)
}
