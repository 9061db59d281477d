package inbox

import (
	"context"

	"farm-alert-service/internal/models"
)

// DefaultCapacity is how many notifications a farmer's inbox keeps.
const DefaultCapacity = 50

// Store holds per-farmer notification lists, newest first. Every operation is
// scoped to one farmer; an id that is not in that farmer's list is ErrNotFound.
type Store interface {
	Push(ctx context.Context, n models.Notification) error
	List(ctx context.Context, farmerID int64, opts models.ListOptions) ([]models.Notification, error)
	UnreadCount(ctx context.Context, farmerID int64) (int, error)
	MarkRead(ctx context.Context, farmerID int64, id string) error
	MarkAllRead(ctx context.Context, farmerID int64) error
	Remove(ctx context.Context, farmerID int64, id string) error
	Clear(ctx context.Context, farmerID int64) error
}

func filter(items []models.Notification, opts models.ListOptions) []models.Notification {
	out := make([]models.Notification, 0, len(items))
	for _, n := range items {
		if opts.UnreadOnly && n.Read {
			continue
		}
		out = append(out, n)
		if opts.Limit > 0 && len(out) == opts.Limit {
			break
		}
	}
	return out
}
