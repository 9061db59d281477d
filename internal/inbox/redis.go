package inbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"

	"farm-alert-service/internal/models"
)

const maxTxRetries = 5

// RedisStore keeps each farmer's inbox in a Redis list so several service instances
// share one view. Newest entries sit at the head of the list.
type RedisStore struct {
	client   *redis.Client
	capacity int
}

func NewRedisStore(client *redis.Client, capacity int) *RedisStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &RedisStore{client: client, capacity: capacity}
}

func inboxKey(farmerID int64) string {
	return fmt.Sprintf("inbox:farmer:%d", farmerID)
}

// Push prepends n and trims the list to capacity in one MULTI block.
func (s *RedisStore) Push(ctx context.Context, n models.Notification) error {
	raw, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	key := inboxKey(n.FarmerID)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, raw)
		pipe.LTrim(ctx, key, 0, int64(s.capacity-1))
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: failed to push notification: %v", models.ErrPersistence, err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context, farmerID int64, opts models.ListOptions) ([]models.Notification, error) {
	items, _, err := s.load(ctx, s.client, farmerID)
	if err != nil {
		return nil, err
	}
	return filter(items, opts), nil
}

func (s *RedisStore) UnreadCount(ctx context.Context, farmerID int64) (int, error) {
	items, _, err := s.load(ctx, s.client, farmerID)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, n := range items {
		if !n.Read {
			count++
		}
	}
	return count, nil
}

func (s *RedisStore) MarkRead(ctx context.Context, farmerID int64, id string) error {
	return s.update(ctx, farmerID, func(items []models.Notification, raws []string) (func(redis.Pipeliner) error, error) {
		for i, n := range items {
			if n.ID != id {
				continue
			}
			n.Read = true
			raw, err := json.Marshal(n)
			if err != nil {
				return nil, err
			}
			idx := int64(i)
			return func(pipe redis.Pipeliner) error {
				pipe.LSet(ctx, inboxKey(farmerID), idx, raw)
				return nil
			}, nil
		}
		return nil, fmt.Errorf("notification %s: %w", id, models.ErrNotFound)
	})
}

func (s *RedisStore) MarkAllRead(ctx context.Context, farmerID int64) error {
	return s.update(ctx, farmerID, func(items []models.Notification, raws []string) (func(redis.Pipeliner) error, error) {
		updates := map[int64][]byte{}
		for i, n := range items {
			if n.Read {
				continue
			}
			n.Read = true
			raw, err := json.Marshal(n)
			if err != nil {
				return nil, err
			}
			updates[int64(i)] = raw
		}
		if len(updates) == 0 {
			return nil, nil
		}
		return func(pipe redis.Pipeliner) error {
			for idx, raw := range updates {
				pipe.LSet(ctx, inboxKey(farmerID), idx, raw)
			}
			return nil
		}, nil
	})
}

func (s *RedisStore) Remove(ctx context.Context, farmerID int64, id string) error {
	return s.update(ctx, farmerID, func(items []models.Notification, raws []string) (func(redis.Pipeliner) error, error) {
		for i, n := range items {
			if n.ID == id {
				raw := raws[i]
				return func(pipe redis.Pipeliner) error {
					pipe.LRem(ctx, inboxKey(farmerID), 1, raw)
					return nil
				}, nil
			}
		}
		return nil, fmt.Errorf("notification %s: %w", id, models.ErrNotFound)
	})
}

func (s *RedisStore) Clear(ctx context.Context, farmerID int64) error {
	if err := s.client.Del(ctx, inboxKey(farmerID)).Err(); err != nil {
		return fmt.Errorf("%w: failed to clear inbox: %v", models.ErrPersistence, err)
	}
	return nil
}

type listReader interface {
	LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
}

func (s *RedisStore) load(ctx context.Context, r listReader, farmerID int64) ([]models.Notification, []string, error) {
	raws, err := r.LRange(ctx, inboxKey(farmerID), 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, nil, fmt.Errorf("failed to read inbox: %w", err)
	}
	items := make([]models.Notification, 0, len(raws))
	for _, raw := range raws {
		var n models.Notification
		if err := json.Unmarshal([]byte(raw), &n); err != nil {
			return nil, nil, fmt.Errorf("failed to decode notification: %w", err)
		}
		items = append(items, n)
	}
	return items, raws, nil
}

type mutation func(items []models.Notification, raws []string) (func(redis.Pipeliner) error, error)

// update runs a read-modify-write against the farmer's list under WATCH, retrying
// when a concurrent writer touches the key first.
func (s *RedisStore) update(ctx context.Context, farmerID int64, m mutation) error {
	key := inboxKey(farmerID)
	txf := func(tx *redis.Tx) error {
		items, raws, err := s.load(ctx, tx, farmerID)
		if err != nil {
			return err
		}
		apply, err := m(items, raws)
		if err != nil || apply == nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, apply)
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("%w: inbox update failed: %v", models.ErrPersistence, err)
		}
		return err
	}
	return fmt.Errorf("%w: inbox update for farmer %d kept conflicting", models.ErrPersistence, farmerID)
}
