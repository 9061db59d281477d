package inbox

import (
	"context"
	"fmt"
	"sync"

	"farm-alert-service/internal/models"
)

type farmerList struct {
	mu    sync.Mutex
	items []models.Notification
}

// MemoryStore keeps inboxes in process memory. Contents are lost on restart.
type MemoryStore struct {
	mu       sync.Mutex
	lists    map[int64]*farmerList
	capacity int
}

func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MemoryStore{
		lists:    make(map[int64]*farmerList),
		capacity: capacity,
	}
}

// listFor returns the farmer's list, creating it on first use. Callers lock the list itself.
func (s *MemoryStore) listFor(farmerID int64) *farmerList {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lists[farmerID]
	if !ok {
		l = &farmerList{}
		s.lists[farmerID] = l
	}
	return l
}

// existing returns the farmer's list, or an empty detached one when the farmer has none.
func (s *MemoryStore) existing(farmerID int64) *farmerList {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.lists[farmerID]; ok {
		return l
	}
	return &farmerList{}
}

// farmers reports how many farmers currently hold a list.
func (s *MemoryStore) farmers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lists)
}

func (s *MemoryStore) Push(_ context.Context, n models.Notification) error {
	l := s.listFor(n.FarmerID)
	l.mu.Lock()
	defer l.mu.Unlock()

	items := make([]models.Notification, 0, len(l.items)+1)
	items = append(items, n)
	items = append(items, l.items...)
	if len(items) > s.capacity {
		items = items[:s.capacity]
	}
	l.items = items
	return nil
}

func (s *MemoryStore) List(_ context.Context, farmerID int64, opts models.ListOptions) ([]models.Notification, error) {
	l := s.existing(farmerID)
	l.mu.Lock()
	defer l.mu.Unlock()
	return filter(l.items, opts), nil
}

func (s *MemoryStore) UnreadCount(_ context.Context, farmerID int64) (int, error) {
	l := s.existing(farmerID)
	l.mu.Lock()
	defer l.mu.Unlock()
	count := 0
	for _, n := range l.items {
		if !n.Read {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) MarkRead(_ context.Context, farmerID int64, id string) error {
	l := s.existing(farmerID)
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.items {
		if l.items[i].ID == id {
			l.items[i].Read = true
			return nil
		}
	}
	return fmt.Errorf("notification %s: %w", id, models.ErrNotFound)
}

func (s *MemoryStore) MarkAllRead(_ context.Context, farmerID int64) error {
	l := s.existing(farmerID)
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.items {
		l.items[i].Read = true
	}
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, farmerID int64, id string) error {
	l := s.existing(farmerID)
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.items {
		if l.items[i].ID == id {
			l.items = append(l.items[:i:i], l.items[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("notification %s: %w", id, models.ErrNotFound)
}

func (s *MemoryStore) Clear(_ context.Context, farmerID int64) error {
	l := s.existing(farmerID)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = nil
	return nil
}
