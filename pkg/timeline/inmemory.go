package timeline

import (
	"context"
	"sync"
	"time"
)

// InMemoryStore is a Store backed by process memory. Used by tests and by
// setups that don't need durability.
type InMemoryStore struct {
	mu     sync.RWMutex
	byURL  map[string]*Item
	nextID int64
}

// NewInMemoryStore creates a new in-memory item store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byURL:  make(map[string]*Item),
		nextID: 1,
	}
}

func (s *InMemoryStore) Save(_ context.Context, item *Item) (bool, error) {
	if item == nil {
		return false, ErrNilItem
	}
	if item.URL == "" {
		return false, ErrNoURL
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.byURL[item.URL]; ok && existing.HasEmbedding() {
		return false, nil
	}

	stored := *item
	if existing, ok := s.byURL[item.URL]; ok {
		stored.ID = existing.ID
	} else {
		stored.ID = s.nextID
		s.nextID++
	}
	item.ID = stored.ID
	s.byURL[item.URL] = &stored

	return true, nil
}

func (s *InMemoryStore) ItemsSince(_ context.Context, since time.Time) ([]*Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var items []*Item
	for _, item := range s.byURL {
		if !item.CreatedAt.Before(since) {
			copy := *item
			items = append(items, &copy)
		}
	}
	return items, nil
}

func (s *InMemoryStore) GetByID(_ context.Context, id int64) (*Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, item := range s.byURL {
		if item.ID == id {
			copy := *item
			return &copy, nil
		}
	}
	return nil, ErrNotFound
}

func (s *InMemoryStore) LatestCreatedAt(_ context.Context) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest time.Time
	found := false
	for _, item := range s.byURL {
		if !found || item.CreatedAt.After(latest) {
			latest = item.CreatedAt
			found = true
		}
	}
	return latest, found, nil
}

func (s *InMemoryStore) Close() error {
	return nil
}

// Ensure InMemoryStore implements Store
var _ Store = (*InMemoryStore)(nil)
