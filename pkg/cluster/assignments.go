package cluster

import (
	"context"
	"sync"
)

// AssignmentStore is the versioned prediction cache for the topic
// clustering algorithm. Keys are (item id, model version): entries for a
// superseded version are never matched again but are never purged either.
type AssignmentStore interface {
	// Assignments returns the cached partition index for every given
	// item id that has an entry under this model version.
	Assignments(ctx context.Context, modelVersion string, itemIDs []int64) (map[int64]int, error)

	// SaveAssignment records a partition index for (itemID, modelVersion).
	// Writes are idempotent overwrites: re-observing a pair replaces the
	// index, it never accumulates.
	SaveAssignment(ctx context.Context, itemID int64, modelVersion string, partition int) error

	// Close closes the store and releases any resources.
	Close() error
}

// InMemoryAssignmentStore is an AssignmentStore backed by process memory.
type InMemoryAssignmentStore struct {
	mu      sync.RWMutex
	entries map[string]map[int64]int
}

// NewInMemoryAssignmentStore creates a new in-memory assignment store.
func NewInMemoryAssignmentStore() *InMemoryAssignmentStore {
	return &InMemoryAssignmentStore{
		entries: make(map[string]map[int64]int),
	}
}

func (s *InMemoryAssignmentStore) Assignments(_ context.Context, modelVersion string, itemIDs []int64) (map[int64]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[int64]int)
	versioned, ok := s.entries[modelVersion]
	if !ok {
		return result, nil
	}
	for _, id := range itemIDs {
		if partition, ok := versioned[id]; ok {
			result[id] = partition
		}
	}
	return result, nil
}

func (s *InMemoryAssignmentStore) SaveAssignment(_ context.Context, itemID int64, modelVersion string, partition int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	versioned, ok := s.entries[modelVersion]
	if !ok {
		versioned = make(map[int64]int)
		s.entries[modelVersion] = versioned
	}
	versioned[itemID] = partition
	return nil
}

func (s *InMemoryAssignmentStore) Close() error {
	return nil
}

// Ensure InMemoryAssignmentStore implements AssignmentStore
var _ AssignmentStore = (*InMemoryAssignmentStore)(nil)
