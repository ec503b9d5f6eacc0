package session

import "context"

// Store persists sessions. Put is an upsert: writing an existing id
// replaces the stored row wholesale.
type Store interface {
	// Get returns the session for an id, or ErrNotFound.
	Get(ctx context.Context, id string) (*Session, error)

	// GetOrCreate returns the existing session or a fresh empty one,
	// persisting the new row.
	GetOrCreate(ctx context.Context, id string) (*Session, error)

	// Put inserts or replaces a session.
	Put(ctx context.Context, s *Session) error

	// Close releases the store.
	Close() error
}
