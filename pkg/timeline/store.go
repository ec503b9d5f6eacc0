package timeline

import (
	"context"
	"time"
)

// Store defines the interface for persisting and retrieving timeline items.
type Store interface {
	// Save stores an item. Returns true if the item was written, false
	// if a row with the same URL already holds an embedding — such rows
	// are never rewritten, so an embedded item survives re-ingestion.
	Save(ctx context.Context, item *Item) (bool, error)

	// ItemsSince returns all items created at or after the given time.
	// Callers must not assume any ordering.
	ItemsSince(ctx context.Context, since time.Time) ([]*Item, error)

	// GetByID retrieves an item by its storage-assigned id.
	GetByID(ctx context.Context, id int64) (*Item, error)

	// LatestCreatedAt returns the creation time of the newest stored
	// item, or ok=false when the store is empty.
	LatestCreatedAt(ctx context.Context) (t time.Time, ok bool, err error)

	// Close closes the store and releases any resources.
	Close() error
}
