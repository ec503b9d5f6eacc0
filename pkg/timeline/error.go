package timeline

import "errors"

var (
	// ErrNotFound is returned when an item doesn't exist in the store.
	ErrNotFound = errors.New("item not found")

	// ErrNilItem indicates a nil item was passed to a store.
	ErrNilItem = errors.New("nil item")

	// ErrNoURL indicates an item without a URL; URL is the item identity
	// and is required at write time.
	ErrNoURL = errors.New("item has no url")
)
