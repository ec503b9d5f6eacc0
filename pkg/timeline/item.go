// Package timeline provides the Item model for social-timeline posts and
// the interfaces and implementations for persisting them.
package timeline

import (
	"encoding/json"
	"time"
)

// Item is a single timeline post. Identity is the stable URL, not the
// storage-assigned numeric ID: two items with the same URL are the same
// post regardless of any other field.
type Item struct {
	// ID is the storage-assigned row id (0 until persisted).
	ID int64 `json:"id"`

	// Content is the post text with markup stripped.
	Content string `json:"content"`

	// Author is the account handle that wrote the post.
	Author string `json:"author"`

	// URL is the canonical post URL and the identity of the item.
	URL string `json:"url"`

	CreatedAt time.Time `json:"created_at"`

	// Embedding is the vector representation of Content. Nil until the
	// embedding provider has processed the item; image-only posts may
	// never get one.
	Embedding []float32 `json:"-"`

	// RawJSON preserves the original upstream payload.
	RawJSON string `json:"-"`
}

// Equal reports whether two items refer to the same post.
func (i *Item) Equal(other *Item) bool {
	if other == nil {
		return false
	}
	return i.URL == other.URL
}

// HasEmbedding reports whether the item carries an embedding vector.
func (i *Item) HasEmbedding() bool {
	return len(i.Embedding) > 0
}

// RawField extracts a top-level string field from the preserved upstream
// payload. Returns "" when the payload is absent or the field isn't a string.
func (i *Item) RawField(key string) string {
	if i.RawJSON == "" {
		return ""
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(i.RawJSON), &m); err != nil {
		return ""
	}
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}
