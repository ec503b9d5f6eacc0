package embeddings

import "errors"

var (
	// ErrEmbedding is returned when embedding generation fails.
	ErrEmbedding = errors.New("embedding failed")

	// ErrEmptyInput is returned when there is no text to embed.
	ErrEmptyInput = errors.New("empty embedding input")
)
