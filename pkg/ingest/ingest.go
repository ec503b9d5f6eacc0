// Package ingest pulls timeline items from a source, embeds them, and
// persists them through a small worker pool so one slow embedding call
// does not stall the whole sync.
package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/driftline/driftline/pkg/embeddings"
	"github.com/driftline/driftline/pkg/timeline"
)

var defaultNumWorkers uint = 3

// DefaultInitialWindow bounds the first sync against an empty store. The
// source pages backwards until it falls behind the since cutoff, so an
// unbounded first sync would walk the feed's entire history.
const DefaultInitialWindow = 24 * time.Hour

// Source supplies new items, typically a Mastodon client.
type Source interface {
	HomeTimeline(ctx context.Context, since time.Time) ([]*timeline.Item, error)
}

// Config is the configuration options for the ingester.
type Config struct {
	// Source provides the items to ingest.
	Source Source

	// Store persists them.
	Store timeline.Store

	// Embedder generates item embeddings. Embedding failures are not
	// fatal: the item is stored without one and picked up next sync.
	Embedder embeddings.Embedder

	// NumWorkers is the number of concurrent embed-and-store workers.
	NumWorkers uint

	// InitialWindow bounds the first sync when the store is empty.
	// Zero means DefaultInitialWindow.
	InitialWindow time.Duration

	// Logger is the provided zap logger
	Logger *zap.Logger
}

// Stats summarizes one sync run.
type Stats struct {
	// Fetched is how many items the source returned.
	Fetched int

	// Saved is how many items were written, with or without embedding.
	Saved int

	// Skipped is how many items the store left untouched because an
	// embedded row already existed.
	Skipped int

	// EmbedFailures is how many items were stored without an embedding.
	EmbedFailures int
}

// Ingester runs sync passes against a source.
type Ingester struct {
	config *Config
	logger *zap.Logger
}

func New(c *Config) (*Ingester, error) {
	if c.Source == nil || c.Store == nil || c.Embedder == nil {
		return nil, fmt.Errorf("source, store, and embedder are required")
	}
	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}
	if c.InitialWindow == 0 {
		c.InitialWindow = DefaultInitialWindow
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}

	return &Ingester{config: c, logger: c.Logger}, nil
}

// Sync fetches everything newer than the store's latest item and fans the
// batch out to the workers. Per-item failures are logged and counted, not
// returned; only a failed fetch aborts the run.
func (i *Ingester) Sync(ctx context.Context) (*Stats, error) {
	since := time.Now().Add(-i.config.InitialWindow)
	latest, ok, err := i.config.Store.LatestCreatedAt(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading latest item: %w", err)
	}
	if ok {
		since = latest
	}

	items, err := i.config.Source.HomeTimeline(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("fetching timeline: %w", err)
	}

	i.logger.Info("syncing timeline",
		zap.Int("fetched", len(items)),
		zap.Time("since", since),
	)

	stats := &Stats{Fetched: len(items)}
	var mu sync.Mutex

	queue := make(chan *timeline.Item, len(items))
	for _, item := range items {
		queue <- item
	}
	close(queue)

	var wg sync.WaitGroup
	wg.Add(int(i.config.NumWorkers))
	for w := range i.config.NumWorkers {
		go func(id uint) {
			defer wg.Done()
			i.logger.Debug("ingest worker started", zap.Uint("worker_id", id))

			for item := range queue {
				embedFailed := i.processItem(ctx, item)

				saved, err := i.config.Store.Save(ctx, item)
				if err != nil {
					i.logger.Error("failed to save item",
						zap.String("url", item.URL),
						zap.Error(err),
					)
					continue
				}

				mu.Lock()
				if embedFailed {
					stats.EmbedFailures++
				}
				if saved {
					stats.Saved++
				} else {
					stats.Skipped++
				}
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()

	i.logger.Info("sync complete",
		zap.Int("saved", stats.Saved),
		zap.Int("skipped", stats.Skipped),
		zap.Int("embed_failures", stats.EmbedFailures),
	)
	return stats, nil
}

// processItem fills in the item's embedding, reporting whether the
// embedding call failed.
func (i *Ingester) processItem(ctx context.Context, item *timeline.Item) bool {
	if item.HasEmbedding() {
		return false
	}

	vec, err := i.config.Embedder.Embed(ctx, item.Content)
	if err != nil {
		i.logger.Warn("failed to embed item, storing without embedding",
			zap.String("url", item.URL),
			zap.Error(err),
		)
		return true
	}

	item.Embedding = vec
	return false
}
