package eventstream

import "context"

// Publisher delivers events to a stream. Implementations are safe for
// concurrent use.
type Publisher interface {
	// PublishModelTrained sends one trained-model event.
	PublishModelTrained(ctx context.Context, event *ModelTrainedEvent) error

	// Close flushes and releases the underlying transport.
	Close() error
}
