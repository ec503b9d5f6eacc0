// Package nop is the default publisher: it validates and drops events.
// Used when no broker is configured.
package nop

import (
	"context"

	"github.com/driftline/driftline/pkg/eventstream"
)

type Publisher struct{}

func NewPublisher() *Publisher {
	return &Publisher{}
}

func (p *Publisher) PublishModelTrained(_ context.Context, event *eventstream.ModelTrainedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}
	return nil
}

func (p *Publisher) Close() error { return nil }

var _ eventstream.Publisher = (*Publisher)(nil)
