// Package algorithm defines the contract every timeline-rendering strategy
// implements: train a model over a window of items, render items through it,
// and round-trip the trained state through bytes so it can live in a session.
package algorithm

import (
	"context"

	"github.com/driftline/driftline/pkg/timeline"
)

// Algorithm is one trained strategy instance. Implementations must be
// reconstructable from Serialize output via their Type's Deserialize, and
// the reconstructed instance must render identically over the same items.
type Algorithm interface {
	// Render runs the trained model over items and returns an opaque
	// Renderable for the presentation layer. Items without an embedding
	// are tolerated (implementations exclude them, never error on them).
	Render(ctx context.Context, items []*timeline.Item, rc *RenderContext) (Renderable, error)

	// Serialize returns a self-contained representation of the trained
	// state. No external lookups may be needed to reconstruct behavior
	// beyond these bytes plus the type name recorded in the Spec.
	Serialize() ([]byte, error)
}

// Type describes one registrable algorithm implementation. The registry
// holds Types; Sessions reference them by Name.
type Type interface {
	// Name is the stable identifier recorded in a Spec.
	Name() string

	// DisplayName is the human-readable name shown in algorithm pickers.
	DisplayName() string

	// Train builds a new trained instance from the context's items and
	// the caller-supplied hyperparameters.
	Train(ctx context.Context, tc *TrainContext, params map[string]string) (Algorithm, error)

	// Deserialize reconstructs a trained instance from Serialize output.
	Deserialize(data []byte) (Algorithm, error)

	// RenderParams returns an HTML fragment surfacing hyperparameter
	// controls, or "" when the type has none. No core logic depends on
	// its content.
	RenderParams(rc *RenderContext) string
}
