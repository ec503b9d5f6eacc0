package algorithm

import (
	"context"
	"time"

	"github.com/driftline/driftline/pkg/timeline"
)

// ItemSource supplies items for training and rendering. timeline.Store
// satisfies it; tests substitute fixed slices.
type ItemSource interface {
	ItemsSince(ctx context.Context, since time.Time) ([]*timeline.Item, error)
}

// ProviderSettings are one session's provider model overrides. Empty
// fields fall back to the server's configured defaults.
type ProviderSettings struct {
	EmbeddingModel string `json:"embedding_model,omitempty"`
	SummarizeModel string `json:"summarize_model,omitempty"`
}

// TrainContext carries everything a Type needs to train a model.
type TrainContext struct {
	// End is the close of the training window.
	End time.Time

	// Span is the window length; training items fall in [End-Span, End).
	Span time.Duration

	// SessionID identifies which user's provider settings apply.
	SessionID string

	// Settings are the session's provider overrides, applied when the
	// algorithm calls out to a provider during training.
	Settings ProviderSettings

	// Items is the source of training items.
	Items ItemSource
}

// TrainingItems returns the items inside the training window.
func (tc *TrainContext) TrainingItems(ctx context.Context) ([]*timeline.Item, error) {
	return tc.Items.ItemsSince(ctx, tc.End.Add(-tc.Span))
}

// ItemDisplayFunc augments one item's rendered display with an extra HTML
// fragment. Plugins contribute these; "" contributes nothing.
type ItemDisplayFunc func(item *timeline.Item, rc *RenderContext) string

// RenderContext carries per-request state into Render and RenderParams.
type RenderContext struct {
	SessionID string

	// UISettings are the session's last-used form parameters, e.g. the
	// chosen cluster count.
	UISettings map[string]string

	// Displays are the plugin-contributed item display callbacks active
	// for this request.
	Displays []ItemDisplayFunc
}

// ItemExtras runs every display callback for an item, dropping empty
// fragments.
func (rc *RenderContext) ItemExtras(item *timeline.Item) []string {
	if rc == nil || len(rc.Displays) == 0 {
		return nil
	}
	var extras []string
	for _, display := range rc.Displays {
		if fragment := display(item, rc); fragment != "" {
			extras = append(extras, fragment)
		}
	}
	return extras
}

// Setting returns a UI setting or the given default when unset.
func (rc *RenderContext) Setting(key, fallback string) string {
	if rc == nil || rc.UISettings == nil {
		return fallback
	}
	if v, ok := rc.UISettings[key]; ok && v != "" {
		return v
	}
	return fallback
}
