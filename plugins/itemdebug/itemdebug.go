// Package itemdebug contributes a per-item display fragment exposing the
// item's raw source payload, handy when tuning clustering or ingestion.
package itemdebug

import (
	"fmt"
	"html"

	"github.com/driftline/driftline/pkg/algorithm"
	"github.com/driftline/driftline/pkg/plugin"
	"github.com/driftline/driftline/pkg/timeline"
)

// maxRawLength keeps the debug fragment from dwarfing the item itself.
const maxRawLength = 2000

type Bundle struct{}

func NewBundle() *Bundle {
	return &Bundle{}
}

func (b *Bundle) Manifest() (*plugin.Plugin, error) {
	return &plugin.Plugin{
		Name:        "item-debug",
		DisplayName: "Item Debug",
		Description: "Shows each item's raw source payload beneath its rendered display.",
		Author:      "driftline",
		ItemDisplays: []plugin.ItemDisplayFunc{
			rawPayload,
		},
	}, nil
}

func rawPayload(item *timeline.Item, _ *algorithm.RenderContext) string {
	if item == nil || item.RawJSON == "" {
		return ""
	}

	raw := item.RawJSON
	if len(raw) > maxRawLength {
		raw = raw[:maxRawLength] + "…"
	}
	return fmt.Sprintf("<details><summary>raw</summary><pre>%s</pre></details>", html.EscapeString(raw))
}

var _ plugin.Bundle = (*Bundle)(nil)
