package cluster

import (
	"github.com/gofiber/fiber/v2"

	"github.com/driftline/driftline/pkg/algorithm"
	"github.com/driftline/driftline/pkg/timeline"
)

// RenderedItem is an item decorated with plugin-contributed extras.
type RenderedItem struct {
	*timeline.Item
	Extras []string `json:"extras,omitempty"`
}

// Group is one labeled partition of the rendered window.
type Group struct {
	Index int            `json:"index"`
	Label string         `json:"label"`
	Items []RenderedItem `json:"items"`
}

// Groups is the rendered output of a topic-clustering model. Partitions
// with no items in the window still appear.
type Groups struct {
	Algorithm    string  `json:"algorithm"`
	ModelVersion string  `json:"model_version"`
	Groups       []Group `json:"groups"`
}

func (g *Groups) Render(c *fiber.Ctx) error {
	return c.JSON(g)
}

var _ algorithm.Renderable = (*Groups)(nil)
