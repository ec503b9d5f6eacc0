package algorithm

import "github.com/gofiber/fiber/v2"

// Renderable is the opaque output of Render. The core never inspects it;
// only the HTTP layer consumes it by writing it to a response.
type Renderable interface {
	Render(c *fiber.Ctx) error
}
