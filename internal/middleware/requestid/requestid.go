// Package requestid tags every request with a correlation id, honoring
// an inbound X-Request-ID when the caller supplies one.
package requestid

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const Header = "X-Request-ID"

// ContextKey is the fiber locals key holding the request id.
const ContextKey = "requestid"

func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(Header)
		if id == "" {
			id = uuid.NewString()
		}
		c.Locals(ContextKey, id)
		c.Set(Header, id)
		return c.Next()
	}
}

// FromCtx returns the request id set by Middleware, or empty.
func FromCtx(c *fiber.Ctx) string {
	id, _ := c.Locals(ContextKey).(string)
	return id
}
