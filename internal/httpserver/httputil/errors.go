package httputil

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// WriteError writes a transport-level JSON error. Extraction failures are
// tables, not errors, and never pass through here.
func WriteError(c *fiber.Ctx, status int, msg string) error {
	if msg == "" {
		msg = http.StatusText(status)
		if msg == "" {
			msg = "unknown error"
		}
	}
	return c.Status(status).JSON(fiber.Map{
		"error": msg,
	})
}
