package middleware

import (
	"errors"
	"log"

	"agent-chess-league/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// APIKeyAuth authenticates requests by the X-API-Key header and attaches
// the matching agent to the request context under "agent".
func APIKeyAuth(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get("X-API-Key")
		if key == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-API-Key header",
			})
		}

		var agent models.Agent
		if err := db.First(&agent, "api_key = ?", key).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "invalid API key",
				})
			}
			log.Printf("[Auth] key lookup failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "database error",
			})
		}

		c.Locals("agent", &agent)
		return c.Next()
	}
}
