package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/atelier-logos/nabla/internal/pkg/usercontext"
)

func isLoggedIn(c *fiber.Ctx) bool {
	return usercontext.IsLoggedIn(c)
}

// currentSubscriberID gets the subscriber ID from Locals (set by middleware)
func currentSubscriberID(c *fiber.Ctx) uint {
	return usercontext.GetSubscriberID(c)
}

func errorJSON(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error":   code,
		"message": message,
	})
}
