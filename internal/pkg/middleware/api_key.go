package middleware

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/atelier-logos/nabla/app/models"
	"github.com/atelier-logos/nabla/app/repository"
)

// CustomerLocalsKey holds the authenticated customer on the request context.
const CustomerLocalsKey = "CUSTOMER_CONTEXT"

// APIKeyAuthMiddleware authenticates requests carrying a customer API key.
func APIKeyAuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		apiKey := extractAPIKeyFromHeader(c)
		if apiKey == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing API key"})
		}

		hash := models.HashAPIKey(apiKey)
		repo := repository.GetGlobalFactory().GetCustomerRepository()
		customer, err := repo.GetByAPIKeyHash(hash)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid API key"})
			}
			fiberlog.Errorf("api key lookup failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "API key verification failed"})
		}

		// Access requires a live trial or a completed checkout.
		if !customer.TrialActive(time.Now()) && customer.StripeCustomerID == "" {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "Trial expired"})
		}

		// Refresh last-used timestamp best-effort.
		if err := repo.TouchAPIKeyUsage(customer.ID, time.Now()); err != nil {
			fiberlog.Warnf("failed to update api key usage timestamp for customer %s: %v", customer.ID, err)
		}

		c.Locals(CustomerLocalsKey, customer)

		return c.Next()
	}
}

// GetCustomer returns the authenticated customer, or nil outside API-key routes.
func GetCustomer(c *fiber.Ctx) *models.Customer {
	if v := c.Locals(CustomerLocalsKey); v != nil {
		if customer, ok := v.(*models.Customer); ok {
			return customer
		}
	}
	return nil
}

func extractAPIKeyFromHeader(c *fiber.Ctx) string {
	apiKey := strings.TrimSpace(c.Get("X-API-Key"))
	if apiKey != "" {
		return apiKey
	}
	auth := strings.TrimSpace(c.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
