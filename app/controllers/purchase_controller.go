package controllers

import (
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/atelier-logos/nabla/app/repository"
)

// PurchaseController exposes the subscriber's purchase ledger.
type PurchaseController struct {
	purchases repository.PurchaseRepository
}

func NewPurchaseController(purchases repository.PurchaseRepository) *PurchaseController {
	return &PurchaseController{purchases: purchases}
}

// HandleListPurchases returns the authenticated subscriber's purchases,
// newest first.
func (pc *PurchaseController) HandleListPurchases(c *fiber.Ctx) error {
	if !isLoggedIn(c) {
		return errorJSON(c, fiber.StatusUnauthorized, "unauthorized", "authentication required")
	}
	subscriberID := currentSubscriberID(c)

	purchases, err := pc.purchases.GetBySubscriberID(subscriberID)
	if err != nil {
		fiberlog.Errorf("[Purchase] listing failed for subscriber %d: %v", subscriberID, err)
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "failed to load purchases")
	}

	return c.JSON(fiber.Map{
		"purchases": purchases,
	})
}
