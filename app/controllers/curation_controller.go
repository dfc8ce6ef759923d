package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/atelier-logos/nabla/app/repository"
)

type curationRequest struct {
	Prompt string `json:"prompt"`
}

// HandleConsumeCuration spends one curation from the subscriber's quota.
// Unlimited quotas pass through untouched; exhausted quotas get 402.
func HandleConsumeCuration(c *fiber.Ctx) error {
	id := currentSubscriberID(c)

	var req curationRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "invalid request body")
	}
	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.Prompt == "" {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "prompt is required")
	}

	repo := repository.GetGlobalFactory().GetSubscriberRepository()
	sub, err := repo.GetByID(id)
	if err != nil {
		return errorJSON(c, fiber.StatusNotFound, "not_found", "subscriber not found")
	}

	if !sub.CanCurate() {
		return errorJSON(c, fiber.StatusPaymentRequired, "SUBSCRIPTION_REQUIRED", "curation quota exhausted")
	}

	if !sub.HasUnlimitedCurations() {
		consumed, err := repo.ConsumeCuration(id)
		if err != nil {
			fiberlog.Errorf("[Curation] quota decrement failed for subscriber %d: %v", id, err)
			return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "failed to consume curation")
		}
		if !consumed {
			// Another request drained the last unit between read and write.
			return errorJSON(c, fiber.StatusPaymentRequired, "SUBSCRIPTION_REQUIRED", "curation quota exhausted")
		}
		sub.Curations--
	}

	sub.CurationPrompt = req.Prompt
	if err := repo.Update(sub); err != nil {
		fiberlog.Warnf("[Curation] prompt save failed for subscriber %d: %v", id, err)
	}

	return c.JSON(fiber.Map{
		"accepted":  true,
		"curations": sub.Curations,
		"unlimited": sub.HasUnlimitedCurations(),
	})
}
