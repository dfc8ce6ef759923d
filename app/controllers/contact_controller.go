package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/atelier-logos/nabla/internal/pkg/env"
	"github.com/atelier-logos/nabla/internal/pkg/hcaptcha"
	"github.com/atelier-logos/nabla/internal/pkg/mail"
)

// ContactController forwards contact-form messages to the team inbox.
type ContactController struct {
	mailer mail.Mailer
}

func NewContactController(mailer mail.Mailer) *ContactController {
	return &ContactController{mailer: mailer}
}

type contactRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Message      string `json:"message"`
	CaptchaToken string `json:"captcha_token"`
}

// HandleContact verifies the captcha and relays the message.
func (cc *ContactController) HandleContact(c *fiber.Ctx) error {
	var req contactRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "invalid request body")
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Message = strings.TrimSpace(req.Message)
	if req.Email == "" || req.Message == "" {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "email and message are required")
	}

	if ok, err := hcaptcha.Verify(req.CaptchaToken); !ok {
		fiberlog.Warnf("[Contact] captcha rejected: %v", err)
		return errorJSON(c, fiber.StatusBadRequest, "captcha_failed", "captcha verification failed")
	}

	inbox := env.GetEnv("CONTACT_INBOX", "")
	if inbox == "" {
		fiberlog.Error("[Contact] CONTACT_INBOX not configured")
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "contact inbox not configured")
	}

	body := mail.ContactBody(req.Name, req.Email, req.Message)
	if err := cc.mailer.Send(inbox, "New contact form message", body); err != nil {
		fiberlog.Errorf("[Contact] relay failed: %v", err)
		return errorJSON(c, fiber.StatusBadGateway, "email_delivery_failed", "failed to deliver message")
	}

	return c.JSON(fiber.Map{"sent": true})
}
