package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/atelier-logos/nabla/app/models"
	"github.com/atelier-logos/nabla/app/repository"
	"github.com/atelier-logos/nabla/internal/pkg/entitlements"
	"github.com/atelier-logos/nabla/internal/pkg/session"
	"github.com/atelier-logos/nabla/internal/pkg/usercontext"
)

type registerRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleRegister creates a subscriber account and opens a session.
func HandleRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "invalid request body")
	}

	sub, err := models.CreateSubscriber(req.FirstName, req.LastName, req.Email, req.Password)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "validation_failed", err.Error())
	}

	repo := repository.GetGlobalFactory().GetSubscriberRepository()
	if _, err := repo.GetByEmail(sub.Email); err == nil {
		return errorJSON(c, fiber.StatusConflict, "email_taken", "an account with this email already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		fiberlog.Errorf("[Auth] register lookup failed: %v", err)
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "registration failed")
	}

	if err := repo.Create(sub); err != nil {
		fiberlog.Errorf("[Auth] register create failed: %v", err)
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "registration failed")
	}

	if err := openSession(c, sub); err != nil {
		fiberlog.Errorf("[Auth] session open failed: %v", err)
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "registration failed")
	}

	return c.Status(fiber.StatusCreated).JSON(subscriberJSON(sub))
}

// HandleLogin verifies credentials and opens a session.
func HandleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "bad_request", "invalid request body")
	}

	repo := repository.GetGlobalFactory().GetSubscriberRepository()
	sub, err := repo.GetByEmail(strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, fiber.StatusUnauthorized, "unauthorized", "invalid email or password")
		}
		fiberlog.Errorf("[Auth] login lookup failed: %v", err)
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "login failed")
	}

	if !sub.CheckPassword(req.Password) {
		return errorJSON(c, fiber.StatusUnauthorized, "unauthorized", "invalid email or password")
	}

	if err := openSession(c, sub); err != nil {
		fiberlog.Errorf("[Auth] session open failed: %v", err)
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "login failed")
	}

	return c.JSON(subscriberJSON(sub))
}

// HandleLogout destroys the session.
func HandleLogout(c *fiber.Ctx) error {
	sess, err := session.GetSessionStore().Get(c)
	if err == nil {
		if derr := sess.Destroy(); derr != nil {
			fiberlog.Warnf("[Auth] session destroy failed: %v", derr)
		}
	}
	return c.JSON(fiber.Map{"logged_out": true})
}

// HandleMe returns the logged-in subscriber with its entitlement summary.
func HandleMe(c *fiber.Ctx) error {
	id := currentSubscriberID(c)
	sub, err := repository.GetGlobalFactory().GetSubscriberRepository().GetByID(id)
	if err != nil {
		return errorJSON(c, fiber.StatusNotFound, "not_found", "subscriber not found")
	}
	return c.JSON(subscriberJSON(sub))
}

func openSession(c *fiber.Ctx, sub *models.Subscriber) error {
	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		return err
	}
	sess.Set(usercontext.KeySubscriberID, sub.ID)
	sess.Set(usercontext.KeyEmail, sub.Email)
	return sess.Save()
}

func subscriberJSON(sub *models.Subscriber) fiber.Map {
	ent := entitlements.Entitlement{Customer: sub.Customer, Curations: sub.Curations}
	return fiber.Map{
		"id":                sub.ID,
		"email":             sub.Email,
		"first_name":        sub.FirstName,
		"last_name":         sub.LastName,
		"customer":          sub.Customer,
		"curations":         sub.Curations,
		"subscription_type": entitlements.SubscriptionType(ent),
		"subscription_name": entitlements.DisplayName(ent),
	}
}
