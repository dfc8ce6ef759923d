package usercontext

import "github.com/gofiber/fiber/v2"

// UserContext represents the complete subscriber context for a request
type UserContext struct {
	SubscriberID uint   `json:"subscriber_id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	IsLoggedIn   bool   `json:"is_logged_in"`
	Customer     bool   `json:"customer"`
}

// GetUserContext retrieves the user context from fiber context
// Returns a default anonymous context if none is set
func GetUserContext(c *fiber.Ctx) UserContext {
	if ctx := c.Locals("USER_CONTEXT"); ctx != nil {
		return ctx.(UserContext)
	}
	return UserContext{IsLoggedIn: false}
}

// IsLoggedIn checks if the current subscriber is logged in
func IsLoggedIn(c *fiber.Ctx) bool {
	return GetUserContext(c).IsLoggedIn
}

// GetSubscriberID returns the current subscriber's ID, or 0 if not logged in
func GetSubscriberID(c *fiber.Ctx) uint {
	return GetUserContext(c).SubscriberID
}

// GetEmail returns the current subscriber's email, or empty if not logged in
func GetEmail(c *fiber.Ctx) string {
	return GetUserContext(c).Email
}
