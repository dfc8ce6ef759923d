package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/atelier-logos/nabla/app/repository"
	"github.com/atelier-logos/nabla/internal/pkg/session"
	"github.com/atelier-logos/nabla/internal/pkg/usercontext"
)

// UserContextMiddleware resolves the session into a subscriber context for
// every request. Anonymous requests get a default context.
func UserContextMiddleware(c *fiber.Ctx) error {
	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		c.Locals("USER_CONTEXT", usercontext.UserContext{IsLoggedIn: false})
		c.Locals(usercontext.KeyFromProtected, false)
		return c.Next()
	}

	subscriberID := sess.Get(usercontext.KeySubscriberID)
	if subscriberID == nil {
		c.Locals("USER_CONTEXT", usercontext.UserContext{IsLoggedIn: false})
		c.Locals(usercontext.KeyFromProtected, false)
		return c.Next()
	}

	id, ok := subscriberID.(uint)
	if !ok {
		c.Locals("USER_CONTEXT", usercontext.UserContext{IsLoggedIn: false})
		c.Locals(usercontext.KeyFromProtected, false)
		return c.Next()
	}

	email := session.GetSessionValue(c, usercontext.KeyEmail)

	userCtx := usercontext.UserContext{
		SubscriberID: id,
		Email:        email,
		IsLoggedIn:   true,
	}

	// Entitlement flags come from the DB so billing updates show up on the
	// next request, not the next login.
	if sub, err := repository.GetGlobalFactory().GetSubscriberRepository().GetByID(id); err == nil {
		userCtx.Customer = sub.Customer
		userCtx.Name = sub.DisplayName()
		if userCtx.Email == "" {
			userCtx.Email = sub.Email
		}
	}

	c.Locals("USER_CONTEXT", userCtx)
	c.Locals(usercontext.KeyFromProtected, true)
	c.Locals(usercontext.KeySubscriberID, id)
	c.Locals(usercontext.KeyEmail, userCtx.Email)

	return c.Next()
}
