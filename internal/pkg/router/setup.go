package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/atelier-logos/nabla/app/controllers"
)

// Router installs a group of routes on the app
type Router interface {
	InstallRouter(app *fiber.App)
}

// Controllers bundles the dependency-injected controllers the routers mount.
type Controllers struct {
	Webhook    *controllers.WebhookController
	Chat       *controllers.ChatController
	Upload     *controllers.UploadController
	Onboarding *controllers.OnboardingController
	Purchase   *controllers.PurchaseController
	Contact    *controllers.ContactController
	Blog       *controllers.BlogController
}

// InstallRouter mounts all routes. The HTTP router goes first so the session
// store and user-context middleware exist before the API routes that depend
// on them.
func InstallRouter(app *fiber.App, c Controllers) {
	setup(app, NewHttpRouter(c), NewApiRouter(c))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
