package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/atelier-logos/nabla/internal/pkg/middleware"
	"github.com/atelier-logos/nabla/internal/pkg/session"
)

type HttpRouter struct {
	controllers Controllers
}

func NewHttpRouter(c Controllers) *HttpRouter {
	return &HttpRouter{controllers: c}
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init session
	session.NewSessionStore()

	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware)

	// Marketing pages
	app.Get("/blog", h.controllers.Blog.HandleIndex)
	app.Get("/blog/:slug", h.controllers.Blog.HandlePost)
}
