package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/atelier-logos/nabla/app/controllers"
	"github.com/atelier-logos/nabla/internal/pkg/middleware"
)

type ApiRouter struct {
	controllers Controllers
}

func NewApiRouter(c Controllers) *ApiRouter {
	return &ApiRouter{controllers: c}
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	// Payment processor callbacks. No session, signature-verified instead.
	api.Post("/webhooks/stripe", h.controllers.Webhook.HandleStripeWebhook)

	// Session auth
	auth := api.Group("/auth")
	auth.Post("/register", controllers.HandleRegister)
	auth.Post("/login", controllers.HandleLogin)
	auth.Post("/logout", controllers.HandleLogout)
	auth.Get("/me", middleware.RequireAuth, controllers.HandleMe)

	// Support chat (session-protected)
	chat := api.Group("/chat", middleware.RequireAuth)
	chat.Get("/room", h.controllers.Chat.HandleGetRoom)
	chat.Post("/send", h.controllers.Chat.HandleSendMessage)
	chat.Post("/upload", h.controllers.Upload.HandleUploadAttachment)

	// Curation quota (session-protected)
	api.Post("/curations/consume", middleware.RequireAuth, controllers.HandleConsumeCuration)

	// Purchase ledger (session-protected)
	api.Get("/purchases", middleware.RequireAuth, h.controllers.Purchase.HandleListPurchases)

	// Customer provisioning and marketing surface
	api.Post("/onboarding/complete", h.controllers.Onboarding.HandleCompleteOnboarding)
	api.Post("/contact", h.controllers.Contact.HandleContact)
	api.Get("/blog", h.controllers.Blog.HandleFeed)

	// API-key-authenticated customer routes
	v1 := api.Group("/v1", middleware.APIKeyAuthMiddleware())
	v1.Get("/ping", func(c *fiber.Ctx) error {
		customer := middleware.GetCustomer(c)
		return c.JSON(fiber.Map{
			"ok":                    true,
			"plan":                  customer.Plan,
			"rate_limit_per_minute": customer.RateLimitPerMinute,
		})
	})
}
