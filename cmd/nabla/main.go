package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/template/html/v2"

	"github.com/atelier-logos/nabla/app/controllers"
	"github.com/atelier-logos/nabla/app/repository"
	"github.com/atelier-logos/nabla/internal/pkg/billing"
	"github.com/atelier-logos/nabla/internal/pkg/blog"
	"github.com/atelier-logos/nabla/internal/pkg/cache"
	"github.com/atelier-logos/nabla/internal/pkg/database"
	"github.com/atelier-logos/nabla/internal/pkg/env"
	"github.com/atelier-logos/nabla/internal/pkg/jobqueue"
	"github.com/atelier-logos/nabla/internal/pkg/mail"
	"github.com/atelier-logos/nabla/internal/pkg/push"
	"github.com/atelier-logos/nabla/internal/pkg/realtime"
	"github.com/atelier-logos/nabla/internal/pkg/router"
	"github.com/atelier-logos/nabla/internal/pkg/storage"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()
	repository.InitializeFactory(database.GetDB())

	// Define possible base paths
	basePaths := []string{
		"./",        // Current directory
		"../../",    // From cmd/nabla to project root
		"../../../", // Fallback
	}

	// Find the correct base path
	basePath := ""
	for _, path := range basePaths {
		if _, err := os.Stat(path + "views"); !os.IsNotExist(err) {
			basePath = path
			break
		}
	}

	if basePath == "" {
		panic("Could not find project root directory")
	}

	// Delivery clients
	mailer := mail.NewSMTPMailer()
	publisher := realtime.NewClientFromEnv()
	notifier := push.NewBeamsClientFromEnv()

	// Background jobs
	queue := jobqueue.NewQueue(3, mailer, notifier)
	manager := jobqueue.NewManager(queue)
	manager.Start()

	// Object storage for chat attachments
	storageCfg, err := storage.LoadConfig()
	if err != nil {
		panic(fmt.Sprintf("invalid storage configuration: %v", err))
	}
	var uploader storage.Uploader
	if storageCfg.IsEnabled() {
		client, err := storage.NewClient(storageCfg)
		if err != nil {
			panic(fmt.Sprintf("storage setup failed: %v", err))
		}
		uploader = client
	}

	repos := repository.GetGlobalRepositories()

	billingSvc := billing.NewServiceFromDB(database.GetDB(), queue)

	ctrl := router.Controllers{
		Webhook:    controllers.NewWebhookController(billingSvc, billing.WebhookSecretFromEnv()),
		Chat:       controllers.NewChatController(repos.Chat, publisher, queue, uploader, storageCfg),
		Upload:     controllers.NewUploadController(repos.Chat, uploader, storageCfg),
		Onboarding: controllers.NewOnboardingController(repos.Customer, mailer, queue),
		Purchase:   controllers.NewPurchaseController(repos.Purchase),
		Contact:    controllers.NewContactController(mailer),
		Blog:       controllers.NewBlogController(blog.NewLoader(basePath + "content/blog")),
	}

	// init fiber app
	app := fiber.New(fiber.Config{
		Views:     html.New(basePath+"views", ".html"),
		BodyLimit: 12 * 1024 * 1024, // attachments cap at 10 MiB plus form overhead
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			"admin": env.GetEnv("METRICS_PASSWORD", "test"),
		},
	}), monitor.New())

	// static files
	app.Static("/", basePath+"public/assets", fiber.Static{
		CacheDuration: 15 * time.Second,
		Compress:      true,
	})

	// SWAGGER / OPENAPI
	openAPICfg := swagger.Config{
		BasePath: "/docs/api/",
		FilePath: basePath + "public/docs/v1/openapi.yml",
		Path:     "v1",
	}
	app.Use(swagger.New(openAPICfg))

	// ROUTER
	router.InstallRouter(app, ctrl)

	return app
}
