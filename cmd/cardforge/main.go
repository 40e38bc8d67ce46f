package main

import (
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/cardforgehq/cardforge/app/controllers"
	"github.com/cardforgehq/cardforge/app/repository"
	"github.com/cardforgehq/cardforge/internal/pkg/cache"
	"github.com/cardforgehq/cardforge/internal/pkg/checkout"
	"github.com/cardforgehq/cardforge/internal/pkg/credits"
	"github.com/cardforgehq/cardforge/internal/pkg/database"
	"github.com/cardforgehq/cardforge/internal/pkg/env"
	"github.com/cardforgehq/cardforge/internal/pkg/falai"
	"github.com/cardforgehq/cardforge/internal/pkg/imagegen"
	"github.com/cardforgehq/cardforge/internal/pkg/router"
	"github.com/cardforgehq/cardforge/internal/pkg/session"
	"github.com/cardforgehq/cardforge/internal/pkg/storage"
)

func main() {
	app, err := NewApplication()
	if err != nil {
		log.Fatal(err)
	}
	log.Fatal(app.Listen(fmt.Sprintf("%s:%s",
		env.GetEnv("APP_HOST", "0.0.0.0"),
		env.GetEnv("APP_PORT", "4000"),
	)))
}

// NewApplication wires the whole service. Database and cache are required;
// payments, image generation and object storage are optional and only their
// endpoints fail when unconfigured.
func NewApplication() (*fiber.App, error) {
	env.SetupEnvFile()

	db, err := database.Connect()
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	redisClient, err := cache.New(cache.ConfigFromEnv())
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}

	repos := repository.NewFactory(db).GetRepositories()
	ledger := credits.NewLedger(redisClient)
	intents := checkout.NewIntentStore(redisClient)
	sessionStore := session.NewStore(redisClient)

	var checkoutSvc *checkout.Service
	var reconciler *checkout.Reconciler
	stripeCfg := checkout.ConfigFromEnv()
	if stripeCfg.IsEnabled() {
		checkoutSvc = checkout.NewService(checkout.NewStripePaymentClient(stripeCfg.SecretKey), intents)
		reconciler = checkout.NewReconciler(stripeCfg.WebhookSecret, intents, ledger, repos.Transaction, repos.WebhookEvent)
	} else {
		fiberlog.Warn("[App] STRIPE_SECRET_KEY missing, payments disabled")
	}

	var objectStore *storage.Client
	storageCfg := storage.ConfigFromEnv()
	if storageCfg.IsEnabled() {
		objectStore, err = storage.NewClient(storageCfg)
		if err != nil {
			return nil, fmt.Errorf("object storage: %w", err)
		}
	} else {
		fiberlog.Warn("[App] B2 credentials missing, object storage disabled")
	}

	var generator *imagegen.Service
	falCfg := falai.ConfigFromEnv()
	if falCfg.IsEnabled() && objectStore != nil {
		generator = imagegen.NewService(falai.NewClient(falCfg), objectStore, repos.Image, ledger)
	} else {
		fiberlog.Warn("[App] FAL_KEY or object storage missing, image generation disabled")
	}

	app := fiber.New(fiber.Config{
		AppName:   "cardforge",
		BodyLimit: 25 << 20,
	})

	app.Use(recover.New(), logger.New())

	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("METRICS_USER", "admin"): env.GetEnv("METRICS_PASSWORD", "admin"),
		},
	}), monitor.New())

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	var uploads imagegen.ObjectStore
	if objectStore != nil {
		uploads = objectStore
	}
	api := controllers.NewAPI(checkoutSvc, reconciler, ledger, generator, uploads, repos.Image, stripeCfg.PublicBaseURL)

	router.Install(app, router.NewApiRouter(api, sessionStore, repos.User))

	return app, nil
}
