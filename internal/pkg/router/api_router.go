package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	fibersession "github.com/gofiber/fiber/v2/middleware/session"

	"github.com/cardforgehq/cardforge/app/controllers"
	"github.com/cardforgehq/cardforge/app/repository"
	"github.com/cardforgehq/cardforge/internal/pkg/middleware"
)

// ApiRouter wires the JSON API. The webhook endpoint is provider-facing and
// stays outside the identity middleware; everything else requires a resolved
// user.
type ApiRouter struct {
	api   *controllers.API
	store *fibersession.Store
	users repository.UserRepository
}

func NewApiRouter(api *controllers.API, store *fibersession.Store, users repository.UserRepository) *ApiRouter {
	return &ApiRouter{api: api, store: store, users: users}
}

func (h *ApiRouter) InstallRouter(app *fiber.App) {
	// Stripe signs the payload; signature verification is the auth here.
	app.Post("/webhook", h.api.HandleStripeWebhook)

	authed := app.Group("/",
		limiter.New(limiter.Config{Max: 60}),
		middleware.UserContext(h.store, h.users),
		middleware.RequireAPIAuth,
	)
	authed.Post("/checkout", h.api.HandleCreateCheckout)
	authed.Get("/credits", h.api.HandleGetCredits)
	authed.Post("/generate-image", h.api.HandleGenerateImage)
	authed.Post("/upload", h.api.HandleUploadImage)
	authed.Get("/images", h.api.HandleListImages)
}
