package routes

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/features"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/bazaar-backend/internal/realtime"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers groups the HTTP handlers that live outside feature modules.
type Handlers struct {
	Auth       *handlers.AuthHandler
	Users      *handlers.UserHandler
	Health     *handlers.HealthHandler
	Webhook    *handlers.WebhookHandler
	Moderation *handlers.ModerationHandler
	Promotions *handlers.PromotionHandler
	Search     *handlers.SearchHandler
	Admin      *handlers.AdminHandler
	Realtime   *realtime.Handler
}

// Options tunes the router. Zero values fall back to production limits.
type Options struct {
	APIRequestsPerMinute  int
	AuthRequestsPerMinute int
}

func limit(max int) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:               max,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	})
}

func Setup(app *fiber.App, deps *features.Deps, h Handlers, modules []features.Module, opts Options) {
	if opts.APIRequestsPerMinute == 0 {
		opts.APIRequestsPerMinute = 60
	}
	if opts.AuthRequestsPerMinute == 0 {
		opts.AuthRequestsPerMinute = 10
	}

	app.Use(metrics.Middleware())
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// WebSocket upgrade authenticates itself from the query token or cookie.
	if h.Realtime != nil {
		app.Get("/ws", h.Realtime.Authenticate, h.Realtime.Serve())
	}

	api := app.Group("/api")

	// Stripe retries on failure; keep it outside the per-IP limiter.
	api.Post("/webhooks/stripe", h.Webhook.HandleStripe)

	api.Use(limit(opts.APIRequestsPerMinute))

	api.Get("/health", h.Health.Check)

	auth := api.Group("/auth")
	auth.Use(limit(opts.AuthRequestsPerMinute))
	auth.Post("/register", h.Auth.Register)
	auth.Post("/login", h.Auth.Login)
	auth.Post("/refresh", h.Auth.Refresh)
	auth.Post("/forgot-password", h.Auth.ForgotPassword)
	auth.Post("/reset-password", h.Auth.ResetPassword)
	auth.Post("/logout", deps.Auth, h.Auth.Logout)
	auth.Delete("/account", deps.Auth, h.Auth.DeleteAccount)

	users := api.Group("/users")
	users.Get("/me", deps.Auth, h.Users.Me)
	users.Put("/me", deps.Auth, h.Users.UpdateMe)
	users.Get("/:id", h.Users.Profile)

	api.Post("/reports", deps.Auth, h.Moderation.CreateReport)
	api.Get("/blocks", deps.Auth, h.Moderation.ListBlocks)
	api.Post("/blocks", deps.Auth, h.Moderation.BlockUser)
	api.Delete("/blocks/:id", deps.Auth, h.Moderation.UnblockUser)

	promotions := api.Group("/promotions")
	promotions.Get("/plans", h.Promotions.Plans)
	promotions.Post("/checkout", deps.Auth, h.Promotions.Checkout)
	promotions.Get("/mine", deps.Auth, h.Promotions.Mine)

	api.Get("/search", h.Search.Search)

	admin := api.Group("/admin", deps.Auth, middleware.AdminRequired(deps.DB, deps.Config))
	admin.Get("/stats", h.Admin.Stats)
	admin.Get("/users", h.Admin.ListUsers)
	admin.Put("/users/:id/ban", h.Admin.SetBanned)
	admin.Put("/users/:id/role", h.Admin.SetRole)
	admin.Get("/email-logs", h.Admin.EmailLogs)
	admin.Get("/reports", h.Moderation.ListReports)
	admin.Put("/reports/:id", h.Moderation.ActionReport)
	admin.Get("/promotions", h.Promotions.AdminList)

	for _, m := range modules {
		m.RegisterRoutes(api, deps)
		if am, ok := m.(features.AdminModule); ok {
			am.RegisterAdminRoutes(admin, deps)
		}
	}
}
