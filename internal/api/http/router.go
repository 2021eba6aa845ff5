package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/hallgren-labs/content-governance/internal/api/guard"
	"github.com/hallgren-labs/content-governance/internal/api/http/handlers"
	"github.com/hallgren-labs/content-governance/internal/config"
	"github.com/hallgren-labs/content-governance/internal/governance/ratelimit"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health   *handlers.HealthHandler
	Sessions *handlers.SessionHandler
	Content  *handlers.ContentHandler
	Admin    *handlers.AdminHandler
	Guard    *guard.Guard
	Classes  config.GovernanceConfig
}

// RegisterRoutes wires HTTP routes, each behind its governance guard.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	credentialGuard := cfg.Guard.Protect(guard.GuardOptions{
		Rate: rateConfig(cfg.Classes.CredentialIssuance),
	})
	authGroup.Post("/register", credentialGuard, cfg.Sessions.Register)
	authGroup.Post("/login", credentialGuard, cfg.Sessions.Login)

	content := app.Group("/content")
	content.Post("", cfg.Guard.Protect(guard.GuardOptions{
		Rate:     rateConfig(cfg.Classes.ContentCreation),
		Creation: true,
	}), cfg.Content.Create)
	content.Get("/:id", cfg.Guard.Protect(guard.GuardOptions{
		Rate: rateConfig(cfg.Classes.Read),
	}), cfg.Content.Get)
	mutationGuard := cfg.Guard.Protect(guard.GuardOptions{
		Rate:         rateConfig(cfg.Classes.ContentCreation),
		LoadResource: true,
	})
	content.Patch("/:id", mutationGuard, cfg.Content.Update)
	content.Delete("/:id", mutationGuard, cfg.Content.Delete)

	adminGroup := app.Group("/admin")
	adminGuard := cfg.Guard.Protect(guard.GuardOptions{
		Rate:         rateConfig(cfg.Classes.AdminOps),
		RequireAdmin: true,
	})
	adminGroup.Get("/settings", adminGuard, cfg.Admin.GetSettings)
	adminGroup.Put("/settings", adminGuard, cfg.Admin.UpdateSettings)
}

func rateConfig(class config.RateClass) ratelimit.Config {
	return ratelimit.Config{Name: class.Name, Window: class.Window(), MaxRequests: class.MaxRequests}
}
