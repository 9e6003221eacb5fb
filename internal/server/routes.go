package server

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	v1 "github.com/citylaw/docket/internal/api/v1"
	"github.com/citylaw/docket/internal/api/ws"
	"github.com/citylaw/docket/internal/config"
	"github.com/citylaw/docket/internal/server/middleware"
)

const apiTitle = "Docket API"

func humaConfig(title string, docs bool) huma.Config {
	c := huma.DefaultConfig(title, "1.0.0")
	c.Servers = []*huma.Server{{URL: "/api/v1"}}
	if !docs {
		// Only the main group serves the OpenAPI document and docs UI.
		c.OpenAPIPath = ""
		c.DocsPath = ""
		c.SchemasPath = ""
	}
	return c
}

// mountAPI registers three groups under /api/v1: credential exchange without
// authentication, the authenticated API, and admin account management.
func mountAPI(ctx context.Context, r chi.Router, cfg *config.Config, deps Deps) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(ctx, cfg.RateLimit.AuthRPS, cfg.RateLimit.AuthBurst))

		api := humachi.New(r, humaConfig(apiTitle+" (auth)", false))
		v1.RegisterAuthRoutes(api, deps.Auth)
		if deps.SSO != nil {
			v1.RegisterSSORoutes(api, deps.SSO)
		}
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT.Secret))
		r.Use(middleware.RequireActiveUser(deps.Store.Users()))
		r.Use(middleware.RateLimit(ctx, cfg.RateLimit.RPS, cfg.RateLimit.Burst))

		api := humachi.New(r, humaConfig(apiTitle, true))
		registerAPIRoutes(api, deps)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin())

			admin := humachi.New(r, humaConfig(apiTitle+" (admin)", false))
			v1.RegisterAdminRoutes(admin, deps.Auth)
		})
	})
}

func registerAPIRoutes(api huma.API, deps Deps) {
	v1.RegisterTaskRoutes(api, deps.Tasks)
	v1.RegisterTemplateRoutes(api, deps.Tasks)
	v1.RegisterMatterRoutes(api, deps.Store)
	v1.RegisterNotificationRoutes(api, deps.Store)
	v1.RegisterProfileRoutes(api, deps.Store)
}

func mountWS(r chi.Router, cfg *config.Config, deps Deps, hub *ws.Hub) {
	r.Use(middleware.Auth(cfg.JWT.Secret))
	r.Use(middleware.RequireActiveUser(deps.Store.Users()))
	r.Get("/notifications", hub.ServeNotifications)
}
