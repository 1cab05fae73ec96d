package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/pratik-mahalle/pullrunner/internal/api/handlers"
	"github.com/pratik-mahalle/pullrunner/internal/api/middleware"
	"github.com/pratik-mahalle/pullrunner/internal/api/session"
	"github.com/pratik-mahalle/pullrunner/internal/config"
	"github.com/pratik-mahalle/pullrunner/internal/controller"
	"github.com/pratik-mahalle/pullrunner/internal/pkg/errors"
	"github.com/pratik-mahalle/pullrunner/internal/pkg/logger"
	"github.com/pratik-mahalle/pullrunner/internal/pkg/metrics"
	"github.com/pratik-mahalle/pullrunner/internal/pkg/utils"
)

// Handlers groups the dashboard's handlers
type Handlers struct {
	Health *handlers.HealthHandler
	Auth   *handlers.AuthHandler
	Pages  *handlers.PageHandler
}

// Deps is what the router wires together
type Deps struct {
	Sessions *session.Store
	Limiter  *middleware.RateLimiter
	Handlers *Handlers
}

// listRoutes are the pages whose records can be added, deleted and checked
var listRoutes = []string{controller.RouteRepos, controller.RouteServers}

// New builds the dashboard router
func New(cfg *config.Config, log *logger.Logger, d Deps) http.Handler {
	r := chi.NewRouter()
	h := d.Handlers

	// Global middleware
	r.Use(middleware.EscapedPath)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID())
	r.Use(metrics.Middleware)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recovery(log))
	r.Use(middleware.SecurityHeaders(cfg.Session.SecureCookies))
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	r.Use(d.Limiter.Handler)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteError(w, errors.NotFound("Page"))
	})

	// Probes and scraping
	r.Get("/healthz", h.Health.Healthz)
	r.Get("/readyz", h.Health.Readyz)
	r.Handle("/metrics", metrics.Handler())

	// Browser pages
	r.Group(func(r chi.Router) {
		r.Use(middleware.Sessions(d.Sessions, cfg.Session.SecureCookies))
		r.Use(middleware.CSRF)

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, controller.RouteRepos, http.StatusSeeOther)
		})
		r.Get("/login", h.Auth.LoginPage)
		r.Post("/login", h.Auth.Login)
		r.Get("/logout", h.Auth.Logout)

		for _, route := range []string{
			controller.RouteRepos,
			controller.RouteServers,
			controller.RouteCommands,
			controller.RouteLogs,
			controller.RouteSettings,
		} {
			r.Get(route, h.Pages.View(route))
		}
		r.Get(controller.RouteCommands+"/secrets/{id}", h.Pages.Secrets)

		// Actions
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireLogin)

			for _, route := range listRoutes {
				r.Post(route+"/delete/{id}", h.Pages.Delete(route))
				r.Post(route+"/check", h.Pages.Check(route))
			}
			r.Post(controller.RouteRepos+"/add", h.Pages.AddRepo)
			r.Post(controller.RouteServers+"/add", h.Pages.AddServer)

			cmds := controller.RouteCommands
			r.Post(cmds+"/add", h.Pages.AddCommand)
			r.Post(cmds+"/delete/{id}", h.Pages.Delete(cmds))
			r.Post(cmds+"/run/{id}", h.Pages.Run)
			r.Post(cmds+"/secrets/{id}", h.Pages.AddSecret)
			r.Post(cmds+"/secrets/{id}/delete/{secret}", h.Pages.DeleteSecret)

			r.Post(controller.RouteSettings, h.Pages.UpdateSettings)
		})
	})

	return r
}
