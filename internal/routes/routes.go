package routes

import (
	"github.com/colemurrin/pricewatch/internal/handlers"
	"github.com/colemurrin/pricewatch/internal/middleware"
	"github.com/go-chi/chi/v5"
)

// Handlers bundles everything route registration needs
type Handlers struct {
	Auth      *handlers.AuthHandler
	Users     *handlers.UserHandler
	Watchlist *handlers.WatchlistHandler
	Health    *handlers.HealthHandler
}

// Register mounts all API routes on the router. Auth flow endpoints get
// an extra per-IP rate limit on top of the OTP attempt counter; the
// watchlist and profile groups require a valid session.
func Register(r chi.Router, h Handlers, sessions middleware.SessionValidator, cookieName string) {
	r.Get("/health", h.Health.Health)
	r.Get("/ready", h.Health.Ready)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(middleware.RateLimitByIP(middleware.DefaultAuthRateLimit()))

			r.Post("/register", h.Auth.Register)
			r.Post("/verify-email", h.Auth.VerifyEmail)
			r.Post("/verify-phone", h.Auth.VerifyPhone)
			r.Post("/login", h.Auth.StartLogin)
			r.Post("/login/verify", h.Auth.VerifyLogin)
			r.Post("/logout", h.Auth.Logout)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSession(sessions, cookieName))

			r.Get("/users/me", h.Users.Me)

			r.Route("/watchlist", func(r chi.Router) {
				r.Post("/", h.Watchlist.Create)
				r.Get("/", h.Watchlist.List)
				r.Patch("/{itemID}", h.Watchlist.Update)
				r.Delete("/{itemID}", h.Watchlist.Delete)
				r.Get("/{itemID}/runs", h.Watchlist.ListRuns)
				r.Post("/{itemID}/check", h.Watchlist.Check)
			})
		})
	})
}
