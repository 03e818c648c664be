package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"zylorb/internal/config"
	"zylorb/internal/handler"
	"zylorb/internal/metrics"
	"zylorb/internal/middleware"
)

type Handlers struct {
	Auth   *handler.AuthHandler
	Health *handler.HealthHandler
}

// New mounts the gateway. Middleware order matters: preflight requests are
// answered before rate limiting, and the fixed window counts every other
// request including the ones the credential throttle later rejects.
func New(
	cfg *config.Config,
	authMiddleware *middleware.AuthMiddleware,
	rateLimitMiddleware *middleware.RateLimitMiddleware,
	m *metrics.Metrics,
	h Handlers,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging(cfg.TrustProxyHeaders))
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.Preflight)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Metrics(m))
	r.Use(rateLimitMiddleware.Handler)

	if m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}

	r.Route("/api", func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))

		api.Get("/health", h.Health.Health)
		api.Post("/register", h.Auth.Register)
		api.Post("/login", h.Auth.Login)

		api.Group(func(private chi.Router) {
			private.Use(authMiddleware.RequireAuth)
			private.Get("/me", h.Auth.Me)
			private.Patch("/me", h.Auth.UpdateMe)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Route not found","code":"NOT_FOUND"}`))
	})

	return r
}

// CredentialPaths are the routes the per-client credential throttle covers.
var CredentialPaths = []string{"/api/register", "/api/login"}
