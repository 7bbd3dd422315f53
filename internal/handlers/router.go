package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"classroomhub/internal/metrics"
	"classroomhub/internal/security"
	"classroomhub/internal/service"
)

// Deps collects everything the HTTP layer needs
type Deps struct {
	Auth      *service.AuthService
	Registry  *service.RegistryService
	Guardians *service.GuardianService
	Calendar  *service.CalendarService
	Messages  *service.MessageService
	Dashboard *service.DashboardService

	CSRF         *security.CSRFGenerator
	LoginLimiter *security.RateLimiter
	Metrics      *metrics.Metrics
	Startup      *StartupStatus
	DB           Pinger
	CORSOrigins  []string
	TrustProxy   bool
	Logger       *zap.Logger
}

// NewRouter wires every handler onto a chi router
func NewRouter(d Deps) http.Handler {
	mw := NewMiddleware(d.Auth, d.CSRF, d.Logger)
	authHandler := NewAuthHandler(d.Auth, d.CSRF, d.Metrics, d.Logger)
	calendarHandler := NewCalendarHandler(d.Calendar, d.Metrics, d.Logger)
	messageHandler := NewMessageHandler(d.Messages, d.Metrics, d.Logger)
	dashboardHandler := NewDashboardHandler(d.Dashboard, d.Auth, d.Guardians, d.Registry, d.Logger)
	adminHandler := NewAdminHandler(d.Registry, d.Guardians, d.Auth, d.Logger)
	healthHandler := NewHealthHandler(d.Startup, d.DB)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if d.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(Logging(d.Logger))
	r.Use(middleware.Recoverer)
	r.Use(d.Metrics.Middleware)
	r.Use(CORS(d.CORSOrigins))

	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Handle("/metrics", d.Metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(RateLimit(d.LoginLimiter, d.Logger))
				authHandler.RegisterPublicRoutes(r)
			})
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireAuth)
				r.Use(mw.RequireCSRF)
				authHandler.RegisterRoutes(r)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireAuth)
			r.Use(mw.RequireCSRF)

			dashboardHandler.RegisterRoutes(r)
			calendarHandler.RegisterRoutes(r)
			messageHandler.RegisterRoutes(r)

			r.Route("/admin", func(r chi.Router) {
				r.Use(mw.RequireAdmin)
				adminHandler.RegisterRoutes(r)
			})
		})
	})

	return r
}
