package http

import (
	"net/http"

	"github.com/atinyakov/ReportDesk/internal/middleware"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// RouterOptions collects what NewRouter needs besides the handlers.
type RouterOptions struct {
	// Verifier checks bearer tokens on the admin routes.
	Verifier middleware.TokenVerifier
	// ExposeErrors adds panic messages to 500 responses (non-production only).
	ExposeErrors bool
	Logger       *zap.Logger
}

// NewRouter constructs and returns the HTTP handler that serves the report
// API and stored files.
//
// Routes:
//
//	GET    /api/health                   → health.Health
//	GET    /api/reports/{reportNumber}   → reports.Lookup
//	POST   /api/admin/login              → auth.Login
//	GET    /api/admin/stats              → reports.Stats       (bearer)
//	GET    /api/admin/reports            → reports.List        (bearer)
//	GET    /api/admin/reports/{id}       → reports.Get         (bearer)
//	POST   /api/admin/reports            → reports.Create      (bearer)
//	PUT    /api/admin/reports/{id}       → reports.Update      (bearer)
//	DELETE /api/admin/reports/{id}       → reports.Delete      (bearer)
//	POST   /api/admin/upload             → uploads.Upload      (bearer)
//	GET    /uploads/*                    → uploads.Serve
//
// Middleware chain (applied in order):
//  1. RequestID, RealIP
//  2. WithRequestLogging(logger)
//  3. Recoverer: panics become 500 {error, message?}
func NewRouter(
	health *HealthHandler,
	auth *AuthHandler,
	reports *ReportHandler,
	uploads *UploadHandler,
	opts RouterOptions,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.WithRequestLogging(opts.Logger))
	r.Use(middleware.Recoverer(opts.Logger, opts.ExposeErrors))

	jsonOnly := chiMiddleware.AllowContentType("application/json")

	r.Route("/api", func(r chi.Router) {
		// Public endpoints
		r.Get("/health", health.Health)
		r.Get("/reports/{reportNumber}", reports.Lookup)
		r.With(jsonOnly).Post("/admin/login", auth.Login)

		// Protected group: requires a valid bearer token
		r.Group(func(r chi.Router) {
			r.Use(middleware.BearerAuth(opts.Verifier))

			r.Get("/admin/stats", reports.Stats)
			r.Get("/admin/reports", reports.List)
			r.Get("/admin/reports/{id}", reports.Get)
			r.With(jsonOnly).Post("/admin/reports", reports.Create)
			r.With(jsonOnly).Put("/admin/reports/{id}", reports.Update)
			r.Delete("/admin/reports/{id}", reports.Delete)
			r.Post("/admin/upload", uploads.Upload)
		})
	})

	r.Get("/uploads/*", uploads.Serve)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return r
}
