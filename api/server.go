/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request, echoed in error logs
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests from the dashboard UI

ROUTE GROUPS:
  /api/cumplimiento/*   Dashboard queries (read-only)
  /api/scheme-types     Reference data
  /healthz              Liveness
  /metrics              Prometheus (when a handler is supplied)

SECURITY NOTE:
  No authentication middleware. Every route is a read; deploy behind the
  same network boundary as the dashboard UI.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	// AllowedOrigins for CORS. Empty allows none.
	AllowedOrigins []string

	// Metrics, when set, is mounted at /metrics.
	Metrics http.Handler
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/cumplimiento", func(r chi.Router) {
			r.Get("/", h.ListRecords)
			r.Get("/filters", h.GetFilterOptions)
			r.Get("/stats", h.GetStats)
			r.Get("/table", h.GetTablePage)
			r.Get("/export.csv", h.ExportCSV)
		})

		r.Get("/scheme-types", h.ListSchemeTypes)
	})

	r.Get("/healthz", h.Health)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	return r
}
