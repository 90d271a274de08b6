/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/assignments/*  Payee rate configuration
  /api/paystubs       Paystub ingestion (builds earning records)
  /api/earnings/*     Earning record queries
  /api/payments/*     Allocation preview, recording, deletion
  /api/payees/*       Per-payee earnings summary

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.
  Deploy behind an authenticating proxy.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Assignment routes
		r.Route("/assignments", func(r chi.Router) {
			r.Post("/", h.CreateAssignment)
			r.Get("/{id}", h.GetAssignment)
			r.Post("/{id}/end", h.EndAssignment)
		})

		// Paystub ingestion
		r.Post("/paystubs", h.IngestPaystub)

		// Earning record routes
		r.Route("/earnings", func(r chi.Router) {
			r.Get("/", h.ListEarnings)
			r.Get("/{id}", h.GetEarning)
		})

		// Payment routes
		r.Route("/payments", func(r chi.Router) {
			r.Get("/", h.ListPayments)
			r.Post("/", h.RecordPayment)
			r.Get("/preview-allocation", h.PreviewAllocation)
			r.Get("/{id}", h.GetPayment)
			r.Delete("/{id}", h.DeletePayment)
		})

		// Payee summary routes
		r.Route("/payees", func(r chi.Router) {
			r.Get("/{kind}/{id}/summary", h.GetSummary)
			r.Get("/{kind}/{id}/earnings", h.ListPayeeEarnings)
		})
	})

	return r
}
