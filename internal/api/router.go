package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/emart-ops/emart-core/internal/auth"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Auth endpoints (no auth required)
		r.Route("/auth/token", func(r chi.Router) {
			r.Post("/login", s.handleLogin)
			r.Post("/signup", s.handleSignup)

			// Session introspection and teardown require a valid token
			r.Group(func(r chi.Router) {
				r.Use(s.authMiddleware)
				r.Get("/me", s.handleMe)
				r.Post("/logout", s.handleLogout)
			})
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			// WS ticket requires authentication so alert feeds carry identity
			r.Post("/auth/ws-ticket", s.handleWSTicket)

			// Catalogue endpoints
			r.Route("/inventory", func(r chi.Router) {
				r.Get("/", s.handleListItems)
				r.Post("/", s.handleCreateItem)
				r.Get("/expiring", s.handleExpiringItems)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetItem)
					r.Patch("/", s.handleUpdateItem)
					r.With(s.requireRole(auth.RoleManager)).Delete("/", s.handleDeleteItem)
				})
			})

			// Stock endpoints
			r.Route("/stock", func(r chi.Router) {
				r.Get("/", s.handleListStockLevels)
				r.Get("/alerts", s.handleStockAlerts)

				r.Route("/{itemID}", func(r chi.Router) {
					r.Get("/", s.handleGetStockLevel)
					r.Get("/history", s.handleStockHistory)
					r.Post("/adjust", s.handleAdjustStock)
				})
			})

			// Threshold endpoints (reads for everyone, writes manager-only)
			r.Route("/thresholds", func(r chi.Router) {
				r.Get("/", s.handleListThresholds)

				r.Group(func(r chi.Router) {
					r.Use(s.requireRole(auth.RoleManager))
					r.Put("/{itemID}", s.handleSetThreshold)
					r.Delete("/{itemID}", s.handleRemoveThreshold)
				})
			})

			// Invoice endpoints
			r.Route("/invoices", func(r chi.Router) {
				r.Get("/", s.handleListInvoices)
				r.Post("/", s.handleCreateInvoice)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetInvoice)
					r.Post("/finalise", s.handleFinaliseInvoice)
					r.Post("/cancel", s.handleCancelInvoice)
				})
			})

			// Maker/checker submission endpoints
			r.Route("/submissions", func(r chi.Router) {
				r.Post("/", s.handleCreateSubmission)
				r.Get("/mine", s.handleMySubmissions)

				r.Group(func(r chi.Router) {
					r.Use(s.requireRole(auth.RoleChecker, auth.RoleManager))
					r.Get("/pending", s.handlePendingSubmissions)
					r.Post("/{id}/approve", s.handleApproveSubmission)
					r.Post("/{id}/reject", s.handleRejectSubmission)
				})

				r.Get("/{id}", s.handleGetSubmission)
			})

			// Audit trail (manager-only)
			r.With(s.requireRole(auth.RoleManager)).Get("/audit", s.handleListAudit)

			// WebSocket alert feed (auth via ticket, validated in handler)
			r.Get("/ws", s.handleWebSocket)
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
