/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. requestLog: Structured request logging via zerolog
  4. CORS:       Cross-origin requests for any frontend

SECURITY NOTE:
  No authentication middleware. This serves a single-office bookkeeping
  tool on a trusted network.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/bajar/tradebook/logger"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLog)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
	}))

	r.Route("/api", func(r chi.Router) {
		// Movement routes
		r.Post("/transfers", h.RecordTransfer)
		r.Post("/payments", h.RecordPayment)
		r.Post("/allowances", h.RecordAllowance)

		// Seller routes
		r.Route("/sellers", func(r chi.Router) {
			r.Get("/", h.ListSellers)
			r.Post("/", h.UpsertSeller)
			r.Get("/{name}/balance", h.GetSellerBalance)
			r.Get("/{name}/statement", h.GetSellerStatement)
			r.Get("/{name}/arrears", h.GetSellerArrears)
		})

		// Transaction routes
		r.Route("/transactions", func(r chi.Router) {
			r.Put("/{id}/price", h.UpdateTransactionPrice)
			r.Delete("/{id}", h.DeleteTransaction)
		})

		// Client routes
		r.Route("/clients", func(r chi.Router) {
			r.Get("/", h.ListClients)
			r.Get("/{name}/unsettled", h.GetClientUnsettled)
			r.Get("/{name}/invoices", h.ListClientInvoices)
			r.Post("/{name}/settle", h.SettleClient)
		})

		// Invoice routes
		r.Get("/invoices/{id}/transfers", h.GetInvoiceTransfers)

		// Catalog routes
		r.Route("/items", func(r chi.Router) {
			r.Get("/", h.ListItems)
			r.Post("/", h.UpsertItem)
		})

		// Expense routes
		r.Route("/expenses", func(r chi.Router) {
			r.Get("/", h.ListExpenses)
			r.Post("/", h.CreateExpense)
		})

		// Report routes
		r.Get("/reports/daily", h.DailyReport)
	})

	return r
}

// requestLog logs each request with its status and duration.
func requestLog(next http.Handler) http.Handler {
	log := logger.WithComponent("http")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}
