/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging (zap)
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the depot frontend

ROUTE GROUPS:
  /api/depots/*      Depot stock, events, closings, reports, customers
  /api/categories/*  Crate categories
  /api/customers/*   Customer ledger
  /api/movements/*   Movement deletion
  /api/transfers/*   Transfers
  /api/scenarios/*   Demo scenarios (dev only)
  /metrics           Prometheus scrape endpoint
  /healthz           Liveness

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	AllowedOrigins []string

	// Gatherer backs /metrics. Nil skips the endpoint.
	Gatherer prometheus.Gatherer
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(requestLogger(h.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/depots", func(r chi.Router) {
			r.Get("/", h.ListDepots)
			r.Post("/", h.CreateDepot)

			r.Route("/{depotID}", func(r chi.Router) {
				r.Get("/", h.GetDepot)
				r.Get("/balances", h.GetDepotBalances)
				r.Get("/balances/{categoryID}", h.GetBalance)
				r.Get("/activity", h.GetActivity)
				r.Get("/dashboard", h.GetDashboard)
				r.Get("/report", h.GetReport)

				r.Get("/movements/{direction}", h.ListMovements)
				r.Post("/movements/{direction}", h.CreateMovement)
				r.Get("/transfers", h.ListTransfers)

				r.Get("/closings/{date}", h.GetClosing)
				r.Put("/closings/{date}", h.SaveClosing)
				r.Post("/closings/{date}/auto", h.AutoClose)

				r.Get("/customers", h.ListCustomers)
				r.Post("/customers", h.CreateCustomer)
			})
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", h.ListCategories)
			r.Post("/", h.CreateCategory)
		})

		r.Delete("/movements/{direction}/{id}", h.DeleteMovement)

		r.Route("/transfers", func(r chi.Router) {
			r.Post("/", h.CreateTransfer)
			r.Delete("/{id}", h.DeleteTransfer)
		})

		r.Route("/customers/{customerID}", func(r chi.Router) {
			r.Get("/", h.GetCustomer)
			r.Put("/status", h.UpdateCustomerStatus)
			r.Get("/balances", h.GetCustomerBalances)
			r.Get("/ledger/{categoryID}", h.GetLedgerHistory)
			r.Post("/ledger", h.RecordLedgerEntry)
			r.Post("/withdrawals/validate", h.ValidateWithdrawal)
		})

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}

// requestLogger logs one line per request through zap.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
