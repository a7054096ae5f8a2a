package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/efreitasn/marketplace/internal/service"
	"github.com/go-chi/chi/v5"
)

// Services groups the services the router dispatches to.
type Services struct {
	Items    *service.ItemService
	Accounts *service.AccountService
	Listings *service.ListingService
	Webhooks *service.WebhookService
}

// NewRouter creates a chi router with all routes registered, request
// logging and Content-Type validation. guard may be nil, which disables
// Idempotency-Key checks.
func NewRouter(svcs Services, guard IdempotencyGuard, logger *slog.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(requestLogging(logger))
	r.Use(contentTypeJSON)

	itemH := NewItemHandler(svcs.Items, svcs.Listings)
	userH := NewUserHandler(svcs.Accounts, svcs.Listings)
	webhookH := NewWebhookHandler(svcs.Webhooks)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/items", func(r chi.Router) {
		r.Post("/", itemH.Create)
		r.Get("/", itemH.List)
		r.Get("/{item}", itemH.Get)
		r.Get("/{item}/quote", itemH.Quote)
		r.With(idempotent(guard, buyScope, logger)).Post("/{item}/buy", itemH.Buy)
	})

	r.Route("/users/{user}", func(r chi.Router) {
		r.Get("/dashboard", userH.Dashboard)
		r.Post("/wallet/credit", userH.Credit)
		r.Post("/wallet/debit", userH.Debit)
		r.Post("/inventory/{item}", userH.Grant)
		r.Post("/inventory/{item}/sell", userH.Sell)
		r.Delete("/listings/{listing_id}", userH.CancelListing)
		r.Post("/webhooks", webhookH.Upsert)
		r.Get("/webhooks", webhookH.List)
		r.Delete("/webhooks/{webhook_id}", webhookH.Delete)
	})

	return r
}

// requestLogging logs each request's method, path, status and duration.
func requestLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

// contentTypeJSON rejects POST, PUT and PATCH requests whose Content-Type
// is not application/json.
func contentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if ct == "" || !strings.HasPrefix(ct, "application/json") {
				WriteError(w, http.StatusBadRequest, "invalid_request",
					"Content-Type must be application/json")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
