package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/marketplace/internal/domain"
)

const idempotencyHeader = "Idempotency-Key"

// IdempotencyGuard remembers request keys. See idempotency.Guard.
type IdempotencyGuard interface {
	Claim(ctx context.Context, scope, key string) (bool, error)
	Release(ctx context.Context, scope, key string) error
}

// scopeFunc names the namespace a request's Idempotency-Key lives in.
type scopeFunc func(r *http.Request) (string, error)

// buyScope keys market buys by buyer and item, so two users (or one user
// buying two items) may reuse the same key. The body is restored for the
// handler; a malformed body yields an empty user and is rejected there.
func buyScope(r *http.Request) (string, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return "", err
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	var req struct {
		User string `json:"user"`
	}
	_ = json.Unmarshal(body, &req)
	return "buy:" + req.User + ":" + chi.URLParam(r, "item"), nil
}

// idempotent rejects a repeated Idempotency-Key within the request's scope
// with 409. Requests without the header pass through. A key whose request
// did not succeed is released so the client can retry it.
func idempotent(guard IdempotencyGuard, scopeOf scopeFunc, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(idempotencyHeader)
			if guard == nil || key == "" {
				next.ServeHTTP(w, r)
				return
			}
			if len(key) > 128 {
				WriteError(w, http.StatusBadRequest, "validation_error", "Idempotency-Key must be at most 128 characters")
				return
			}

			scope, err := scopeOf(r)
			if err != nil {
				WriteError(w, http.StatusBadRequest, "invalid_request", "Request body could not be read")
				return
			}

			ok, err := guard.Claim(r.Context(), scope, key)
			if err != nil {
				logger.Error("idempotency claim failed", slog.String("scope", scope), slog.String("error", err.Error()))
				mapError(w, err)
				return
			}
			if !ok {
				mapError(w, domain.ErrDuplicateRequest)
				return
			}

			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			if ww.status < 300 {
				return
			}
			if err := guard.Release(context.WithoutCancel(r.Context()), scope, key); err != nil {
				logger.Warn("idempotency release failed", slog.String("scope", scope), slog.String("error", err.Error()))
			}
		})
	}
}
