package handler

import (
	"net/http"

	"github.com/efreitasn/marketplace/internal/domain"
	"github.com/efreitasn/marketplace/internal/service"
	"github.com/go-chi/chi/v5"
)

// WebhookHandler handles HTTP requests for webhook endpoints.
type WebhookHandler struct {
	webhookSvc *service.WebhookService
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(webhookSvc *service.WebhookService) *WebhookHandler {
	return &WebhookHandler{webhookSvc: webhookSvc}
}

type upsertWebhookRequest struct {
	URL    string   `json:"url"`
	Events []string `json:"events"`
}

type webhookResponse struct {
	WebhookID string `json:"webhook_id"`
	User      string `json:"user"`
	Event     string `json:"event"`
	URL       string `json:"url"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type webhookListResponse struct {
	Webhooks []webhookResponse `json:"webhooks"`
}

// Upsert handles POST /users/{user}/webhooks.
func (h *WebhookHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req upsertWebhookRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	webhooks, anyCreated, err := h.webhookSvc.Upsert(service.UpsertWebhookRequest{
		User:   chi.URLParam(r, "user"),
		URL:    req.URL,
		Events: req.Events,
	})
	if err != nil {
		mapError(w, err)
		return
	}

	status := http.StatusOK
	if anyCreated {
		status = http.StatusCreated
	}
	WriteJSON(w, status, webhookListResponse{Webhooks: buildWebhookResponses(webhooks)})
}

// List handles GET /users/{user}/webhooks.
func (h *WebhookHandler) List(w http.ResponseWriter, r *http.Request) {
	webhooks, err := h.webhookSvc.List(chi.URLParam(r, "user"))
	if err != nil {
		mapError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, webhookListResponse{Webhooks: buildWebhookResponses(webhooks)})
}

// Delete handles DELETE /users/{user}/webhooks/{webhook_id}.
func (h *WebhookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.webhookSvc.Delete(chi.URLParam(r, "user"), chi.URLParam(r, "webhook_id")); err != nil {
		mapError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func buildWebhookResponses(webhooks []domain.Webhook) []webhookResponse {
	result := make([]webhookResponse, len(webhooks))
	for i, wh := range webhooks {
		result[i] = webhookResponse{
			WebhookID: wh.WebhookID,
			User:      wh.User,
			Event:     wh.Event,
			URL:       wh.URL,
			CreatedAt: formatTime(wh.CreatedAt),
			UpdatedAt: formatTime(wh.UpdatedAt),
		}
	}
	return result
}
