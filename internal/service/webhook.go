package service

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/efreitasn/marketplace/internal/domain"
	"github.com/efreitasn/marketplace/internal/store"
	"github.com/google/uuid"
)

var validWebhookEvents = map[string]bool{
	domain.EventListingFilled:    true,
	domain.EventListingCancelled: true,
}

// UpsertWebhookRequest represents the input for webhook registration.
type UpsertWebhookRequest struct {
	User   string
	URL    string
	Events []string
}

// WebhookService handles webhook CRUD and event dispatch.
type WebhookService struct {
	store    *store.WebhookStore
	client   *http.Client
	logger   *slog.Logger
	inflight sync.WaitGroup
}

// NewWebhookService creates a new WebhookService whose deliveries time
// out after webhookTimeout.
func NewWebhookService(webhookStore *store.WebhookStore, webhookTimeout time.Duration, logger *slog.Logger) *WebhookService {
	return &WebhookService{
		store:  webhookStore,
		client: &http.Client{Timeout: webhookTimeout},
		logger: logger,
	}
}

// Upsert validates the request and creates or updates one subscription per
// event. It reports whether any subscription was newly created.
func (s *WebhookService) Upsert(req UpsertWebhookRequest) ([]domain.Webhook, bool, error) {
	if err := validateName("user", req.User); err != nil {
		return nil, false, err
	}

	if req.URL == "" {
		return nil, false, &domain.ValidationError{Message: "url is required"}
	}
	if len(req.URL) > 2048 {
		return nil, false, &domain.ValidationError{Message: "url must be at most 2048 characters"}
	}
	parsed, err := url.ParseRequestURI(req.URL)
	if err != nil || !parsed.IsAbs() {
		return nil, false, &domain.ValidationError{Message: "url must be a valid absolute URL"}
	}
	if parsed.Scheme != "https" {
		return nil, false, &domain.ValidationError{Message: "url must use https scheme"}
	}

	if len(req.Events) == 0 {
		return nil, false, &domain.ValidationError{Message: "events must be a non-empty array"}
	}
	seen := make(map[string]bool, len(req.Events))
	events := make([]string, 0, len(req.Events))
	for _, event := range req.Events {
		if !validWebhookEvents[event] {
			return nil, false, &domain.ValidationError{
				Message: "Unknown event type: " + event + ". Must be one of: listing.filled, listing.cancelled",
			}
		}
		if !seen[event] {
			seen[event] = true
			events = append(events, event)
		}
	}

	now := time.Now().UTC().Truncate(time.Second)
	anyCreated := false
	webhooks := make([]domain.Webhook, 0, len(events))
	for _, event := range events {
		stored, created := s.store.Upsert(&domain.Webhook{
			WebhookID: uuid.New().String(),
			User:      req.User,
			Event:     event,
			URL:       req.URL,
			CreatedAt: now,
			UpdatedAt: now,
		})
		anyCreated = anyCreated || created
		webhooks = append(webhooks, stored)
	}
	return webhooks, anyCreated, nil
}

// List returns the user's subscriptions ordered by event.
func (s *WebhookService) List(user string) ([]domain.Webhook, error) {
	if err := validateName("user", user); err != nil {
		return nil, err
	}
	return s.store.ListByUser(user), nil
}

// Delete removes one of the user's subscriptions. A webhook owned by
// someone else fails with domain.ErrNotWebhookOwner.
func (s *WebhookService) Delete(user, webhookID string) error {
	if err := validateName("user", user); err != nil {
		return err
	}
	wh, err := s.store.Get(webhookID)
	if err != nil {
		return err
	}
	if wh.User != user {
		return domain.ErrNotWebhookOwner
	}
	return s.store.Delete(webhookID)
}

type webhookPayload struct {
	Event     string `json:"event"`
	Timestamp string `json:"timestamp"`
	Data      any    `json:"data"`
}

type listingFilledData struct {
	ListingID      int64  `json:"listing_id"`
	Item           string `json:"item"`
	Seller         string `json:"seller"`
	Buyer          string `json:"buyer"`
	Count          int64  `json:"count"`
	Price          int64  `json:"price"`
	CoinsReceived  int64  `json:"coins_received"`
	RemainingCount int64  `json:"remaining_count"`
}

type listingCancelledData struct {
	ListingID int64  `json:"listing_id"`
	Item      string `json:"item"`
	User      string `json:"user"`
	Direction string `json:"direction"`
	Count     int64  `json:"count"`
	Price     int64  `json:"price"`
}

// DispatchListingFilled notifies the seller of a fill. Delivery happens in
// the background and failures are only logged.
func (s *WebhookService) DispatchListingFilled(fill *domain.Fill) {
	wh, ok := s.store.Lookup(fill.Seller, domain.EventListingFilled)
	if !ok {
		return
	}
	s.send(wh, listingFilledData{
		ListingID:      fill.ListingID,
		Item:           fill.Item,
		Seller:         fill.Seller,
		Buyer:          fill.Buyer,
		Count:          fill.Count,
		Price:          fill.Price,
		CoinsReceived:  fill.Cost(),
		RemainingCount: fill.Remaining,
	})
}

// DispatchListingCancelled notifies the submitter of a cancelled listing.
func (s *WebhookService) DispatchListingCancelled(l *domain.Listing) {
	wh, ok := s.store.Lookup(l.Submitter, domain.EventListingCancelled)
	if !ok {
		return
	}
	s.send(wh, listingCancelledData{
		ListingID: l.ID,
		Item:      l.Item,
		User:      l.Submitter,
		Direction: string(l.Direction),
		Count:     l.Count,
		Price:     l.Price,
	})
}

func (s *WebhookService) send(wh domain.Webhook, data any) {
	payload := webhookPayload{
		Event:     wh.Event,
		Timestamp: time.Now().UTC().Truncate(time.Second).Format(time.RFC3339),
		Data:      data,
	}
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		s.deliver(wh, payload)
	}()
}

// Wait blocks until every delivery started so far has finished or ctx is
// done.
func (s *WebhookService) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *WebhookService) deliver(wh domain.Webhook, payload webhookPayload) {
	body, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("encode webhook payload", slog.String("webhook_id", wh.WebhookID), slog.String("error", err.Error()))
		return
	}

	req, err := http.NewRequest(http.MethodPost, wh.URL, bytes.NewReader(body))
	if err != nil {
		s.logger.Warn("build webhook request", slog.String("webhook_id", wh.WebhookID), slog.String("error", err.Error()))
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Delivery-Id", uuid.New().String())
	req.Header.Set("X-Webhook-Id", wh.WebhookID)
	req.Header.Set("X-Event-Type", wh.Event)

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("webhook delivery failed",
			slog.String("webhook_id", wh.WebhookID),
			slog.String("event", wh.Event),
			slog.String("error", err.Error()),
		)
		return
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		s.logger.Warn("webhook rejected",
			slog.String("webhook_id", wh.WebhookID),
			slog.String("event", wh.Event),
			slog.Int("status", resp.StatusCode),
		)
	}
}
