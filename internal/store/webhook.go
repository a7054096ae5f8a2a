package store

import (
	"slices"
	"strings"
	"sync"

	"github.com/efreitasn/marketplace/internal/domain"
)

// WebhookStore keeps webhook subscriptions in memory. A user holds at most
// one subscription per event.
type WebhookStore struct {
	mu     sync.RWMutex
	byID   map[string]*domain.Webhook
	byUser map[string]map[string]*domain.Webhook // user → event → webhook
}

// NewWebhookStore creates an empty WebhookStore.
func NewWebhookStore() *WebhookStore {
	return &WebhookStore{
		byID:   make(map[string]*domain.Webhook),
		byUser: make(map[string]map[string]*domain.Webhook),
	}
}

// Upsert stores w unless the user already subscribes to w.Event, in which
// case the existing subscription takes w's URL and keeps its ID. It returns
// the stored subscription and whether it was newly created.
func (s *WebhookStore) Upsert(w *domain.Webhook) (domain.Webhook, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.byUser[w.User][w.Event]; ok {
		if existing.URL != w.URL {
			existing.URL = w.URL
			existing.UpdatedAt = w.UpdatedAt
		}
		return *existing, false
	}

	stored := *w
	s.byID[stored.WebhookID] = &stored
	if s.byUser[stored.User] == nil {
		s.byUser[stored.User] = make(map[string]*domain.Webhook)
	}
	s.byUser[stored.User][stored.Event] = &stored
	return stored, true
}

func (s *WebhookStore) Get(id string) (domain.Webhook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.byID[id]
	if !ok {
		return domain.Webhook{}, domain.ErrWebhookNotFound
	}
	return *w, nil
}

// ListByUser returns the user's subscriptions ordered by event name.
func (s *WebhookStore) ListByUser(user string) []domain.Webhook {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Webhook, 0, len(s.byUser[user]))
	for _, w := range s.byUser[user] {
		result = append(result, *w)
	}
	slices.SortFunc(result, func(a, b domain.Webhook) int {
		return strings.Compare(a.Event, b.Event)
	})
	return result
}

// Lookup returns the user's subscription to event, if any.
func (s *WebhookStore) Lookup(user, event string) (domain.Webhook, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.byUser[user][event]
	if !ok {
		return domain.Webhook{}, false
	}
	return *w, true
}

func (s *WebhookStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.byID[id]
	if !ok {
		return domain.ErrWebhookNotFound
	}
	delete(s.byID, id)

	events := s.byUser[w.User]
	delete(events, w.Event)
	if len(events) == 0 {
		delete(s.byUser, w.User)
	}
	return nil
}
