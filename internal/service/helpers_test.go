package service

import (
	"io"
	"log/slog"
	"sync"

	"github.com/efreitasn/marketplace/internal/domain"
	"github.com/efreitasn/marketplace/internal/engine"
	"github.com/efreitasn/marketplace/internal/store"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type recordingNotifier struct {
	mu        sync.Mutex
	fills     []domain.Fill
	cancelled []domain.Listing
}

func (n *recordingNotifier) DispatchListingFilled(fill *domain.Fill) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.fills = append(n.fills, *fill)
}

func (n *recordingNotifier) DispatchListingCancelled(l *domain.Listing) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cancelled = append(n.cancelled, *l)
}

type testServices struct {
	items    *ItemService
	accounts *AccountService
	listings *ListingService
	notifier *recordingNotifier
}

func newTestServices() *testServices {
	s := store.NewMemoryStore()
	e := engine.New()
	n := &recordingNotifier{}
	return &testServices{
		items:    NewItemService(s, e),
		accounts: NewAccountService(s, e, discardLogger),
		listings: NewListingService(s, e, n, discardLogger),
		notifier: n,
	}
}
