package store

import (
	"context"

	"github.com/efreitasn/marketplace/internal/domain"
)

// Tx is the view of the ledger available inside one atomic section.
// Every read observes the writes made earlier in the same Tx.
//
// Lookups of missing records return the matching domain sentinel
// (domain.ErrItemNotFound, domain.ErrInventoryItemNotFound,
// domain.ErrListingNotFound). Writes on a read-only Tx fail with
// ErrReadOnly.
type Tx interface {
	CreateItem(item *domain.Item) error
	GetItem(name string) (*domain.Item, error)
	ListItems() ([]*domain.Item, error)

	GetOrCreateWallet(user string) (*domain.Wallet, error)
	UpdateWallet(w *domain.Wallet) error

	GetInventoryItem(user, item string) (*domain.InventoryItem, error)
	GetOrCreateInventoryItem(user, item string) (*domain.InventoryItem, error)
	UpdateInventoryItem(inv *domain.InventoryItem) error
	ListInventory(user string) ([]*domain.InventoryItem, error)

	// CreateListing assigns l.ID from a strictly increasing sequence.
	CreateListing(l *domain.Listing) error
	GetListing(id int64) (*domain.Listing, error)
	UpdateListing(l *domain.Listing) error
	DeleteListing(id int64) error

	// BestListing returns the best open listing for the item on the given
	// side: highest price for buy, lowest price for sell, lowest ID on ties.
	BestListing(item string, dir domain.Direction) (*domain.Listing, bool, error)
	// WalkListings visits open listings in BestListing order until fn
	// returns false. fn must not mutate the ledger.
	WalkListings(item string, dir domain.Direction, fn func(*domain.Listing) bool) error
	// ListingsBySubmitter returns a user's open listings, newest first.
	ListingsBySubmitter(user string, dir domain.Direction) ([]*domain.Listing, error)
}

// Store is a transactional ledger. Update runs fn in one atomic section:
// all writes commit when fn returns nil and none do otherwise. View runs
// fn against a consistent read-only snapshot.
type Store interface {
	Update(ctx context.Context, fn func(Tx) error) error
	View(ctx context.Context, fn func(Tx) error) error
	Close() error
}
