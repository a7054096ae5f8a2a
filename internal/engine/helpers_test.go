package engine

import (
	"context"
	"time"

	"github.com/efreitasn/marketplace/internal/domain"
	"github.com/efreitasn/marketplace/internal/store"
)

// fataler is the part of *testing.T and *rapid.T the helpers need.
type fataler interface {
	Helper()
	Fatalf(format string, args ...any)
}

// testClock is a fixed time used for listing timestamps in tests.
var testClock = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

func newTestEngine() (*Engine, *store.MemoryStore) {
	e := &Engine{now: func() time.Time { return testClock }}
	return e, store.NewMemoryStore()
}

// update runs fn in one atomic section and returns its error.
func update(s store.Store, fn func(store.Tx) error) error {
	return s.Update(context.Background(), fn)
}

// mustUpdate is update for setup steps that must succeed.
func mustUpdate(t fataler, s store.Store, fn func(store.Tx) error) {
	t.Helper()
	if err := update(s, fn); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
}

func coins(t fataler, s store.Store, user string) int64 {
	t.Helper()
	var w *domain.Wallet
	err := s.View(context.Background(), func(tx store.Tx) error {
		var err error
		w, err = tx.GetOrCreateWallet(user)
		return err
	})
	if err != nil {
		t.Fatalf("read wallet: %v", err)
	}
	return w.Coins
}

// units returns the user's count of item, or -1 when no row exists.
func units(t fataler, s store.Store, user, item string) int64 {
	t.Helper()
	var count int64 = -1
	err := s.View(context.Background(), func(tx store.Tx) error {
		inv, err := tx.GetInventoryItem(user, item)
		if err == nil {
			count = inv.Count
		}
		return nil
	})
	if err != nil {
		t.Fatalf("read inventory: %v", err)
	}
	return count
}

func openListings(t fataler, s store.Store, item string, dir domain.Direction) []*domain.Listing {
	t.Helper()
	var result []*domain.Listing
	err := s.View(context.Background(), func(tx store.Tx) error {
		return tx.WalkListings(item, dir, func(l *domain.Listing) bool {
			result = append(result, l)
			return true
		})
	})
	if err != nil {
		t.Fatalf("walk listings: %v", err)
	}
	return result
}

// seedListing inserts a listing directly, bypassing creation rules.
func seedListing(t fataler, s store.Store, item, submitter string, dir domain.Direction, count, price int64) *domain.Listing {
	t.Helper()
	l := &domain.Listing{
		Item:      item,
		Submitter: submitter,
		Direction: dir,
		Count:     count,
		Price:     price,
		CreatedAt: testClock,
	}
	mustUpdate(t, s, func(tx store.Tx) error { return tx.CreateListing(l) })
	return l
}
