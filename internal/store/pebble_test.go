package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/efreitasn/marketplace/internal/domain"
)

func openTestPebble(t *testing.T, dir string) *PebbleStore {
	t.Helper()
	s, err := NewPebbleStore(dir)
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	return s
}

func TestPebbleStore_Contract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store {
		s := openTestPebble(t, filepath.Join(t.TempDir(), "ledger"))
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestPebbleStore_SurvivesReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ledger")
	ctx := context.Background()

	s := openTestPebble(t, dir)
	var id int64
	err := s.Update(ctx, func(tx Tx) error {
		w, err := tx.GetOrCreateWallet("ben")
		if err != nil {
			return err
		}
		w.Coins = 40
		if err := tx.UpdateWallet(w); err != nil {
			return err
		}
		l := &domain.Listing{Item: "sword", Submitter: "ben", Direction: domain.DirectionBuy, Count: 2, Price: 7}
		if err := tx.CreateListing(l); err != nil {
			return err
		}
		id = l.ID
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s = openTestPebble(t, dir)
	defer s.Close()

	err = s.Update(ctx, func(tx Tx) error {
		w, err := tx.GetOrCreateWallet("ben")
		if err != nil {
			return err
		}
		if w.Coins != 40 {
			t.Errorf("coins = %d, want 40", w.Coins)
		}
		best, ok, err := tx.BestListing("sword", domain.DirectionBuy)
		if err != nil || !ok || best.ID != id {
			t.Errorf("best buy = %+v, %v, %v", best, ok, err)
		}
		next := &domain.Listing{Item: "sword", Submitter: "ben", Direction: domain.DirectionBuy, Count: 1, Price: 1}
		if err := tx.CreateListing(next); err != nil {
			return err
		}
		if next.ID <= id {
			t.Errorf("sequence restarted: next id %d after %d", next.ID, id)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("update after reopen: %v", err)
	}
}

func TestPriceKey_BuyOrderIsDescending(t *testing.T) {
	hi := string(kBook(&domain.Listing{ID: 2, Item: "sword", Direction: domain.DirectionBuy, Price: 20}))
	lo := string(kBook(&domain.Listing{ID: 1, Item: "sword", Direction: domain.DirectionBuy, Price: 10}))
	if hi >= lo {
		t.Errorf("buy key for price 20 should sort before price 10: %q vs %q", hi, lo)
	}

	cheap := string(kBook(&domain.Listing{ID: 2, Item: "sword", Direction: domain.DirectionSell, Price: 9}))
	dear := string(kBook(&domain.Listing{ID: 1, Item: "sword", Direction: domain.DirectionSell, Price: 10}))
	if cheap >= dear {
		t.Errorf("sell key for price 9 should sort before price 10: %q vs %q", cheap, dear)
	}
}
