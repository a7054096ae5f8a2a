package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/efreitasn/marketplace/internal/domain"
)

var contractClock = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

var errAbort = errors.New("abort")

// runStoreContract checks the behavior every Store backend must share.
// open returns an empty store for each subtest.
func runStoreContract(t *testing.T, open func(t *testing.T) Store) {
	ctx := context.Background()

	mustUpdate := func(t *testing.T, s Store, fn func(Tx) error) {
		t.Helper()
		if err := s.Update(ctx, fn); err != nil {
			t.Fatalf("update: %v", err)
		}
	}
	mustView := func(t *testing.T, s Store, fn func(Tx) error) {
		t.Helper()
		if err := s.View(ctx, fn); err != nil {
			t.Fatalf("view: %v", err)
		}
	}
	newListing := func(item, submitter string, dir domain.Direction, count, price int64) *domain.Listing {
		return &domain.Listing{
			Item: item, Submitter: submitter, Direction: dir,
			Count: count, Price: price, CreatedAt: contractClock,
		}
	}

	t.Run("items", func(t *testing.T) {
		s := open(t)
		mustUpdate(t, s, func(tx Tx) error {
			if err := tx.CreateItem(&domain.Item{Name: "sword", CreatedAt: contractClock}); err != nil {
				return err
			}
			return tx.CreateItem(&domain.Item{Name: "axe", CreatedAt: contractClock})
		})

		err := s.Update(ctx, func(tx Tx) error {
			return tx.CreateItem(&domain.Item{Name: "sword", CreatedAt: contractClock})
		})
		if !errors.Is(err, domain.ErrItemAlreadyExists) {
			t.Fatalf("duplicate create = %v, want ErrItemAlreadyExists", err)
		}

		mustView(t, s, func(tx Tx) error {
			item, err := tx.GetItem("sword")
			if err != nil {
				return err
			}
			if item.Name != "sword" || !item.CreatedAt.Equal(contractClock) {
				t.Errorf("unexpected item: %+v", item)
			}
			if _, err := tx.GetItem("bow"); !errors.Is(err, domain.ErrItemNotFound) {
				t.Errorf("missing item = %v, want ErrItemNotFound", err)
			}
			items, err := tx.ListItems()
			if err != nil {
				return err
			}
			if len(items) != 2 || items[0].Name != "axe" || items[1].Name != "sword" {
				t.Errorf("items not sorted by name: %+v", items)
			}
			return nil
		})
	})

	t.Run("wallets", func(t *testing.T) {
		s := open(t)
		mustUpdate(t, s, func(tx Tx) error {
			w, err := tx.GetOrCreateWallet("ben")
			if err != nil {
				return err
			}
			if w.User != "ben" || w.Coins != 0 {
				t.Errorf("new wallet = %+v", w)
			}
			w.Coins = 75
			if err := tx.UpdateWallet(w); err != nil {
				return err
			}
			again, err := tx.GetOrCreateWallet("ben")
			if err != nil {
				return err
			}
			if again.Coins != 75 {
				t.Errorf("read-your-writes: coins = %d, want 75", again.Coins)
			}
			return nil
		})

		mustView(t, s, func(tx Tx) error {
			w, err := tx.GetOrCreateWallet("ben")
			if err != nil {
				return err
			}
			if w.Coins != 75 {
				t.Errorf("committed coins = %d, want 75", w.Coins)
			}
			return nil
		})
	})

	t.Run("inventory", func(t *testing.T) {
		s := open(t)
		mustUpdate(t, s, func(tx Tx) error {
			if _, err := tx.GetInventoryItem("ben", "sword"); !errors.Is(err, domain.ErrInventoryItemNotFound) {
				t.Errorf("missing row = %v, want ErrInventoryItemNotFound", err)
			}
			for _, item := range []string{"sword", "axe"} {
				inv, err := tx.GetOrCreateInventoryItem("ben", item)
				if err != nil {
					return err
				}
				inv.Count = 3
				if err := tx.UpdateInventoryItem(inv); err != nil {
					return err
				}
			}
			_, err := tx.GetOrCreateInventoryItem("amy", "sword")
			return err
		})

		mustView(t, s, func(tx Tx) error {
			inv, err := tx.GetInventoryItem("ben", "sword")
			if err != nil {
				return err
			}
			if inv.Count != 3 {
				t.Errorf("count = %d, want 3", inv.Count)
			}
			list, err := tx.ListInventory("ben")
			if err != nil {
				return err
			}
			if len(list) != 2 || list[0].Item != "axe" || list[1].Item != "sword" {
				t.Errorf("inventory not sorted by item: %+v", list)
			}
			zero, err := tx.GetInventoryItem("amy", "sword")
			if err != nil {
				t.Errorf("zero-count row should persist: %v", err)
			} else if zero.Count != 0 {
				t.Errorf("amy count = %d, want 0", zero.Count)
			}
			return nil
		})
	})

	t.Run("listing ids increase", func(t *testing.T) {
		s := open(t)
		var ids []int64
		for i := 0; i < 3; i++ {
			mustUpdate(t, s, func(tx Tx) error {
				l := newListing("sword", "ben", domain.DirectionSell, 1, 5)
				if err := tx.CreateListing(l); err != nil {
					return err
				}
				ids = append(ids, l.ID)
				return nil
			})
		}
		for i := 1; i < len(ids); i++ {
			if ids[i] <= ids[i-1] {
				t.Fatalf("ids not strictly increasing: %v", ids)
			}
		}
	})

	t.Run("book order", func(t *testing.T) {
		s := open(t)
		var buyIDs, sellIDs []int64
		mustUpdate(t, s, func(tx Tx) error {
			for _, p := range []int64{10, 20, 20, 15} {
				l := newListing("sword", "ben", domain.DirectionBuy, 1, p)
				if err := tx.CreateListing(l); err != nil {
					return err
				}
				buyIDs = append(buyIDs, l.ID)
			}
			for _, p := range []int64{30, 25, 25, 40} {
				l := newListing("sword", "amy", domain.DirectionSell, 1, p)
				if err := tx.CreateListing(l); err != nil {
					return err
				}
				sellIDs = append(sellIDs, l.ID)
			}
			// Another item's book must not leak in.
			return tx.CreateListing(newListing("axe", "amy", domain.DirectionSell, 1, 1))
		})

		collect := func(tx Tx, dir domain.Direction) []int64 {
			var got []int64
			if err := tx.WalkListings("sword", dir, func(l *domain.Listing) bool {
				got = append(got, l.ID)
				return true
			}); err != nil {
				t.Fatalf("walk: %v", err)
			}
			return got
		}

		mustView(t, s, func(tx Tx) error {
			wantBuy := []int64{buyIDs[1], buyIDs[2], buyIDs[3], buyIDs[0]}
			if got := collect(tx, domain.DirectionBuy); !equalIDs(got, wantBuy) {
				t.Errorf("buy order = %v, want %v", got, wantBuy)
			}
			wantSell := []int64{sellIDs[1], sellIDs[2], sellIDs[0], sellIDs[3]}
			if got := collect(tx, domain.DirectionSell); !equalIDs(got, wantSell) {
				t.Errorf("sell order = %v, want %v", got, wantSell)
			}

			best, ok, err := tx.BestListing("sword", domain.DirectionBuy)
			if err != nil || !ok || best.ID != buyIDs[1] {
				t.Errorf("best buy = %+v, %v, %v", best, ok, err)
			}
			best, ok, err = tx.BestListing("sword", domain.DirectionSell)
			if err != nil || !ok || best.ID != sellIDs[1] {
				t.Errorf("best sell = %+v, %v, %v", best, ok, err)
			}
			if _, ok, err := tx.BestListing("bow", domain.DirectionSell); ok || err != nil {
				t.Errorf("empty book: ok=%v err=%v", ok, err)
			}

			var visited int
			if err := tx.WalkListings("sword", domain.DirectionSell, func(*domain.Listing) bool {
				visited++
				return visited < 2
			}); err != nil {
				return err
			}
			if visited != 2 {
				t.Errorf("walk visited %d after stop, want 2", visited)
			}
			return nil
		})
	})

	t.Run("update and delete listing", func(t *testing.T) {
		s := open(t)
		var keep, drop *domain.Listing
		mustUpdate(t, s, func(tx Tx) error {
			keep = newListing("sword", "ben", domain.DirectionSell, 5, 10)
			drop = newListing("sword", "ben", domain.DirectionSell, 5, 8)
			if err := tx.CreateListing(keep); err != nil {
				return err
			}
			return tx.CreateListing(drop)
		})

		mustUpdate(t, s, func(tx Tx) error {
			keep.Count = 2
			if err := tx.UpdateListing(keep); err != nil {
				return err
			}
			if err := tx.DeleteListing(drop.ID); err != nil {
				return err
			}
			best, ok, err := tx.BestListing("sword", domain.DirectionSell)
			if err != nil || !ok || best.ID != keep.ID || best.Count != 2 {
				t.Errorf("best after delete = %+v, %v, %v", best, ok, err)
			}
			return nil
		})

		mustView(t, s, func(tx Tx) error {
			if _, err := tx.GetListing(drop.ID); !errors.Is(err, domain.ErrListingNotFound) {
				t.Errorf("deleted listing = %v, want ErrListingNotFound", err)
			}
			got, err := tx.GetListing(keep.ID)
			if err != nil {
				return err
			}
			if got.Count != 2 || got.Price != 10 || got.Direction != domain.DirectionSell || got.Submitter != "ben" {
				t.Errorf("updated listing = %+v", got)
			}
			mine, err := tx.ListingsBySubmitter("ben", domain.DirectionSell)
			if err != nil {
				return err
			}
			if len(mine) != 1 || mine[0].ID != keep.ID {
				t.Errorf("submitter listings = %+v", mine)
			}
			return nil
		})

		err := s.Update(ctx, func(tx Tx) error { return tx.DeleteListing(drop.ID) })
		if !errors.Is(err, domain.ErrListingNotFound) {
			t.Errorf("second delete = %v, want ErrListingNotFound", err)
		}
	})

	t.Run("listings by submitter", func(t *testing.T) {
		s := open(t)
		var sells []int64
		mustUpdate(t, s, func(tx Tx) error {
			for i := 0; i < 3; i++ {
				l := newListing("sword", "ben", domain.DirectionSell, 1, int64(10+i))
				if err := tx.CreateListing(l); err != nil {
					return err
				}
				sells = append(sells, l.ID)
			}
			if err := tx.CreateListing(newListing("sword", "ben", domain.DirectionBuy, 1, 1)); err != nil {
				return err
			}
			return tx.CreateListing(newListing("sword", "amy", domain.DirectionSell, 1, 50))
		})

		mustView(t, s, func(tx Tx) error {
			got, err := tx.ListingsBySubmitter("ben", domain.DirectionSell)
			if err != nil {
				return err
			}
			ids := make([]int64, len(got))
			for i, l := range got {
				ids[i] = l.ID
			}
			want := []int64{sells[2], sells[1], sells[0]}
			if !equalIDs(ids, want) {
				t.Errorf("sell listings = %v, want newest first %v", ids, want)
			}
			buys, err := tx.ListingsBySubmitter("ben", domain.DirectionBuy)
			if err != nil {
				return err
			}
			if len(buys) != 1 {
				t.Errorf("buy listings = %d, want 1", len(buys))
			}
			none, err := tx.ListingsBySubmitter("kim", domain.DirectionSell)
			if err != nil {
				return err
			}
			if len(none) != 0 {
				t.Errorf("kim listings = %d, want 0", len(none))
			}
			return nil
		})
	})

	t.Run("failed update rolls back", func(t *testing.T) {
		s := open(t)
		mustUpdate(t, s, func(tx Tx) error {
			w, err := tx.GetOrCreateWallet("ben")
			if err != nil {
				return err
			}
			w.Coins = 10
			return tx.UpdateWallet(w)
		})

		err := s.Update(ctx, func(tx Tx) error {
			w, err := tx.GetOrCreateWallet("ben")
			if err != nil {
				return err
			}
			w.Coins = 999
			if err := tx.UpdateWallet(w); err != nil {
				return err
			}
			if err := tx.CreateListing(newListing("sword", "ben", domain.DirectionBuy, 1, 5)); err != nil {
				return err
			}
			return errAbort
		})
		if !errors.Is(err, errAbort) {
			t.Fatalf("update error = %v, want errAbort", err)
		}

		mustView(t, s, func(tx Tx) error {
			w, err := tx.GetOrCreateWallet("ben")
			if err != nil {
				return err
			}
			if w.Coins != 10 {
				t.Errorf("coins = %d, want 10 after rollback", w.Coins)
			}
			if _, ok, err := tx.BestListing("sword", domain.DirectionBuy); ok || err != nil {
				t.Errorf("rolled back listing visible: ok=%v err=%v", ok, err)
			}
			return nil
		})
	})

	t.Run("view is read-only", func(t *testing.T) {
		s := open(t)
		err := s.View(ctx, func(tx Tx) error {
			return tx.CreateListing(newListing("sword", "ben", domain.DirectionSell, 1, 5))
		})
		if !errors.Is(err, ErrReadOnly) {
			t.Errorf("CreateListing in view = %v, want ErrReadOnly", err)
		}
		err = s.View(ctx, func(tx Tx) error {
			return tx.UpdateWallet(&domain.Wallet{User: "ben", Coins: 5})
		})
		if !errors.Is(err, ErrReadOnly) {
			t.Errorf("UpdateWallet in view = %v, want ErrReadOnly", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		s := open(t)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		called := false
		err := s.Update(cctx, func(Tx) error {
			called = true
			return nil
		})
		if err == nil || called {
			t.Errorf("update on cancelled context: err=%v called=%v", err, called)
		}
	})
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
