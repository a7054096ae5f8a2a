package engine

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/efreitasn/marketplace/internal/domain"
	"github.com/efreitasn/marketplace/internal/store"
	"pgregory.net/rapid"
)

type seededSell struct {
	seller string
	count  int64
	price  int64
}

var sellers = []string{"amy", "jon", "kim"}

func drawSellBook(t *rapid.T) []seededSell {
	n := rapid.IntRange(1, 8).Draw(t, "listings")
	book := make([]seededSell, n)
	for i := range book {
		book[i] = seededSell{
			seller: rapid.SampledFrom(sellers).Draw(t, "seller"),
			count:  rapid.Int64Range(1, 20).Draw(t, "count"),
			price:  rapid.Int64Range(1, 50).Draw(t, "price"),
		}
	}
	return book
}

func seedSellBook(t *rapid.T, s store.Store, book []seededSell) []*domain.Listing {
	listings := make([]*domain.Listing, len(book))
	for i, b := range book {
		listings[i] = seedListing(t, s, "sword", b.seller, domain.DirectionSell, b.count, b.price)
	}
	return listings
}

// Coins and units move between parties without being created or lost,
// and no balance or listing goes negative.
func TestProperty_MarketBuyConservesCoinsAndUnits(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		e, s := newTestEngine()
		book := drawSellBook(t)
		budget := rapid.Int64Range(0, 2000).Draw(t, "budget")
		requested := rapid.Int64Range(1, 100).Draw(t, "requested")

		seedSellBook(t, s, book)
		fund(t, e, s, "ben", budget)

		var listedBefore int64
		for _, b := range book {
			listedBefore += b.count
		}

		res, err := marketBuy(e, s, "ben", "sword", requested)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var sellerCoins int64
		for _, name := range sellers {
			c := coins(t, s, name)
			if c < 0 {
				t.Fatalf("seller %s has negative coins %d", name, c)
			}
			sellerCoins += c
		}
		buyerCoins := coins(t, s, "ben")
		if buyerCoins < 0 {
			t.Fatalf("buyer has negative coins %d", buyerCoins)
		}
		if buyerCoins+sellerCoins != budget {
			t.Fatalf("coins not conserved: buyer %d + sellers %d != %d", buyerCoins, sellerCoins, budget)
		}
		if budget-buyerCoins != res.CoinsSpent {
			t.Fatalf("CoinsSpent = %d, wallet moved by %d", res.CoinsSpent, budget-buyerCoins)
		}

		var listedAfter int64
		for _, l := range openListings(t, s, "sword", domain.DirectionSell) {
			if l.Count <= 0 {
				t.Fatalf("listing %d left open with count %d", l.ID, l.Count)
			}
			listedAfter += l.Count
		}
		if listedBefore-listedAfter != res.ItemsPurchased {
			t.Fatalf("listed units dropped by %d, purchased %d", listedBefore-listedAfter, res.ItemsPurchased)
		}
		if res.ItemsPurchased > requested {
			t.Fatalf("purchased %d, more than requested %d", res.ItemsPurchased, requested)
		}

		held := units(t, s, "ben", "sword")
		if res.ItemsPurchased == 0 {
			if held != -1 {
				t.Fatalf("inventory row created for empty purchase: %d", held)
			}
		} else if held != res.ItemsPurchased {
			t.Fatalf("inventory = %d, want %d", held, res.ItemsPurchased)
		}
	})
}

// The fills follow price then ID order, and the walk stops at the first
// take the buyer cannot pay for.
func TestProperty_MarketBuyFollowsBookOrderAndHalts(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		e, s := newTestEngine()
		book := drawSellBook(t)
		budget := rapid.Int64Range(0, 2000).Draw(t, "budget")
		requested := rapid.Int64Range(1, 100).Draw(t, "requested")

		listings := seedSellBook(t, s, book)
		fund(t, e, s, "ben", budget)

		ordered := slices.Clone(listings)
		slices.SortFunc(ordered, func(a, b *domain.Listing) int {
			if c := cmp.Compare(a.Price, b.Price); c != 0 {
				return c
			}
			return cmp.Compare(a.ID, b.ID)
		})

		type take struct {
			id    int64
			count int64
		}
		var want []take
		remaining, funds := requested, budget
		for _, l := range ordered {
			if remaining == 0 {
				break
			}
			n := min(remaining, l.Count)
			if n*l.Price > funds {
				break
			}
			want = append(want, take{l.ID, n})
			remaining -= n
			funds -= n * l.Price
		}

		res, err := marketBuy(e, s, "ben", "sword", requested)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(res.Fills) != len(want) {
			t.Fatalf("fills = %d, want %d", len(res.Fills), len(want))
		}
		for i, f := range res.Fills {
			if f.ListingID != want[i].id || f.Count != want[i].count {
				t.Fatalf("fill %d = listing %d x%d, want listing %d x%d", i, f.ListingID, f.Count, want[i].id, want[i].count)
			}
		}
		if coins(t, s, "ben") != funds {
			t.Fatalf("buyer coins = %d, want %d", coins(t, s, "ben"), funds)
		}
	})
}

// With unlimited funds the quote predicts the execution exactly.
func TestProperty_QuoteMatchesUnconstrainedExecution(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		e, s := newTestEngine()
		book := drawSellBook(t)
		requested := rapid.Int64Range(1, 100).Draw(t, "requested")

		seedSellBook(t, s, book)
		fund(t, e, s, "ben", 1_000_000)

		var q *QuoteResult
		err := s.View(context.Background(), func(tx store.Tx) error {
			var err error
			q, err = e.QuoteMarketBuy(tx, "sword", requested)
			return err
		})
		if err != nil {
			t.Fatalf("quote: %v", err)
		}

		res, err := marketBuy(e, s, "ben", "sword", requested)
		if err != nil {
			t.Fatalf("market buy: %v", err)
		}
		if q.CountAvailable != res.ItemsPurchased || q.TotalCost != res.CoinsSpent {
			t.Fatalf("quote %d for %d, executed %d for %d", q.CountAvailable, q.TotalCost, res.ItemsPurchased, res.CoinsSpent)
		}
		if q.FullyFillable != (res.ItemsPurchased == requested) {
			t.Fatalf("FullyFillable = %v with %d of %d purchased", q.FullyFillable, res.ItemsPurchased, requested)
		}
	})
}

// A listing refused for crossing the book changes nothing.
func TestProperty_CrossedListingLeavesLedgerUnchanged(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		e, s := newTestEngine()
		bestSell := rapid.Int64Range(1, 100).Draw(t, "bestSell")
		bid := rapid.Int64Range(bestSell, 200).Draw(t, "bid")
		budget := rapid.Int64Range(bid, 1000).Draw(t, "budget")

		seedListing(t, s, "sword", "jon", domain.DirectionSell, 5, bestSell)
		fund(t, e, s, "ben", budget)

		_, err := buy(e, s, "ben", "sword", rapid.Int64Range(1, 10).Draw(t, "count"), bid)
		if !errors.Is(err, domain.ErrCrossedBook) {
			t.Fatalf("error = %v, want ErrCrossedBook", err)
		}
		if got := coins(t, s, "ben"); got != budget {
			t.Fatalf("coins = %d, want %d", got, budget)
		}
		if got := openListings(t, s, "sword", domain.DirectionBuy); len(got) != 0 {
			t.Fatalf("buy listings = %d, want 0", len(got))
		}

		bestBuy := rapid.Int64Range(1, 100).Draw(t, "bestBuy")
		ask := rapid.Int64Range(1, bestBuy).Draw(t, "ask")
		seedListing(t, s, "shield", "jon", domain.DirectionBuy, 5, bestBuy)
		grant(t, e, s, "ben", "shield", 10)

		_, err = sell(e, s, "ben", "shield", 10, ask)
		if !errors.Is(err, domain.ErrCrossedBook) {
			t.Fatalf("error = %v, want ErrCrossedBook", err)
		}
		if got := units(t, s, "ben", "shield"); got != 10 {
			t.Fatalf("inventory = %d, want 10", got)
		}
	})
}
