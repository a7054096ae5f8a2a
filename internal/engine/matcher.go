package engine

import (
	"errors"

	"github.com/efreitasn/marketplace/internal/domain"
	"github.com/efreitasn/marketplace/internal/store"
)

// MarketBuyResult reports the outcome of a market buy. ItemsPurchased
// may be lower than requested when listings or funds run out.
type MarketBuyResult struct {
	ItemsPurchased int64
	CoinsSpent     int64
	Fills          []*domain.Fill
}

// QuotePriceLevel aggregates the units a market buy would take at one price.
type QuotePriceLevel struct {
	Price int64
	Count int64
}

// QuoteResult holds the result of a market buy simulation.
type QuoteResult struct {
	CountAvailable int64
	FullyFillable  bool
	TotalCost      int64
	PriceLevels    []QuotePriceLevel
}

// ExecuteMarketBuy buys up to requested units of item for buyer from the
// open SELL listings, cheapest first (lowest listing ID on equal prices).
//
// Each listing is taken whole or up to the remaining request. The walk
// stops at the first listing whose take the buyer cannot pay for, even if
// a smaller take would be affordable. Running out of funds or listings is
// a partial fill, not an error; domain.ErrNoListings is returned only
// when there is no SELL listing at all.
func (e *Engine) ExecuteMarketBuy(tx store.Tx, item, buyer string, requested int64) (*MarketBuyResult, error) {
	if err := requirePositive("count", requested); err != nil {
		return nil, err
	}
	if _, ok, err := tx.BestListing(item, domain.DirectionSell); err != nil {
		return nil, err
	} else if !ok {
		return nil, domain.ErrNoListings
	}

	result := &MarketBuyResult{Fills: []*domain.Fill{}}
	remaining := requested

	for remaining > 0 {
		l, ok, err := tx.BestListing(item, domain.DirectionSell)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}

		take := min(remaining, l.Count)
		cost, ok := domain.CheckedMul(take, l.Price)
		if !ok {
			// No balance can cover a cost beyond the int64 range.
			break
		}

		if _, err := e.Debit(tx, buyer, cost); err != nil {
			if errors.Is(err, domain.ErrInsufficientFunds) {
				break
			}
			return nil, err
		}
		result.CoinsSpent += cost
		remaining -= take

		fill, err := e.ProcessPurchase(tx, l.ID, take)
		if err != nil {
			return nil, err
		}
		fill.Buyer = buyer
		result.Fills = append(result.Fills, fill)
	}

	result.ItemsPurchased = requested - remaining
	if result.ItemsPurchased > 0 {
		if _, err := e.AddToInventory(tx, buyer, item, result.ItemsPurchased); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// QuoteMarketBuy walks the SELL side of item in matching order without
// mutating anything and reports what a market buy of requested units
// would take, ignoring the buyer's funds. A total cost beyond the int64
// range fails with domain.ErrAmountOverflow.
func (e *Engine) QuoteMarketBuy(tx store.Tx, item string, requested int64) (*QuoteResult, error) {
	if err := requirePositive("count", requested); err != nil {
		return nil, err
	}

	result := &QuoteResult{PriceLevels: []QuotePriceLevel{}}
	remaining := requested

	overflow := false
	err := tx.WalkListings(item, domain.DirectionSell, func(l *domain.Listing) bool {
		take := min(remaining, l.Count)
		cost, ok := domain.CheckedMul(take, l.Price)
		if ok {
			result.TotalCost, ok = domain.CheckedAdd(result.TotalCost, cost)
		}
		if !ok {
			overflow = true
			return false
		}
		result.CountAvailable += take
		remaining -= take

		if n := len(result.PriceLevels); n > 0 && result.PriceLevels[n-1].Price == l.Price {
			result.PriceLevels[n-1].Count += take
		} else {
			result.PriceLevels = append(result.PriceLevels, QuotePriceLevel{Price: l.Price, Count: take})
		}
		return remaining > 0
	})
	if err != nil {
		return nil, err
	}
	if overflow {
		return nil, domain.ErrAmountOverflow
	}

	result.FullyFillable = result.CountAvailable >= requested
	return result, nil
}
