package engine

import (
	"fmt"

	"github.com/efreitasn/marketplace/internal/domain"
	"github.com/efreitasn/marketplace/internal/store"
)

// CreateSellListing moves count units out of the holder's inventory into a
// new SELL listing at price. The listing is refused with
// domain.ErrCrossedBook when an open BUY listing already bids price or
// more; it never matches on creation.
func (e *Engine) CreateSellListing(tx store.Tx, holding *domain.InventoryItem, count, price int64) (*domain.Listing, error) {
	if err := requirePositive("count", count); err != nil {
		return nil, err
	}
	if err := requirePositive("price", price); err != nil {
		return nil, err
	}
	if err := requireValue(count, price); err != nil {
		return nil, err
	}

	inv, err := tx.GetInventoryItem(holding.User, holding.Item)
	if err != nil {
		return nil, err
	}
	if count > inv.Count {
		return nil, domain.ErrInsufficientInventory
	}

	bestBuy, ok, err := tx.BestListing(inv.Item, domain.DirectionBuy)
	if err != nil {
		return nil, err
	}
	if ok && bestBuy.Price >= price {
		return nil, fmt.Errorf("sell price %d not above best buy %d: %w", price, bestBuy.Price, domain.ErrCrossedBook)
	}

	inv.Count -= count
	if err := tx.UpdateInventoryItem(inv); err != nil {
		return nil, err
	}

	listing := &domain.Listing{
		Item:      inv.Item,
		Submitter: inv.User,
		Direction: domain.DirectionSell,
		Count:     count,
		Price:     price,
		CreatedAt: e.now(),
	}
	if err := tx.CreateListing(listing); err != nil {
		return nil, err
	}
	return listing, nil
}

// CreateBuyListing posts a BUY listing for count units of item at price.
//
// Only the unit price is debited from the buyer as a reservation, while
// CancelListing refunds price × count. The asymmetry is long-standing
// ledger behavior and is kept until the product decides otherwise.
func (e *Engine) CreateBuyListing(tx store.Tx, item, buyer string, count, price int64) (*domain.Listing, error) {
	if err := requirePositive("count", count); err != nil {
		return nil, err
	}
	if err := requirePositive("price", price); err != nil {
		return nil, err
	}
	if err := requireValue(count, price); err != nil {
		return nil, err
	}

	w, err := tx.GetOrCreateWallet(buyer)
	if err != nil {
		return nil, err
	}
	if !w.CanAfford(price) {
		return nil, domain.ErrInsufficientFunds
	}

	bestSell, ok, err := tx.BestListing(item, domain.DirectionSell)
	if err != nil {
		return nil, err
	}
	if ok && bestSell.Price <= price {
		return nil, fmt.Errorf("buy price %d not below best sell %d: %w", price, bestSell.Price, domain.ErrCrossedBook)
	}

	if _, err := e.Debit(tx, buyer, price); err != nil {
		return nil, err
	}

	listing := &domain.Listing{
		Item:      item,
		Submitter: buyer,
		Direction: domain.DirectionBuy,
		Count:     count,
		Price:     price,
		CreatedAt: e.now(),
	}
	if err := tx.CreateListing(listing); err != nil {
		return nil, err
	}
	return listing, nil
}

// ProcessPurchase takes take units from a SELL listing and pays the
// submitter price × take. The listing is deleted once its count reaches
// zero. The buyer side (debit and inventory) is the caller's concern.
func (e *Engine) ProcessPurchase(tx store.Tx, listingID, take int64) (*domain.Fill, error) {
	if err := requirePositive("count", take); err != nil {
		return nil, err
	}
	l, err := tx.GetListing(listingID)
	if err != nil {
		return nil, err
	}
	if l.Direction != domain.DirectionSell {
		return nil, domain.ErrInvalidDirection
	}
	if take > l.Count {
		return nil, domain.ErrExcessiveTake
	}

	proceeds, ok := domain.CheckedMul(take, l.Price)
	if !ok {
		return nil, domain.ErrAmountOverflow
	}
	if _, err := e.Credit(tx, l.Submitter, proceeds); err != nil {
		return nil, err
	}

	l.Count -= take
	if l.Count == 0 {
		err = tx.DeleteListing(l.ID)
	} else {
		err = tx.UpdateListing(l)
	}
	if err != nil {
		return nil, err
	}

	return &domain.Fill{
		ListingID: l.ID,
		Item:      l.Item,
		Seller:    l.Submitter,
		Count:     take,
		Price:     l.Price,
		Remaining: l.Count,
	}, nil
}

// CancelListing deletes a listing and returns what it holds to the
// submitter: coins (price × count) for BUY, units for SELL.
func (e *Engine) CancelListing(tx store.Tx, listingID int64) (*domain.Listing, error) {
	l, err := tx.GetListing(listingID)
	if err != nil {
		return nil, err
	}

	switch l.Direction {
	case domain.DirectionBuy:
		refund, ok := l.Value()
		if !ok {
			return nil, domain.ErrAmountOverflow
		}
		_, err = e.Credit(tx, l.Submitter, refund)
	case domain.DirectionSell:
		_, err = e.AddToInventory(tx, l.Submitter, l.Item, l.Count)
	default:
		err = domain.ErrInvalidDirection
	}
	if err != nil {
		return nil, err
	}

	if err := tx.DeleteListing(l.ID); err != nil {
		return nil, err
	}
	return l, nil
}
