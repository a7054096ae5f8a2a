package service

import (
	"context"
	"time"

	"github.com/efreitasn/marketplace/internal/domain"
	"github.com/efreitasn/marketplace/internal/engine"
	"github.com/efreitasn/marketplace/internal/store"
)

// ItemSummary is an item with the top of its book. A nil price means the
// side is empty.
type ItemSummary struct {
	Item          *domain.Item
	BestBuyPrice  *int64
	BestSellPrice *int64
}

// ItemService handles the item catalog and market buy quotes.
type ItemService struct {
	store  store.Store
	engine *engine.Engine
}

// NewItemService creates a new ItemService.
func NewItemService(s store.Store, e *engine.Engine) *ItemService {
	return &ItemService{store: s, engine: e}
}

// Create registers a new item. Names are unique.
func (s *ItemService) Create(ctx context.Context, name string) (*domain.Item, error) {
	if err := validateName("name", name); err != nil {
		return nil, err
	}
	item := &domain.Item{Name: name, CreatedAt: time.Now().UTC()}
	if err := s.store.Update(ctx, func(tx store.Tx) error {
		return tx.CreateItem(item)
	}); err != nil {
		return nil, err
	}
	return item, nil
}

// List returns every item ordered by name.
func (s *ItemService) List(ctx context.Context) ([]*domain.Item, error) {
	var items []*domain.Item
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		items, err = tx.ListItems()
		return err
	})
	return items, err
}

// Get returns the item together with its best buy and sell prices.
func (s *ItemService) Get(ctx context.Context, name string) (*ItemSummary, error) {
	if err := validateName("item", name); err != nil {
		return nil, err
	}

	var summary ItemSummary
	err := s.store.View(ctx, func(tx store.Tx) error {
		item, err := tx.GetItem(name)
		if err != nil {
			return err
		}
		summary.Item = item

		if l, ok, err := tx.BestListing(name, domain.DirectionBuy); err != nil {
			return err
		} else if ok {
			summary.BestBuyPrice = &l.Price
		}
		if l, ok, err := tx.BestListing(name, domain.DirectionSell); err != nil {
			return err
		} else if ok {
			summary.BestSellPrice = &l.Price
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// Quote simulates a market buy of count units without touching the ledger.
func (s *ItemService) Quote(ctx context.Context, name string, count int64) (*engine.QuoteResult, error) {
	if err := validateName("item", name); err != nil {
		return nil, err
	}
	if err := validatePositive("count", count); err != nil {
		return nil, err
	}

	var quote *engine.QuoteResult
	err := s.store.View(ctx, func(tx store.Tx) error {
		if _, err := tx.GetItem(name); err != nil {
			return err
		}
		var err error
		quote, err = s.engine.QuoteMarketBuy(tx, name, count)
		return err
	})
	if err != nil {
		return nil, err
	}
	return quote, nil
}
