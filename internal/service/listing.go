package service

import (
	"context"
	"log/slog"

	"github.com/efreitasn/marketplace/internal/domain"
	"github.com/efreitasn/marketplace/internal/engine"
	"github.com/efreitasn/marketplace/internal/store"
)

// ListingNotifier is told about committed fills and cancellations.
type ListingNotifier interface {
	DispatchListingFilled(fill *domain.Fill)
	DispatchListingCancelled(l *domain.Listing)
}

// ListingService places, fills and cancels listings. Each call is one
// atomic store update; notifications go out only after it commits.
type ListingService struct {
	store    store.Store
	engine   *engine.Engine
	notifier ListingNotifier
	logger   *slog.Logger
}

// NewListingService creates a new ListingService. notifier receives
// fills and cancellations after they commit.
func NewListingService(s store.Store, e *engine.Engine, notifier ListingNotifier, logger *slog.Logger) *ListingService {
	return &ListingService{store: s, engine: e, notifier: notifier, logger: logger}
}

// Sell moves count units of item from the user's inventory into a SELL
// listing at price.
func (s *ListingService) Sell(ctx context.Context, user, item string, count, price int64) (*domain.Listing, error) {
	if err := validateName("user", user); err != nil {
		return nil, err
	}
	if err := validateName("item", item); err != nil {
		return nil, err
	}

	var listing *domain.Listing
	err := s.store.Update(ctx, func(tx store.Tx) error {
		if _, err := tx.GetItem(item); err != nil {
			return err
		}
		var err error
		listing, err = s.engine.CreateSellListing(tx, &domain.InventoryItem{User: user, Item: item}, count, price)
		return err
	})
	if err != nil {
		s.rejected("sell listing rejected", user, item, err)
		return nil, err
	}
	s.logListing("listing created", listing)
	return listing, nil
}

// PlaceBuyListing posts a BUY listing for count units of item at price.
func (s *ListingService) PlaceBuyListing(ctx context.Context, user, item string, count, price int64) (*domain.Listing, error) {
	if err := validateName("user", user); err != nil {
		return nil, err
	}
	if err := validateName("item", item); err != nil {
		return nil, err
	}

	var listing *domain.Listing
	err := s.store.Update(ctx, func(tx store.Tx) error {
		if _, err := tx.GetItem(item); err != nil {
			return err
		}
		var err error
		listing, err = s.engine.CreateBuyListing(tx, item, user, count, price)
		return err
	})
	if err != nil {
		s.rejected("buy listing rejected", user, item, err)
		return nil, err
	}
	s.logListing("listing created", listing)
	return listing, nil
}

// MarketBuy buys up to count units of item at the best available prices.
func (s *ListingService) MarketBuy(ctx context.Context, user, item string, count int64) (*engine.MarketBuyResult, error) {
	if err := validateName("user", user); err != nil {
		return nil, err
	}
	if err := validateName("item", item); err != nil {
		return nil, err
	}

	var result *engine.MarketBuyResult
	err := s.store.Update(ctx, func(tx store.Tx) error {
		if _, err := tx.GetItem(item); err != nil {
			return err
		}
		var err error
		result, err = s.engine.ExecuteMarketBuy(tx, item, user, count)
		return err
	})
	if err != nil {
		s.rejected("market buy rejected", user, item, err)
		return nil, err
	}

	s.logger.Info("market buy executed",
		slog.String("user", user),
		slog.String("item", item),
		slog.Int64("requested", count),
		slog.Int64("purchased", result.ItemsPurchased),
		slog.Int64("coins_spent", result.CoinsSpent),
		slog.Int("fills", len(result.Fills)),
	)
	for _, fill := range result.Fills {
		s.notifier.DispatchListingFilled(fill)
	}
	return result, nil
}

// Cancel withdraws one of the user's own listings.
func (s *ListingService) Cancel(ctx context.Context, user string, listingID int64) (*domain.Listing, error) {
	if err := validateName("user", user); err != nil {
		return nil, err
	}

	var listing *domain.Listing
	err := s.store.Update(ctx, func(tx store.Tx) error {
		l, err := tx.GetListing(listingID)
		if err != nil {
			return err
		}
		if l.Submitter != user {
			return domain.ErrNotListingOwner
		}
		listing, err = s.engine.CancelListing(tx, listingID)
		return err
	})
	if err != nil {
		s.logger.Debug("cancel rejected", slog.String("user", user), slog.Int64("listing_id", listingID), slog.String("error", err.Error()))
		return nil, err
	}

	s.logListing("listing cancelled", listing)
	s.notifier.DispatchListingCancelled(listing)
	return listing, nil
}

func (s *ListingService) logListing(msg string, l *domain.Listing) {
	s.logger.Info(msg,
		slog.Int64("listing_id", l.ID),
		slog.String("item", l.Item),
		slog.String("user", l.Submitter),
		slog.String("direction", string(l.Direction)),
		slog.Int64("count", l.Count),
		slog.Int64("price", l.Price),
	)
}

func (s *ListingService) rejected(msg, user, item string, err error) {
	s.logger.Debug(msg, slog.String("user", user), slog.String("item", item), slog.String("error", err.Error()))
}
