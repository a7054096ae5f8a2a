package service

import (
	"context"
	"log/slog"

	"github.com/efreitasn/marketplace/internal/domain"
	"github.com/efreitasn/marketplace/internal/engine"
	"github.com/efreitasn/marketplace/internal/store"
)

// Dashboard is a user's view of their own account.
type Dashboard struct {
	Wallet       *domain.Wallet
	SellListings []*domain.Listing // newest first
	BuyListings  []*domain.Listing // newest first
	Inventory    []*domain.InventoryItem
}

// AccountService handles wallets, inventory grants and the dashboard.
type AccountService struct {
	store  store.Store
	engine *engine.Engine
	logger *slog.Logger
}

// NewAccountService creates a new AccountService.
func NewAccountService(s store.Store, e *engine.Engine, logger *slog.Logger) *AccountService {
	return &AccountService{store: s, engine: e, logger: logger}
}

// Credit adds amount coins to the user's wallet.
func (s *AccountService) Credit(ctx context.Context, user string, amount int64) (*domain.Wallet, error) {
	if err := validateName("user", user); err != nil {
		return nil, err
	}
	var w *domain.Wallet
	err := s.store.Update(ctx, func(tx store.Tx) error {
		var err error
		w, err = s.engine.Credit(tx, user, amount)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("wallet credited", slog.String("user", user), slog.Int64("amount", amount), slog.Int64("coins", w.Coins))
	return w, nil
}

// Debit removes amount coins from the user's wallet. It fails with
// domain.ErrInsufficientFunds when the balance is too small.
func (s *AccountService) Debit(ctx context.Context, user string, amount int64) (*domain.Wallet, error) {
	if err := validateName("user", user); err != nil {
		return nil, err
	}
	var w *domain.Wallet
	err := s.store.Update(ctx, func(tx store.Tx) error {
		var err error
		w, err = s.engine.Debit(tx, user, amount)
		return err
	})
	if err != nil {
		s.logger.Debug("wallet debit rejected", slog.String("user", user), slog.Int64("amount", amount), slog.String("error", err.Error()))
		return nil, err
	}
	s.logger.Info("wallet debited", slog.String("user", user), slog.Int64("amount", amount), slog.Int64("coins", w.Coins))
	return w, nil
}

// Grant adds units of an existing item to the user's inventory.
func (s *AccountService) Grant(ctx context.Context, user, item string, count int64) (*domain.InventoryItem, error) {
	if err := validateName("user", user); err != nil {
		return nil, err
	}
	if err := validateName("item", item); err != nil {
		return nil, err
	}
	var inv *domain.InventoryItem
	err := s.store.Update(ctx, func(tx store.Tx) error {
		if _, err := tx.GetItem(item); err != nil {
			return err
		}
		var err error
		inv, err = s.engine.AddToInventory(tx, user, item, count)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("inventory granted", slog.String("user", user), slog.String("item", item), slog.Int64("count", count))
	return inv, nil
}

// Dashboard reads the user's wallet, open listings and inventory from one
// snapshot. A user with no history gets an empty wallet.
func (s *AccountService) Dashboard(ctx context.Context, user string) (*Dashboard, error) {
	if err := validateName("user", user); err != nil {
		return nil, err
	}
	var d Dashboard
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		if d.Wallet, err = tx.GetOrCreateWallet(user); err != nil {
			return err
		}
		if d.SellListings, err = tx.ListingsBySubmitter(user, domain.DirectionSell); err != nil {
			return err
		}
		if d.BuyListings, err = tx.ListingsBySubmitter(user, domain.DirectionBuy); err != nil {
			return err
		}
		d.Inventory, err = tx.ListInventory(user)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &d, nil
}
