package engine

import (
	"github.com/efreitasn/marketplace/internal/domain"
	"github.com/efreitasn/marketplace/internal/store"
)

// Credit adds amount coins to the user's wallet, creating it if needed.
// A balance that would exceed the int64 range fails with
// domain.ErrAmountOverflow.
func (e *Engine) Credit(tx store.Tx, user string, amount int64) (*domain.Wallet, error) {
	if err := requirePositive("amount", amount); err != nil {
		return nil, err
	}
	w, err := tx.GetOrCreateWallet(user)
	if err != nil {
		return nil, err
	}
	balance, ok := domain.CheckedAdd(w.Coins, amount)
	if !ok {
		return nil, domain.ErrAmountOverflow
	}
	w.Coins = balance
	if err := tx.UpdateWallet(w); err != nil {
		return nil, err
	}
	return w, nil
}

// Debit removes amount coins from the user's wallet. It returns
// domain.ErrInsufficientFunds and leaves the wallet untouched when the
// balance is smaller than amount.
func (e *Engine) Debit(tx store.Tx, user string, amount int64) (*domain.Wallet, error) {
	if err := requirePositive("amount", amount); err != nil {
		return nil, err
	}
	w, err := tx.GetOrCreateWallet(user)
	if err != nil {
		return nil, err
	}
	if !w.CanAfford(amount) {
		return nil, domain.ErrInsufficientFunds
	}
	w.Coins -= amount
	if err := tx.UpdateWallet(w); err != nil {
		return nil, err
	}
	return w, nil
}
