package engine

import (
	"github.com/efreitasn/marketplace/internal/domain"
	"github.com/efreitasn/marketplace/internal/store"
)

// AddToInventory grants count units of item to user.
func (e *Engine) AddToInventory(tx store.Tx, user, item string, count int64) (*domain.InventoryItem, error) {
	if err := requirePositive("count", count); err != nil {
		return nil, err
	}
	inv, err := tx.GetOrCreateInventoryItem(user, item)
	if err != nil {
		return nil, err
	}
	total, ok := domain.CheckedAdd(inv.Count, count)
	if !ok {
		return nil, domain.ErrAmountOverflow
	}
	inv.Count = total
	if err := tx.UpdateInventoryItem(inv); err != nil {
		return nil, err
	}
	return inv, nil
}
