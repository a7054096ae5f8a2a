package domain

// Wallet holds a user's coin balance. Coins never go below zero.
type Wallet struct {
	User  string
	Coins int64
}

// CanAfford reports whether the wallet holds at least amount coins.
func (w *Wallet) CanAfford(amount int64) bool {
	return w.Coins >= amount
}
