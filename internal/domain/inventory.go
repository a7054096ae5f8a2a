package domain

// InventoryItem is the quantity of one item held by one user. Rows are
// kept at zero count once created.
type InventoryItem struct {
	User  string
	Item  string
	Count int64
}
