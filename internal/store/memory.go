package store

import (
	"context"
	"sort"
	"sync"

	"github.com/efreitasn/marketplace/internal/domain"
)

type inventoryKey struct {
	user string
	item string
}

// memState is one immutable-once-published version of the ledger.
type memState struct {
	items         map[string]domain.Item
	wallets       map[string]domain.Wallet
	inventory     map[inventoryKey]domain.InventoryItem
	listings      map[int64]domain.Listing
	books         map[string]*listingBook // item → book
	lastListingID int64
}

func newMemState() *memState {
	return &memState{
		items:     make(map[string]domain.Item),
		wallets:   make(map[string]domain.Wallet),
		inventory: make(map[inventoryKey]domain.InventoryItem),
		listings:  make(map[int64]domain.Listing),
		books:     make(map[string]*listingBook),
	}
}

func (s *memState) clone() *memState {
	c := &memState{
		items:         make(map[string]domain.Item, len(s.items)),
		wallets:       make(map[string]domain.Wallet, len(s.wallets)),
		inventory:     make(map[inventoryKey]domain.InventoryItem, len(s.inventory)),
		listings:      make(map[int64]domain.Listing, len(s.listings)),
		books:         make(map[string]*listingBook, len(s.books)),
		lastListingID: s.lastListingID,
	}
	for k, v := range s.items {
		c.items[k] = v
	}
	for k, v := range s.wallets {
		c.wallets[k] = v
	}
	for k, v := range s.inventory {
		c.inventory[k] = v
	}
	for k, v := range s.listings {
		c.listings[k] = v
	}
	for k, v := range s.books {
		c.books[k] = v.clone()
	}
	return c
}

// MemoryStore is an in-memory ledger. Writers are serialized and each
// Update works on a private copy of the state that replaces the
// published one only when the update succeeds.
type MemoryStore struct {
	mu    sync.RWMutex
	state *memState
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemState()}
}

// Update implements Store.
func (s *MemoryStore) Update(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.clone()
	if err := fn(&memTx{st: next}); err != nil {
		return err
	}
	s.state = next
	return nil
}

// View implements Store.
func (s *MemoryStore) View(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	return fn(&memTx{st: s.state, readOnly: true})
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }

type memTx struct {
	st       *memState
	readOnly bool
}

func (tx *memTx) CreateItem(item *domain.Item) error {
	if tx.readOnly {
		return ErrReadOnly
	}
	if _, ok := tx.st.items[item.Name]; ok {
		return domain.ErrItemAlreadyExists
	}
	tx.st.items[item.Name] = *item
	return nil
}

func (tx *memTx) GetItem(name string) (*domain.Item, error) {
	item, ok := tx.st.items[name]
	if !ok {
		return nil, domain.ErrItemNotFound
	}
	return &item, nil
}

func (tx *memTx) ListItems() ([]*domain.Item, error) {
	items := make([]*domain.Item, 0, len(tx.st.items))
	for _, item := range tx.st.items {
		item := item
		items = append(items, &item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

func (tx *memTx) GetOrCreateWallet(user string) (*domain.Wallet, error) {
	w, ok := tx.st.wallets[user]
	if ok {
		return &w, nil
	}
	w = domain.Wallet{User: user}
	if !tx.readOnly {
		tx.st.wallets[user] = w
	}
	return &w, nil
}

func (tx *memTx) UpdateWallet(w *domain.Wallet) error {
	if tx.readOnly {
		return ErrReadOnly
	}
	tx.st.wallets[w.User] = *w
	return nil
}

func (tx *memTx) GetInventoryItem(user, item string) (*domain.InventoryItem, error) {
	inv, ok := tx.st.inventory[inventoryKey{user, item}]
	if !ok {
		return nil, domain.ErrInventoryItemNotFound
	}
	return &inv, nil
}

func (tx *memTx) GetOrCreateInventoryItem(user, item string) (*domain.InventoryItem, error) {
	key := inventoryKey{user, item}
	inv, ok := tx.st.inventory[key]
	if ok {
		return &inv, nil
	}
	inv = domain.InventoryItem{User: user, Item: item}
	if !tx.readOnly {
		tx.st.inventory[key] = inv
	}
	return &inv, nil
}

func (tx *memTx) UpdateInventoryItem(inv *domain.InventoryItem) error {
	if tx.readOnly {
		return ErrReadOnly
	}
	tx.st.inventory[inventoryKey{inv.User, inv.Item}] = *inv
	return nil
}

func (tx *memTx) ListInventory(user string) ([]*domain.InventoryItem, error) {
	var result []*domain.InventoryItem
	for k, inv := range tx.st.inventory {
		if k.user != user {
			continue
		}
		inv := inv
		result = append(result, &inv)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Item < result[j].Item })
	return result, nil
}

func (tx *memTx) CreateListing(l *domain.Listing) error {
	if tx.readOnly {
		return ErrReadOnly
	}
	tx.st.lastListingID++
	l.ID = tx.st.lastListingID
	tx.st.listings[l.ID] = *l
	tx.book(l.Item).insert(l)
	return nil
}

func (tx *memTx) GetListing(id int64) (*domain.Listing, error) {
	l, ok := tx.st.listings[id]
	if !ok {
		return nil, domain.ErrListingNotFound
	}
	return &l, nil
}

func (tx *memTx) UpdateListing(l *domain.Listing) error {
	if tx.readOnly {
		return ErrReadOnly
	}
	old, ok := tx.st.listings[l.ID]
	if !ok {
		return domain.ErrListingNotFound
	}
	book := tx.book(l.Item)
	book.remove(&old)
	book.insert(l)
	tx.st.listings[l.ID] = *l
	return nil
}

func (tx *memTx) DeleteListing(id int64) error {
	if tx.readOnly {
		return ErrReadOnly
	}
	old, ok := tx.st.listings[id]
	if !ok {
		return domain.ErrListingNotFound
	}
	tx.book(old.Item).remove(&old)
	delete(tx.st.listings, id)
	return nil
}

func (tx *memTx) BestListing(item string, dir domain.Direction) (*domain.Listing, bool, error) {
	book, ok := tx.st.books[item]
	if !ok {
		return nil, false, nil
	}
	entry, ok := book.best(dir)
	if !ok {
		return nil, false, nil
	}
	l := tx.st.listings[entry.ID]
	return &l, true, nil
}

func (tx *memTx) WalkListings(item string, dir domain.Direction, fn func(*domain.Listing) bool) error {
	book, ok := tx.st.books[item]
	if !ok {
		return nil
	}
	book.walk(dir, func(entry bookEntry) bool {
		l := tx.st.listings[entry.ID]
		return fn(&l)
	})
	return nil
}

func (tx *memTx) ListingsBySubmitter(user string, dir domain.Direction) ([]*domain.Listing, error) {
	var result []*domain.Listing
	for _, l := range tx.st.listings {
		if l.Submitter != user || l.Direction != dir {
			continue
		}
		l := l
		result = append(result, &l)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result, nil
}

// book returns the item's book, creating it on first write.
func (tx *memTx) book(item string) *listingBook {
	b, ok := tx.st.books[item]
	if !ok {
		b = newListingBook()
		tx.st.books[item] = b
	}
	return b
}
