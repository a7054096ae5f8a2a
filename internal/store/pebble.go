package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/cockroachdb/pebble"

	"github.com/efreitasn/marketplace/internal/domain"
)

// PebbleStore is a durable ledger backed by Pebble. Writers are
// serialized; each Update stages its writes in an indexed batch that is
// committed with fsync or discarded as a whole.
type PebbleStore struct {
	mu sync.Mutex
	db *pebble.DB
}

// NewPebbleStore opens (or creates) a Pebble database at path.
func NewPebbleStore(path string) (*PebbleStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble: %w", err)
	}
	return &PebbleStore{db: db}, nil
}

// Close implements Store.
func (s *PebbleStore) Close() error { return s.db.Close() }

// Update implements Store.
func (s *PebbleStore) Update(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	batch := s.db.NewIndexedBatch()
	defer batch.Close()

	if err := fn(&pebbleTx{r: batch, b: batch}); err != nil {
		return err
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// View implements Store.
func (s *PebbleStore) View(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	snap := s.db.NewSnapshot()
	defer snap.Close()

	return fn(&pebbleTx{r: snap})
}

// pebbleReader is satisfied by both *pebble.Batch and *pebble.Snapshot.
type pebbleReader interface {
	Get(key []byte) ([]byte, io.Closer, error)
	NewIter(o *pebble.IterOptions) (*pebble.Iterator, error)
}

type pebbleTx struct {
	r pebbleReader
	b *pebble.Batch // nil for read-only transactions
}

func (tx *pebbleTx) getJSON(key []byte, v any) (bool, error) {
	data, closer, err := tx.r.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	defer closer.Close()

	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (tx *pebbleTx) set(key, value []byte) error {
	if tx.b == nil {
		return ErrReadOnly
	}
	if err := tx.b.Set(key, value, nil); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (tx *pebbleTx) setJSON(key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return tx.set(key, data)
}

func (tx *pebbleTx) delete(key []byte) error {
	if tx.b == nil {
		return ErrReadOnly
	}
	if err := tx.b.Delete(key, nil); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// scan visits every key under prefix in ascending (or descending) order
// until fn returns false. Key and value are only valid during fn.
func (tx *pebbleTx) scan(prefix []byte, reverse bool, fn func(key, value []byte) (bool, error)) error {
	iter, err := tx.r.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return fmt.Errorf("new iterator: %w", err)
	}

	valid, step := iter.First, iter.Next
	if reverse {
		valid, step = iter.Last, iter.Prev
	}
	for ok := valid(); ok; ok = step() {
		more, err := fn(iter.Key(), iter.Value())
		if err != nil {
			iter.Close()
			return err
		}
		if !more {
			break
		}
	}
	return iter.Close()
}

// listingIDs collects the listing IDs stored as values under prefix.
func (tx *pebbleTx) listingIDs(prefix []byte, reverse bool, limit int) ([]int64, error) {
	var ids []int64
	err := tx.scan(prefix, reverse, func(_, value []byte) (bool, error) {
		id, err := strconv.ParseInt(string(value), 10, 64)
		if err != nil {
			return false, fmt.Errorf("decode listing id: %w", err)
		}
		ids = append(ids, id)
		return limit <= 0 || len(ids) < limit, nil
	})
	return ids, err
}

func (tx *pebbleTx) CreateItem(item *domain.Item) error {
	var existing domain.Item
	found, err := tx.getJSON(kItem(item.Name), &existing)
	if err != nil {
		return err
	}
	if found {
		return domain.ErrItemAlreadyExists
	}
	return tx.setJSON(kItem(item.Name), item)
}

func (tx *pebbleTx) GetItem(name string) (*domain.Item, error) {
	var item domain.Item
	found, err := tx.getJSON(kItem(name), &item)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, domain.ErrItemNotFound
	}
	return &item, nil
}

func (tx *pebbleTx) ListItems() ([]*domain.Item, error) {
	items := []*domain.Item{}
	err := tx.scan([]byte(prefixItem), false, func(_, value []byte) (bool, error) {
		var item domain.Item
		if err := json.Unmarshal(value, &item); err != nil {
			return false, fmt.Errorf("decode item: %w", err)
		}
		items = append(items, &item)
		return true, nil
	})
	return items, err
}

func (tx *pebbleTx) GetOrCreateWallet(user string) (*domain.Wallet, error) {
	var w domain.Wallet
	found, err := tx.getJSON(kWallet(user), &w)
	if err != nil {
		return nil, err
	}
	if found {
		return &w, nil
	}
	w = domain.Wallet{User: user}
	if tx.b != nil {
		if err := tx.setJSON(kWallet(user), &w); err != nil {
			return nil, err
		}
	}
	return &w, nil
}

func (tx *pebbleTx) UpdateWallet(w *domain.Wallet) error {
	return tx.setJSON(kWallet(w.User), w)
}

func (tx *pebbleTx) GetInventoryItem(user, item string) (*domain.InventoryItem, error) {
	var inv domain.InventoryItem
	found, err := tx.getJSON(kInventory(user, item), &inv)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, domain.ErrInventoryItemNotFound
	}
	return &inv, nil
}

func (tx *pebbleTx) GetOrCreateInventoryItem(user, item string) (*domain.InventoryItem, error) {
	inv, err := tx.GetInventoryItem(user, item)
	if err == nil {
		return inv, nil
	}
	if !errors.Is(err, domain.ErrInventoryItemNotFound) {
		return nil, err
	}
	inv = &domain.InventoryItem{User: user, Item: item}
	if tx.b != nil {
		if err := tx.setJSON(kInventory(user, item), inv); err != nil {
			return nil, err
		}
	}
	return inv, nil
}

func (tx *pebbleTx) UpdateInventoryItem(inv *domain.InventoryItem) error {
	return tx.setJSON(kInventory(inv.User, inv.Item), inv)
}

func (tx *pebbleTx) ListInventory(user string) ([]*domain.InventoryItem, error) {
	var result []*domain.InventoryItem
	err := tx.scan(kInventoryPrefix(user), false, func(_, value []byte) (bool, error) {
		var inv domain.InventoryItem
		if err := json.Unmarshal(value, &inv); err != nil {
			return false, fmt.Errorf("decode inventory item: %w", err)
		}
		result = append(result, &inv)
		return true, nil
	})
	return result, err
}

func (tx *pebbleTx) CreateListing(l *domain.Listing) error {
	if tx.b == nil {
		return ErrReadOnly
	}
	var last int64
	if _, err := tx.getJSON(kListingSeq(), &last); err != nil {
		return err
	}
	l.ID = last + 1
	if err := tx.setJSON(kListingSeq(), l.ID); err != nil {
		return err
	}
	return tx.putListing(l)
}

// putListing writes the listing record and both of its index entries.
func (tx *pebbleTx) putListing(l *domain.Listing) error {
	if err := tx.setJSON(kListing(l.ID), l); err != nil {
		return err
	}
	id := []byte(strconv.FormatInt(l.ID, 10))
	if err := tx.set(kBook(l), id); err != nil {
		return err
	}
	return tx.set(kSubmitter(l), id)
}

func (tx *pebbleTx) removeListing(l *domain.Listing) error {
	if err := tx.delete(kBook(l)); err != nil {
		return err
	}
	if err := tx.delete(kSubmitter(l)); err != nil {
		return err
	}
	return tx.delete(kListing(l.ID))
}

func (tx *pebbleTx) GetListing(id int64) (*domain.Listing, error) {
	var l domain.Listing
	found, err := tx.getJSON(kListing(id), &l)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, domain.ErrListingNotFound
	}
	return &l, nil
}

func (tx *pebbleTx) UpdateListing(l *domain.Listing) error {
	old, err := tx.GetListing(l.ID)
	if err != nil {
		return err
	}
	if err := tx.removeListing(old); err != nil {
		return err
	}
	return tx.putListing(l)
}

func (tx *pebbleTx) DeleteListing(id int64) error {
	old, err := tx.GetListing(id)
	if err != nil {
		return err
	}
	return tx.removeListing(old)
}

func (tx *pebbleTx) BestListing(item string, dir domain.Direction) (*domain.Listing, bool, error) {
	ids, err := tx.listingIDs(kBookPrefix(item, dir), false, 1)
	if err != nil {
		return nil, false, err
	}
	if len(ids) == 0 {
		return nil, false, nil
	}
	l, err := tx.GetListing(ids[0])
	if err != nil {
		return nil, false, err
	}
	return l, true, nil
}

func (tx *pebbleTx) WalkListings(item string, dir domain.Direction, fn func(*domain.Listing) bool) error {
	ids, err := tx.listingIDs(kBookPrefix(item, dir), false, 0)
	if err != nil {
		return err
	}
	for _, id := range ids {
		l, err := tx.GetListing(id)
		if err != nil {
			return err
		}
		if !fn(l) {
			return nil
		}
	}
	return nil
}

func (tx *pebbleTx) ListingsBySubmitter(user string, dir domain.Direction) ([]*domain.Listing, error) {
	ids, err := tx.listingIDs(kSubmitterPrefix(user, dir), true, 0)
	if err != nil {
		return nil, err
	}
	result := make([]*domain.Listing, 0, len(ids))
	for _, id := range ids {
		l, err := tx.GetListing(id)
		if err != nil {
			return nil, err
		}
		result = append(result, l)
	}
	return result, nil
}
