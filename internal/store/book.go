package store

import (
	"github.com/efreitasn/marketplace/internal/domain"
	"github.com/google/btree"
)

// bookEntry is the ordering key of one open listing.
type bookEntry struct {
	Price int64
	ID    int64
}

// buyLess orders the buy side by price descending, then listing ID
// ascending, so Min() returns the best buy.
func buyLess(a, b bookEntry) bool {
	if a.Price != b.Price {
		return a.Price > b.Price
	}
	return a.ID < b.ID
}

// sellLess orders the sell side by price ascending, then listing ID
// ascending, so Min() returns the best sell.
func sellLess(a, b bookEntry) bool {
	if a.Price != b.Price {
		return a.Price < b.Price
	}
	return a.ID < b.ID
}

// listingBook indexes the open listings of a single item by side.
type listingBook struct {
	buys  *btree.BTreeG[bookEntry]
	sells *btree.BTreeG[bookEntry]
}

func newListingBook() *listingBook {
	const degree = 32
	return &listingBook{
		buys:  btree.NewG[bookEntry](degree, buyLess),
		sells: btree.NewG[bookEntry](degree, sellLess),
	}
}

func (b *listingBook) side(dir domain.Direction) *btree.BTreeG[bookEntry] {
	if dir == domain.DirectionBuy {
		return b.buys
	}
	return b.sells
}

func (b *listingBook) insert(l *domain.Listing) {
	b.side(l.Direction).ReplaceOrInsert(bookEntry{Price: l.Price, ID: l.ID})
}

func (b *listingBook) remove(l *domain.Listing) {
	b.side(l.Direction).Delete(bookEntry{Price: l.Price, ID: l.ID})
}

func (b *listingBook) best(dir domain.Direction) (bookEntry, bool) {
	return b.side(dir).Min()
}

// walk iterates one side in priority order. fn returns false to stop.
func (b *listingBook) walk(dir domain.Direction, fn func(bookEntry) bool) {
	b.side(dir).Ascend(fn)
}

// clone returns a lazily copied book; writes to either copy do not
// affect the other.
func (b *listingBook) clone() *listingBook {
	return &listingBook{
		buys:  b.buys.Clone(),
		sells: b.sells.Clone(),
	}
}
