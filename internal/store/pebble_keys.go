package store

import (
	"fmt"
	"math"

	"github.com/efreitasn/marketplace/internal/domain"
)

// Key schema for the Pebble ledger:
//
//	item:<name>                          → Item
//	wal:<user>                           → Wallet
//	inv:<user>:<item>                    → InventoryItem
//	lst:<id>                             → Listing
//	book:<item>:<b|s>:<priceKey>:<id>    → listing ID (best first)
//	sub:<user>:<b|s>:<id>                → listing ID
//	seq:listing                          → last assigned listing ID
//
// Numbers are zero-padded to 20 digits so lexicographic order matches
// numeric order. Buy prices are stored as MaxInt64-price so that a forward
// scan of either side yields the best listing first.
const (
	prefixItem      = "item:"
	prefixWallet    = "wal:"
	prefixInventory = "inv:"
	prefixListing   = "lst:"
	prefixBook      = "book:"
	prefixSubmitter = "sub:"
)

func kItem(name string) []byte { return []byte(prefixItem + name) }
func kWallet(user string) []byte { return []byte(prefixWallet + user) }
func kListingSeq() []byte        { return []byte("seq:listing") }

func kInventory(user, item string) []byte {
	return []byte(fmt.Sprintf("%s%s:%s", prefixInventory, user, item))
}

func kInventoryPrefix(user string) []byte {
	return []byte(fmt.Sprintf("%s%s:", prefixInventory, user))
}

func kListing(id int64) []byte {
	return []byte(fmt.Sprintf("%s%020d", prefixListing, id))
}

func sideTag(dir domain.Direction) string {
	if dir == domain.DirectionBuy {
		return "b"
	}
	return "s"
}

func priceKey(dir domain.Direction, price int64) int64 {
	if dir == domain.DirectionBuy {
		return math.MaxInt64 - price
	}
	return price
}

func kBookPrefix(item string, dir domain.Direction) []byte {
	return []byte(fmt.Sprintf("%s%s:%s:", prefixBook, item, sideTag(dir)))
}

func kBook(l *domain.Listing) []byte {
	return []byte(fmt.Sprintf("%s%s:%s:%020d:%020d",
		prefixBook, l.Item, sideTag(l.Direction), priceKey(l.Direction, l.Price), l.ID))
}

func kSubmitterPrefix(user string, dir domain.Direction) []byte {
	return []byte(fmt.Sprintf("%s%s:%s:", prefixSubmitter, user, sideTag(dir)))
}

func kSubmitter(l *domain.Listing) []byte {
	return []byte(fmt.Sprintf("%s%s:%s:%020d", prefixSubmitter, l.Submitter, sideTag(l.Direction), l.ID))
}

// keyUpperBound returns the exclusive upper bound for a prefix scan.
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}
