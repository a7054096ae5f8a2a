package domain

import (
	"fmt"
	"time"
)

// Direction indicates whether a listing offers to buy or to sell.
type Direction string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
)

// ParseDirection converts a wire value into a Direction.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case DirectionBuy, DirectionSell:
		return Direction(s), nil
	}
	return "", &ValidationError{Message: fmt.Sprintf("direction must be 'buy' or 'sell', got %q", s)}
}

// Opposite returns the direction a listing is matched against.
func (d Direction) Opposite() Direction {
	if d == DirectionBuy {
		return DirectionSell
	}
	return DirectionBuy
}

// Listing is one open order. Count is the remaining quantity and is
// always positive; a listing whose count reaches zero is deleted.
type Listing struct {
	ID        int64
	Item      string
	Submitter string
	Direction Direction
	Count     int64 // remaining units
	Price     int64 // coins per unit
	CreatedAt time.Time
}

// Value returns price × count, the coins a BUY listing refunds on
// cancellation and the proceeds of fully filling a SELL listing. ok is
// false when the product overflows.
func (l *Listing) Value() (int64, bool) {
	return CheckedMul(l.Count, l.Price)
}

// Fill records one purchase against a SELL listing.
type Fill struct {
	ListingID int64
	Item      string
	Seller    string
	Buyer     string
	Count     int64
	Price     int64
	Remaining int64 // listing count after the fill, 0 when deleted
}

// Cost returns the coins moved from buyer to seller by the fill.
func (f *Fill) Cost() int64 {
	return f.Count * f.Price
}
