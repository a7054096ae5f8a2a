package engine

import (
	"fmt"
	"time"

	"github.com/efreitasn/marketplace/internal/domain"
)

// Engine implements the ledger mutations and matching rules of the
// marketplace. Every method operates on the store.Tx it is given and
// re-reads the records it touches, so any number of calls can be
// composed inside one atomic section.
type Engine struct {
	now func() time.Time
}

// New creates an Engine that stamps listings with the wall clock.
func New() *Engine {
	return &Engine{now: time.Now}
}

func requirePositive(field string, v int64) error {
	if v <= 0 {
		return &domain.ValidationError{Message: fmt.Sprintf("%s must be a positive integer", field)}
	}
	return nil
}

// requireValue rejects listings whose total value count × price does not
// fit in a coin balance.
func requireValue(count, price int64) error {
	if _, ok := domain.CheckedMul(count, price); !ok {
		return &domain.ValidationError{Message: "count * price exceeds the largest supported coin amount"}
	}
	return nil
}
