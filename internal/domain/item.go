package domain

import "time"

// Item is the single tradable good of a market. Items are identified by
// their unique name.
type Item struct {
	Name      string
	CreatedAt time.Time
}
