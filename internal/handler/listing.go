package handler

import (
	"fmt"

	"github.com/efreitasn/marketplace/internal/domain"
	"github.com/efreitasn/marketplace/internal/engine"
)

type listingResponse struct {
	ID        int64  `json:"id"`
	Item      string `json:"item"`
	User      string `json:"user"`
	Direction string `json:"direction"`
	Count     int64  `json:"count"`
	Price     int64  `json:"price"`
	CreatedAt string `json:"created_at"`
}

func buildListingResponse(l *domain.Listing) listingResponse {
	return listingResponse{
		ID:        l.ID,
		Item:      l.Item,
		User:      l.Submitter,
		Direction: string(l.Direction),
		Count:     l.Count,
		Price:     l.Price,
		CreatedAt: formatTime(l.CreatedAt),
	}
}

func buildListingResponses(listings []*domain.Listing) []listingResponse {
	result := make([]listingResponse, len(listings))
	for i, l := range listings {
		result[i] = buildListingResponse(l)
	}
	return result
}

type fillResponse struct {
	ListingID int64  `json:"listing_id"`
	Seller    string `json:"seller"`
	Count     int64  `json:"count"`
	Price     int64  `json:"price"`
}

type marketBuyResponse struct {
	Item           string         `json:"item"`
	User           string         `json:"user"`
	Requested      int64          `json:"requested"`
	ItemsPurchased int64          `json:"items_purchased"`
	CoinsSpent     int64          `json:"coins_spent"`
	Message        string         `json:"message"`
	Fills          []fillResponse `json:"fills"`
}

func buildMarketBuyResponse(item, user string, requested int64, res *engine.MarketBuyResult) marketBuyResponse {
	fills := make([]fillResponse, len(res.Fills))
	for i, f := range res.Fills {
		fills[i] = fillResponse{
			ListingID: f.ListingID,
			Seller:    f.Seller,
			Count:     f.Count,
			Price:     f.Price,
		}
	}
	return marketBuyResponse{
		Item:           item,
		User:           user,
		Requested:      requested,
		ItemsPurchased: res.ItemsPurchased,
		CoinsSpent:     res.CoinsSpent,
		Message:        fmt.Sprintf("Bought %d of %d %s for %d coins", res.ItemsPurchased, requested, item, res.CoinsSpent),
		Fills:          fills,
	}
}
