package handler

import (
	"net/http"
	"strconv"

	"github.com/efreitasn/marketplace/internal/domain"
	"github.com/efreitasn/marketplace/internal/service"
	"github.com/go-chi/chi/v5"
)

// ItemHandler handles the item catalog, quotes and purchases.
type ItemHandler struct {
	itemSvc    *service.ItemService
	listingSvc *service.ListingService
}

// NewItemHandler creates a new ItemHandler.
func NewItemHandler(itemSvc *service.ItemService, listingSvc *service.ListingService) *ItemHandler {
	return &ItemHandler{itemSvc: itemSvc, listingSvc: listingSvc}
}

type createItemRequest struct {
	Name string `json:"name"`
}

type itemResponse struct {
	Name          string `json:"name"`
	CreatedAt     string `json:"created_at"`
	BestBuyPrice  *int64 `json:"best_buy_price,omitempty"`
	BestSellPrice *int64 `json:"best_sell_price,omitempty"`
}

type itemListResponse struct {
	Items []itemResponse `json:"items"`
}

type priceLevelResponse struct {
	Price int64 `json:"price"`
	Count int64 `json:"count"`
}

type quoteResponse struct {
	Item           string               `json:"item"`
	Requested      int64                `json:"requested"`
	CountAvailable int64                `json:"count_available"`
	FullyFillable  bool                 `json:"fully_fillable"`
	TotalCost      int64                `json:"total_cost"`
	PriceLevels    []priceLevelResponse `json:"price_levels"`
}

// buyRequest places a BUY listing when CreateListing is set and executes
// a market buy otherwise.
type buyRequest struct {
	User          string `json:"user"`
	Count         int64  `json:"count"`
	Price         *int64 `json:"price"`
	CreateListing bool   `json:"create_listing"`
}

// Create handles POST /items.
func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	item, err := h.itemSvc.Create(r.Context(), req.Name)
	if err != nil {
		mapError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, itemResponse{Name: item.Name, CreatedAt: formatTime(item.CreatedAt)})
}

// List handles GET /items.
func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.itemSvc.List(r.Context())
	if err != nil {
		mapError(w, err)
		return
	}

	resp := itemListResponse{Items: make([]itemResponse, len(items))}
	for i, item := range items {
		resp.Items[i] = itemResponse{Name: item.Name, CreatedAt: formatTime(item.CreatedAt)}
	}
	WriteJSON(w, http.StatusOK, resp)
}

// Get handles GET /items/{item}.
func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	summary, err := h.itemSvc.Get(r.Context(), chi.URLParam(r, "item"))
	if err != nil {
		mapError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, itemResponse{
		Name:          summary.Item.Name,
		CreatedAt:     formatTime(summary.Item.CreatedAt),
		BestBuyPrice:  summary.BestBuyPrice,
		BestSellPrice: summary.BestSellPrice,
	})
}

// Quote handles GET /items/{item}/quote?count=N.
func (h *ItemHandler) Quote(w http.ResponseWriter, r *http.Request) {
	item := chi.URLParam(r, "item")
	count, err := strconv.ParseInt(r.URL.Query().Get("count"), 10, 64)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "validation_error", "count query parameter must be a positive integer")
		return
	}

	quote, err := h.itemSvc.Quote(r.Context(), item, count)
	if err != nil {
		mapError(w, err)
		return
	}

	levels := make([]priceLevelResponse, len(quote.PriceLevels))
	for i, lvl := range quote.PriceLevels {
		levels[i] = priceLevelResponse{Price: lvl.Price, Count: lvl.Count}
	}
	WriteJSON(w, http.StatusOK, quoteResponse{
		Item:           item,
		Requested:      count,
		CountAvailable: quote.CountAvailable,
		FullyFillable:  quote.FullyFillable,
		TotalCost:      quote.TotalCost,
		PriceLevels:    levels,
	})
}

// Buy handles POST /items/{item}/buy.
func (h *ItemHandler) Buy(w http.ResponseWriter, r *http.Request) {
	var req buyRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	item := chi.URLParam(r, "item")

	if req.CreateListing {
		if req.Price == nil {
			mapError(w, &domain.ValidationError{Message: "price is required when create_listing is set"})
			return
		}
		listing, err := h.listingSvc.PlaceBuyListing(r.Context(), req.User, item, req.Count, *req.Price)
		if err != nil {
			mapError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, buildListingResponse(listing))
		return
	}

	if req.Price != nil {
		mapError(w, &domain.ValidationError{Message: "price is only accepted with create_listing"})
		return
	}
	res, err := h.listingSvc.MarketBuy(r.Context(), req.User, item, req.Count)
	if err != nil {
		mapError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildMarketBuyResponse(item, req.User, req.Count, res))
}
