package handler

import (
	"net/http"
	"strconv"

	"github.com/efreitasn/marketplace/internal/service"
	"github.com/go-chi/chi/v5"
)

// UserHandler handles per-user endpoints: wallet, inventory, own listings
// and the dashboard.
type UserHandler struct {
	accountSvc *service.AccountService
	listingSvc *service.ListingService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(accountSvc *service.AccountService, listingSvc *service.ListingService) *UserHandler {
	return &UserHandler{accountSvc: accountSvc, listingSvc: listingSvc}
}

type amountRequest struct {
	Amount int64 `json:"amount"`
}

type countRequest struct {
	Count int64 `json:"count"`
}

type sellRequest struct {
	Count int64 `json:"count"`
	Price int64 `json:"price"`
}

type walletResponse struct {
	User  string `json:"user"`
	Coins int64  `json:"coins"`
}

type inventoryItemResponse struct {
	Item  string `json:"item"`
	Count int64  `json:"count"`
}

type dashboardResponse struct {
	User         string                  `json:"user"`
	Coins        int64                   `json:"coins"`
	SellListings []listingResponse       `json:"sell_listings"`
	BuyListings  []listingResponse       `json:"buy_listings"`
	Inventory    []inventoryItemResponse `json:"inventory"`
}

// Dashboard handles GET /users/{user}/dashboard.
func (h *UserHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	user := chi.URLParam(r, "user")
	d, err := h.accountSvc.Dashboard(r.Context(), user)
	if err != nil {
		mapError(w, err)
		return
	}

	inventory := make([]inventoryItemResponse, len(d.Inventory))
	for i, inv := range d.Inventory {
		inventory[i] = inventoryItemResponse{Item: inv.Item, Count: inv.Count}
	}
	WriteJSON(w, http.StatusOK, dashboardResponse{
		User:         user,
		Coins:        d.Wallet.Coins,
		SellListings: buildListingResponses(d.SellListings),
		BuyListings:  buildListingResponses(d.BuyListings),
		Inventory:    inventory,
	})
}

// Credit handles POST /users/{user}/wallet/credit.
func (h *UserHandler) Credit(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	wallet, err := h.accountSvc.Credit(r.Context(), chi.URLParam(r, "user"), req.Amount)
	if err != nil {
		mapError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, walletResponse{User: wallet.User, Coins: wallet.Coins})
}

// Debit handles POST /users/{user}/wallet/debit.
func (h *UserHandler) Debit(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	wallet, err := h.accountSvc.Debit(r.Context(), chi.URLParam(r, "user"), req.Amount)
	if err != nil {
		mapError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, walletResponse{User: wallet.User, Coins: wallet.Coins})
}

// Grant handles POST /users/{user}/inventory/{item}.
func (h *UserHandler) Grant(w http.ResponseWriter, r *http.Request) {
	var req countRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	inv, err := h.accountSvc.Grant(r.Context(), chi.URLParam(r, "user"), chi.URLParam(r, "item"), req.Count)
	if err != nil {
		mapError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, inventoryItemResponse{Item: inv.Item, Count: inv.Count})
}

// Sell handles POST /users/{user}/inventory/{item}/sell.
func (h *UserHandler) Sell(w http.ResponseWriter, r *http.Request) {
	var req sellRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	listing, err := h.listingSvc.Sell(r.Context(), chi.URLParam(r, "user"), chi.URLParam(r, "item"), req.Count, req.Price)
	if err != nil {
		mapError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, buildListingResponse(listing))
}

// CancelListing handles DELETE /users/{user}/listings/{listing_id}.
func (h *UserHandler) CancelListing(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "listing_id"), 10, 64)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "validation_error", "listing_id must be an integer")
		return
	}
	listing, err := h.listingSvc.Cancel(r.Context(), chi.URLParam(r, "user"), id)
	if err != nil {
		mapError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildListingResponse(listing))
}
