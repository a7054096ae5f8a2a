package domain

import "errors"

// Sentinel errors for domain-level error handling.
// The handler layer maps these to HTTP status codes.
var (
	ErrInsufficientFunds     = errors.New("insufficient_funds")
	ErrInsufficientInventory = errors.New("insufficient_inventory")
	ErrCrossedBook           = errors.New("crossed_book")
	ErrInvalidDirection      = errors.New("invalid_direction")
	ErrExcessiveTake         = errors.New("excessive_take")
	ErrNoListings            = errors.New("no_listings")
	ErrItemNotFound          = errors.New("item_not_found")
	ErrItemAlreadyExists     = errors.New("item_already_exists")
	ErrInventoryItemNotFound = errors.New("inventory_item_not_found")
	ErrListingNotFound       = errors.New("listing_not_found")
	ErrNotListingOwner       = errors.New("not_listing_owner")
	ErrWebhookNotFound       = errors.New("webhook_not_found")
	ErrDuplicateRequest      = errors.New("duplicate_request")
	ErrAmountOverflow        = errors.New("amount_overflow")
	ErrNotWebhookOwner       = errors.New("not_webhook_owner")
)

// ValidationError represents a request validation failure.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Describe returns the human-readable message shown to users for a
// business error. Unknown errors yield their own text.
func Describe(err error) string {
	switch {
	case errors.Is(err, ErrInsufficientFunds):
		return "User does not have enough money"
	case errors.Is(err, ErrInsufficientInventory):
		return "User does not have enough items"
	case errors.Is(err, ErrCrossedBook):
		return "Listing price would cross the best opposing listing"
	case errors.Is(err, ErrInvalidDirection):
		return "Only sell listings can be purchased"
	case errors.Is(err, ErrExcessiveTake):
		return "Requested count exceeds the listing's remaining count"
	case errors.Is(err, ErrNoListings):
		return "No listings"
	case errors.Is(err, ErrItemNotFound):
		return "Item not found"
	case errors.Is(err, ErrItemAlreadyExists):
		return "Item already exists"
	case errors.Is(err, ErrInventoryItemNotFound):
		return "Inventory item not found"
	case errors.Is(err, ErrListingNotFound):
		return "Listing not found"
	case errors.Is(err, ErrNotListingOwner):
		return "Listing belongs to another user"
	case errors.Is(err, ErrWebhookNotFound):
		return "Webhook not found"
	case errors.Is(err, ErrDuplicateRequest):
		return "Request has already been processed"
	case errors.Is(err, ErrAmountOverflow):
		return "Amount exceeds the largest supported value"
	case errors.Is(err, ErrNotWebhookOwner):
		return "Webhook belongs to another user"
	}
	return err.Error()
}
