package domain

import "time"

// Webhook event types.
const (
	EventListingFilled    = "listing.filled"
	EventListingCancelled = "listing.cancelled"
)

// Webhook represents a user's subscription to an event notification.
type Webhook struct {
	WebhookID string
	User      string
	Event     string
	URL       string
	CreatedAt time.Time
	UpdatedAt time.Time
}
