package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/efreitasn/marketplace/internal/domain"
)

// WriteJSON writes a JSON response with the given status code and data.
// Sets Content-Type to application/json before writing the status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError writes a standard error response with the given status code,
// error code, and human-readable message.
func WriteError(w http.ResponseWriter, status int, errorCode, message string) {
	WriteJSON(w, status, errorResponse{
		Error:   errorCode,
		Message: message,
	})
}

// ParseJSON decodes the request body as JSON into v. Unknown fields are
// rejected.
func ParseJSON(r *http.Request, v any) error {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(ct, "application/json") {
		return fmt.Errorf("Request body must be valid JSON with Content-Type: application/json")
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("Request body must be valid JSON with Content-Type: application/json")
	}
	return nil
}

// errorStatuses maps business errors to HTTP statuses. The error code in
// the body is the sentinel's own text.
var errorStatuses = []struct {
	err    error
	status int
}{
	{domain.ErrInsufficientFunds, http.StatusUnprocessableEntity},
	{domain.ErrInsufficientInventory, http.StatusUnprocessableEntity},
	{domain.ErrNoListings, http.StatusUnprocessableEntity},
	{domain.ErrAmountOverflow, http.StatusUnprocessableEntity},
	{domain.ErrCrossedBook, http.StatusConflict},
	{domain.ErrInvalidDirection, http.StatusConflict},
	{domain.ErrExcessiveTake, http.StatusConflict},
	{domain.ErrItemAlreadyExists, http.StatusConflict},
	{domain.ErrDuplicateRequest, http.StatusConflict},
	{domain.ErrItemNotFound, http.StatusNotFound},
	{domain.ErrInventoryItemNotFound, http.StatusNotFound},
	{domain.ErrListingNotFound, http.StatusNotFound},
	{domain.ErrWebhookNotFound, http.StatusNotFound},
	{domain.ErrNotListingOwner, http.StatusForbidden},
	{domain.ErrNotWebhookOwner, http.StatusForbidden},
}

// mapError writes the HTTP response for an error returned by a service.
func mapError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		WriteError(w, http.StatusBadRequest, "validation_error", validationErr.Message)
		return
	}

	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			WriteError(w, e.status, e.err.Error(), domain.Describe(err))
			return
		}
	}
	WriteError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
