package service

import (
	"fmt"
	"regexp"

	"github.com/efreitasn/marketplace/internal/domain"
)

var nameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// validateName checks user and item names, which also appear in store keys.
func validateName(field, v string) error {
	if !nameRegex.MatchString(v) {
		return &domain.ValidationError{Message: fmt.Sprintf("%s must match ^[a-zA-Z0-9_-]{1,64}$", field)}
	}
	return nil
}

func validatePositive(field string, v int64) error {
	if v <= 0 {
		return &domain.ValidationError{Message: fmt.Sprintf("%s must be a positive integer", field)}
	}
	return nil
}
