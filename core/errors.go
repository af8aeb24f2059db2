package core

import (
	"errors"
	"fmt"
)

// Error kinds. Every specific error below wraps exactly one of them so the
// HTTP layer can map a failure with a single errors.Is check.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict")
)

var (
	ErrShopNotFound    = fmt.Errorf("shop %w", ErrNotFound)
	ErrServiceNotFound = fmt.Errorf("service %w", ErrNotFound)
	ErrOrderNotFound   = fmt.Errorf("order %w", ErrNotFound)
	ErrUserNotFound    = fmt.Errorf("user %w", ErrNotFound)

	ErrInvalidItems      = fmt.Errorf("%w: items must be a non-empty list with positive quantities", ErrInvalidInput)
	ErrInvalidTransition = fmt.Errorf("%w: status transition not allowed", ErrInvalidInput)
	ErrDuplicateShop     = fmt.Errorf("%w: you already have a registered shop", ErrInvalidInput)
	ErrInvalidPrice      = fmt.Errorf("%w: price must be between 0 and 99999999.99 with at most two decimal places", ErrInvalidInput)
	ErrOrderTooLarge     = fmt.Errorf("%w: order total exceeds 99999999.99", ErrInvalidInput)
	ErrInvalidRole       = fmt.Errorf("%w: role must be ADMIN, SHOP_OWNER or CUSTOMER", ErrInvalidInput)

	ErrInvalidCredentials = fmt.Errorf("%w: invalid email or password", ErrUnauthorized)
	ErrEmailTaken         = fmt.Errorf("%w: email already registered", ErrConflict)
)

// serviceNotFound names the offending service id while still matching
// ErrServiceNotFound and ErrNotFound.
func serviceNotFound(serviceID string) error {
	return fmt.Errorf("%w: %s", ErrServiceNotFound, serviceID)
}

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
