package order

import "errors"

var (
	// -- Lookup --
	ErrOrderNotFound = errors.New("order not found")

	// -- Lifecycle --
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrInvalidVerificationCode = errors.New("invalid verification code")
	ErrTooManyAttempts         = errors.New("too many verification attempts")
	ErrConflict                = errors.New("order was modified concurrently")

	// -- Access --
	ErrForbidden = errors.New("actor may not perform this action")

	// -- Placement --
	ErrEmptyOrder          = errors.New("order has no items")
	ErrMenuItemUnavailable = errors.New("menu item unavailable")

	// -- Store --
	ErrPersistence = errors.New("order store failure")
)
