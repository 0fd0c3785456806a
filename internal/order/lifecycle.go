package order

import (
	"fmt"

	"nightbite-be/internal/auth"
)

// sequence is the canonical forward path. CANCELLED sits outside it.
var sequence = []Status{
	StatusPlaced,
	StatusConfirmed,
	StatusPreparing,
	StatusReadyForPickup,
	StatusOutForDelivery,
	StatusDelivered,
}

type TransitionMode int

const (
	// ModeStrict allows only the single next status.
	ModeStrict TransitionMode = iota
	// ModeOverride allows skipping forward and cancelling. Admin only.
	ModeOverride
)

func (m TransitionMode) String() string {
	if m == ModeOverride {
		return "override"
	}
	return "strict"
}

// NextStatus returns the status after current in the forward sequence.
// It reports false for DELIVERED and for statuses outside the sequence.
func NextStatus(current Status) (Status, bool) {
	i := position(current)
	if i < 0 || i == len(sequence)-1 {
		return "", false
	}
	return sequence[i+1], true
}

func IsTerminal(s Status) bool {
	return s == StatusDelivered || s == StatusCancelled
}

func (s Status) Valid() bool {
	return s == StatusCancelled || position(s) >= 0
}

func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidStatusTransition, raw)
	}
	return s, nil
}

func position(s Status) int {
	for i, v := range sequence {
		if v == s {
			return i
		}
	}
	return -1
}

// CheckTransition validates from -> to under the given mode.
func CheckTransition(from, to Status, mode TransitionMode) error {
	if IsTerminal(from) {
		return fmt.Errorf("%w: order is already %s", ErrInvalidStatusTransition, from)
	}
	if !to.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidStatusTransition, to)
	}

	if mode == ModeOverride {
		if to == StatusCancelled {
			return nil
		}
		if position(to) <= position(from) {
			return fmt.Errorf("%w: %s -> %s is not forward", ErrInvalidStatusTransition, from, to)
		}
		return nil
	}

	next, ok := NextStatus(from)
	if !ok || to != next {
		return fmt.Errorf("%w: %s -> %s (expected %s)", ErrInvalidStatusTransition, from, to, next)
	}
	if to == StatusOutForDelivery {
		return fmt.Errorf("%w: %s requires verification handover", ErrInvalidStatusTransition, to)
	}
	return nil
}

// ModeFor picks the transition mode for an actor.
func ModeFor(role auth.Role) TransitionMode {
	if role == auth.RoleAdmin {
		return ModeOverride
	}
	return ModeStrict
}

// CanDrive reports whether role may move an order into target.
func CanDrive(role auth.Role, target Status) bool {
	switch role {
	case auth.RoleAdmin:
		return true
	case auth.RoleRestaurant:
		return target == StatusConfirmed || target == StatusPreparing || target == StatusReadyForPickup
	case auth.RoleDeliveryPartner, auth.RoleSystem:
		return target == StatusDelivered
	}
	return false
}

// CanHandover reports whether role may submit a verification code.
func CanHandover(role auth.Role) bool {
	return role == auth.RoleRestaurant || role == auth.RoleDeliveryPartner || role == auth.RoleAdmin
}

// IsOtherPartner reports whether actor is a delivery partner other than the
// one assigned to o. Unassigned orders belong to nobody yet.
func IsOtherPartner(actor Actor, o *Order) bool {
	return actor.Role == auth.RoleDeliveryPartner &&
		o.DeliveryPartnerID != nil && *o.DeliveryPartnerID != actor.ID
}

// IsCodeHolder reports whether viewer is the customer who owns the
// verification code of o.
func IsCodeHolder(viewer Actor, o *Order) bool {
	return viewer.Role == auth.RoleCustomer && viewer.ID == o.CustomerID
}
