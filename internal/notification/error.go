package notification

import "errors"

var (
	// ErrSubscriptionGone is returned by a Sender when the endpoint will never
	// accept deliveries again. The subscription is pruned.
	ErrSubscriptionGone     = errors.New("subscription gone")
	ErrInvalidTarget        = errors.New("invalid notification target")
	ErrInvalidSchedule      = errors.New("scheduled time must be in the future")
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrPersistence          = errors.New("notification store error")
)
