package order

import (
	"time"

	"nightbite-be/internal/auth"
)

type Status string

const (
	StatusPlaced         Status = "PLACED"
	StatusConfirmed      Status = "CONFIRMED"
	StatusPreparing      Status = "PREPARING"
	StatusReadyForPickup Status = "READY_FOR_PICKUP"
	StatusOutForDelivery Status = "OUT_FOR_DELIVERY"
	StatusDelivered      Status = "DELIVERED"
	StatusCancelled      Status = "CANCELLED"
)

// Order amounts are integer minor units. Totals are fixed at placement.
type Order struct {
	ID                    uint
	OrderNumber           string
	CustomerID            uint
	RestaurantID          uint
	DeliveryPartnerID     *uint
	Status                Status
	Subtotal              int64
	DeliveryFee           int64
	Tax                   int64
	Total                 int64
	VerificationCode      string
	DeliveryAddress       string
	Items                 []OrderItem
	CreatedAt             time.Time
	UpdatedAt             time.Time
	EstimatedDeliveryTime time.Time
	PickupTime            *time.Time
}

// OrderItem is a snapshot of a menu item taken when the order was placed.
type OrderItem struct {
	ID         uint
	OrderID    uint
	MenuItemID uint
	Name       string
	UnitPrice  int64
	Quantity   int
	Subtotal   int64
}

// StatusChange is one row of the order's audit trail.
type StatusChange struct {
	ID        uint
	OrderID   uint
	From      Status
	To        Status
	ActorID   uint
	ActorRole auth.Role
	ChangedAt time.Time
}

// Actor is whoever requests a change: a logged in user or an automated job.
type Actor struct {
	ID   uint
	Role auth.Role
}

// StatusUpdate is a conditional write: it applies only while the order is
// still in Expected.
type StatusUpdate struct {
	OrderID           uint
	Expected          Status
	Next              Status
	VerificationCode  *string
	DeliveryPartnerID *uint
	PickupTime        *time.Time
	Actor             Actor
	ChangedAt         time.Time
}

type PlaceOrderItem struct {
	MenuItemID uint `json:"menuItemId" validate:"required"`
	Quantity   int  `json:"quantity" validate:"required,min=1,max=50"`
}

type PlaceOrderInput struct {
	CustomerID      uint
	RestaurantID    uint
	DeliveryAddress string
	Items           []PlaceOrderItem
}
