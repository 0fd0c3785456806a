package order

import "time"

type OrderItemResponse struct {
	MenuItemID uint   `json:"menuItemId"`
	Name       string `json:"name"`
	UnitPrice  int64  `json:"unitPrice"`
	Quantity   int    `json:"quantity"`
	Subtotal   int64  `json:"subtotal"`
}

type OrderResponse struct {
	OrderNumber           string              `json:"orderNumber"`
	Status                Status              `json:"status"`
	CustomerID            uint                `json:"customerId"`
	RestaurantID          uint                `json:"restaurantId"`
	DeliveryPartnerID     *uint               `json:"deliveryPartnerId,omitempty"`
	Subtotal              int64               `json:"subtotal"`
	DeliveryFee           int64               `json:"deliveryFee"`
	Tax                   int64               `json:"tax"`
	Total                 int64               `json:"total"`
	VerificationCode      string              `json:"verificationCode,omitempty"`
	DeliveryAddress       string              `json:"deliveryAddress"`
	Items                 []OrderItemResponse `json:"items"`
	CreatedAt             time.Time           `json:"createdAt"`
	EstimatedDeliveryTime time.Time           `json:"estimatedDeliveryTime"`
	PickupTime            *time.Time          `json:"pickupTime,omitempty"`
}

type StatusChangeResponse struct {
	From      Status    `json:"from,omitempty"`
	To        Status    `json:"to"`
	ActorID   uint      `json:"actorId"`
	ActorRole string    `json:"actorRole"`
	ChangedAt time.Time `json:"changedAt"`
}

// ToResponse projects an order for the API. The verification code is only
// shown to its customer.
func ToResponse(o *Order, viewer Actor) *OrderResponse {
	if o == nil {
		return nil
	}

	items := make([]OrderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemResponse{
			MenuItemID: it.MenuItemID,
			Name:       it.Name,
			UnitPrice:  it.UnitPrice,
			Quantity:   it.Quantity,
			Subtotal:   it.Subtotal,
		})
	}

	resp := &OrderResponse{
		OrderNumber:           o.OrderNumber,
		Status:                o.Status,
		CustomerID:            o.CustomerID,
		RestaurantID:          o.RestaurantID,
		DeliveryPartnerID:     o.DeliveryPartnerID,
		Subtotal:              o.Subtotal,
		DeliveryFee:           o.DeliveryFee,
		Tax:                   o.Tax,
		Total:                 o.Total,
		DeliveryAddress:       o.DeliveryAddress,
		Items:                 items,
		CreatedAt:             o.CreatedAt,
		EstimatedDeliveryTime: o.EstimatedDeliveryTime,
		PickupTime:            o.PickupTime,
	}
	if IsCodeHolder(viewer, o) {
		resp.VerificationCode = o.VerificationCode
	}
	return resp
}

func ToHistoryResponse(changes []StatusChange) []StatusChangeResponse {
	out := make([]StatusChangeResponse, 0, len(changes))
	for _, c := range changes {
		out = append(out, StatusChangeResponse{
			From:      c.From,
			To:        c.To,
			ActorID:   c.ActorID,
			ActorRole: string(c.ActorRole),
			ChangedAt: c.ChangedAt,
		})
	}
	return out
}
