package notification

import (
	"context"
	"fmt"

	"nightbite-be/internal/logger"
	"nightbite-be/internal/order"

	"go.uber.org/zap"
)

var statusMessages = map[order.Status]string{
	order.StatusPlaced:         "We received order %s.",
	order.StatusConfirmed:      "The restaurant confirmed order %s.",
	order.StatusPreparing:      "Order %s is being prepared.",
	order.StatusReadyForPickup: "Order %s is ready. Keep your verification code handy.",
	order.StatusOutForDelivery: "Order %s is on its way.",
	order.StatusDelivered:      "Order %s was delivered. Enjoy your meal!",
	order.StatusCancelled:      "Order %s was cancelled.",
}

// StatusNotifier pushes a message to the customer on every order status
// change. Failures are logged and never reach the caller.
type StatusNotifier struct {
	svc Service
}

func NewStatusNotifier(svc Service) *StatusNotifier {
	return &StatusNotifier{svc: svc}
}

func (n *StatusNotifier) OrderStatusChanged(ctx context.Context, o *order.Order, from order.Status) {
	tmpl, ok := statusMessages[o.Status]
	if !ok {
		return
	}

	customerID := o.CustomerID
	_, err := n.svc.SendNow(ctx, &Notification{
		Title:        "Order update",
		Body:         fmt.Sprintf(tmpl, o.OrderNumber),
		TargetUserID: &customerID,
	})
	if err != nil {
		logger.FromCtx(ctx).Warn("failed to notify customer",
			zap.String("order_number", o.OrderNumber),
			zap.String("from", string(from)),
			zap.String("to", string(o.Status)),
			zap.Error(err),
		)
	}
}
