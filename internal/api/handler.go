package api

import (
	"context"
	"net/http"

	"nightbite-be/internal/auth"
	"nightbite-be/internal/menu"
	"nightbite-be/internal/metrics"
	"nightbite-be/internal/middleware"
	"nightbite-be/internal/notification"
	"nightbite-be/internal/order"
	"nightbite-be/internal/user"
)

// MenuLister is the read side of the menu store.
type MenuLister interface {
	ListByRestaurant(ctx context.Context, restaurantID uint) ([]menu.Item, error)
}

type Handler struct {
	Orders        order.Service
	Menus         MenuLister
	Users         user.Service
	Notifications notification.Service
	Metrics       *metrics.Registry
	SecureCookies bool
}

// Register mounts every route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	signedIn := middleware.RequireRole()
	customer := middleware.RequireRole(auth.RoleCustomer)
	kitchen := middleware.RequireRole(auth.RoleRestaurant, auth.RoleAdmin)
	staff := middleware.RequireRole(auth.RoleRestaurant, auth.RoleDeliveryPartner, auth.RoleAdmin)
	admin := middleware.RequireRole(auth.RoleAdmin)

	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("GET /metrics", h.metrics)

	mux.HandleFunc("POST /auth/register", h.register)
	mux.HandleFunc("POST /auth/login", h.login)

	mux.HandleFunc("GET /restaurants/{id}/menu", h.listMenu)

	mux.Handle("POST /orders", customer(http.HandlerFunc(h.placeOrder)))
	mux.Handle("GET /orders/{orderNumber}", signedIn(http.HandlerFunc(h.getOrder)))
	mux.Handle("PATCH /orders/{orderNumber}/status", staff(http.HandlerFunc(h.advanceStatus)))
	mux.Handle("POST /orders/{orderNumber}/handover", staff(http.HandlerFunc(h.handover)))
	mux.Handle("POST /orders/{orderNumber}/cancel", admin(http.HandlerFunc(h.cancelOrder)))
	mux.Handle("POST /orders/{orderNumber}/assign", kitchen(http.HandlerFunc(h.assignPartner)))
	mux.Handle("GET /orders/{orderNumber}/history", signedIn(http.HandlerFunc(h.history)))
	mux.Handle("GET /orders/{orderNumber}/verification-qr", customer(http.HandlerFunc(h.verificationQR)))

	mux.Handle("POST /push/subscriptions", signedIn(http.HandlerFunc(h.subscribe)))
	mux.Handle("DELETE /push/subscriptions", signedIn(http.HandlerFunc(h.unsubscribe)))
	mux.Handle("POST /admin/notifications", admin(http.HandlerFunc(h.sendNotification)))
}

// actorFrom reads the caller placed in the context by the auth middleware.
func actorFrom(r *http.Request) order.Actor {
	c, _ := auth.CallerFrom(r.Context())
	return order.Actor{ID: c.ID, Role: c.Role}
}
