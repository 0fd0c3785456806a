package api

import (
	"net/http"
	"time"

	"nightbite-be/internal/auth"
	"nightbite-be/internal/notification"
)

// subscribeRequest mirrors the browser PushSubscription JSON.
type subscribeRequest struct {
	Endpoint       string `json:"endpoint" validate:"required,url"`
	ExpirationTime *int64 `json:"expirationTime"`
	Keys           struct {
		P256dh string `json:"p256dh" validate:"required"`
		Auth   string `json:"auth" validate:"required"`
	} `json:"keys"`
}

type unsubscribeRequest struct {
	Endpoint string `json:"endpoint" validate:"required"`
}

type sendNotificationRequest struct {
	Title        string     `json:"title" validate:"required,max=120"`
	Body         string     `json:"body" validate:"required,max=500"`
	TargetRole   auth.Role  `json:"targetRole,omitempty"`
	TargetUserID *uint      `json:"targetUserId,omitempty"`
	ScheduledAt  *time.Time `json:"scheduledAt,omitempty"`
}

func (h *Handler) subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if !decode(w, r, &req) {
		return
	}

	actor := actorFrom(r)
	sub, err := h.Notifications.Subscribe(r.Context(), &notification.Subscription{
		UserID:   actor.ID,
		Role:     actor.Role,
		Endpoint: req.Endpoint,
		P256dh:   req.Keys.P256dh,
		Auth:     req.Keys.Auth,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (h *Handler) unsubscribe(w http.ResponseWriter, r *http.Request) {
	var req unsubscribeRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.Notifications.Unsubscribe(r.Context(), actorFrom(r).ID, req.Endpoint); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) sendNotification(w http.ResponseWriter, r *http.Request) {
	var req sendNotificationRequest
	if !decode(w, r, &req) {
		return
	}

	n := &notification.Notification{
		Title:        req.Title,
		Body:         req.Body,
		TargetRole:   req.TargetRole,
		TargetUserID: req.TargetUserID,
		ScheduledAt:  req.ScheduledAt,
	}

	var (
		out *notification.Notification
		err error
	)
	status := http.StatusOK
	if req.ScheduledAt != nil {
		out, err = h.Notifications.Schedule(r.Context(), n)
		status = http.StatusAccepted
	} else {
		out, err = h.Notifications.SendNow(r.Context(), n)
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, status, out)
}
