package api

import (
	"net/http"

	"nightbite-be/internal/order"

	"github.com/skip2/go-qrcode"
)

const qrSize = 256

type placeOrderRequest struct {
	RestaurantID    uint                   `json:"restaurantId" validate:"required"`
	DeliveryAddress string                 `json:"deliveryAddress" validate:"required,max=500"`
	Items           []order.PlaceOrderItem `json:"items" validate:"required,min=1,dive"`
}

type advanceStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type handoverRequest struct {
	VerificationCode string `json:"verificationCode" validate:"required"`
}

type assignRequest struct {
	DeliveryPartnerID uint `json:"deliveryPartnerId" validate:"required"`
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if !decode(w, r, &req) {
		return
	}

	actor := actorFrom(r)
	o, err := h.Orders.PlaceOrder(r.Context(), order.PlaceOrderInput{
		CustomerID:      actor.ID,
		RestaurantID:    req.RestaurantID,
		DeliveryAddress: req.DeliveryAddress,
		Items:           req.Items,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, order.ToResponse(o, actor))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	o, err := h.Orders.GetOrder(r.Context(), r.PathValue("orderNumber"), actor)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order.ToResponse(o, actor))
}

func (h *Handler) advanceStatus(w http.ResponseWriter, r *http.Request) {
	var req advanceStatusRequest
	if !decode(w, r, &req) {
		return
	}

	actor := actorFrom(r)
	o, err := h.Orders.AdvanceStatus(r.Context(), r.PathValue("orderNumber"), req.Status, actor)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order.ToResponse(o, actor))
}

func (h *Handler) handover(w http.ResponseWriter, r *http.Request) {
	var req handoverRequest
	if !decode(w, r, &req) {
		return
	}

	actor := actorFrom(r)
	o, err := h.Orders.VerifyAndHandover(r.Context(), r.PathValue("orderNumber"), req.VerificationCode, actor)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order.ToResponse(o, actor))
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	o, err := h.Orders.CancelOrder(r.Context(), r.PathValue("orderNumber"), actor)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order.ToResponse(o, actor))
}

func (h *Handler) assignPartner(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if !decode(w, r, &req) {
		return
	}

	actor := actorFrom(r)
	o, err := h.Orders.AssignDeliveryPartner(r.Context(), r.PathValue("orderNumber"), req.DeliveryPartnerID, actor)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order.ToResponse(o, actor))
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	changes, err := h.Orders.History(r.Context(), r.PathValue("orderNumber"), actorFrom(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order.ToHistoryResponse(changes))
}

// verificationQR renders the handover code as a PNG for the customer to
// show at the door.
func (h *Handler) verificationQR(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	o, err := h.Orders.GetOrder(r.Context(), r.PathValue("orderNumber"), actor)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if !order.IsCodeHolder(actor, o) {
		writeError(w, http.StatusForbidden, codeForbidden, order.ErrForbidden.Error())
		return
	}
	if o.VerificationCode == "" || order.IsTerminal(o.Status) {
		writeError(w, http.StatusNotFound, codeVerificationCodeNotReady, "no active verification code for this order")
		return
	}

	png, err := qrcode.Encode(o.VerificationCode, qrcode.Medium, qrSize)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
