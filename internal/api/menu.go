package api

import (
	"net/http"

	"nightbite-be/internal/menu"
)

func (h *Handler) listMenu(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := pathUint(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, codeInvalidID, "restaurant id must be a positive integer")
		return
	}

	items, err := h.Menus.ListByRestaurant(r.Context(), restaurantID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if items == nil {
		items = []menu.Item{}
	}
	writeJSON(w, http.StatusOK, items)
}
