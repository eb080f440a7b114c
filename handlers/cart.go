package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/ray-remotestate/preorder/models"
)

type quoteLine struct {
	MenuItemID uuid.UUID    `json:"menuItemId"`
	Name       string       `json:"name"`
	UnitPrice  models.Money `json:"unitPrice"`
	Quantity   int          `json:"quantity"`
	Subtotal   models.Money `json:"subtotal"`
}

type quoteResponse struct {
	VendorID uuid.UUID    `json:"vendorId"`
	Lines    []quoteLine  `json:"lines"`
	Total    models.Money `json:"total"`
}

// Quote prices a prospective cart. Nothing is stored.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	type request struct {
		Items []models.LineEntry `json:"items"`
	}

	var req request
	if err := decode(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	state, err := h.Orders.Quote(r.Context(), req.Items)
	if err != nil {
		respondError(w, r, err)
		return
	}

	resp := quoteResponse{Lines: []quoteLine{}, Total: state.Total()}
	resp.VendorID, _ = state.VendorID()
	for _, e := range state.Entries() {
		resp.Lines = append(resp.Lines, quoteLine{
			MenuItemID: e.Item.ID,
			Name:       e.Item.Name,
			UnitPrice:  e.Item.Price,
			Quantity:   e.Quantity,
			Subtotal:   e.Subtotal(),
		})
	}
	respondJSON(w, http.StatusOK, resp)
}
