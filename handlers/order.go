package handlers

import (
	"net/http"
	"time"

	"github.com/ray-remotestate/preorder/models"
)

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	type request struct {
		Items      []models.LineEntry `json:"items"`
		PickupTime time.Time          `json:"pickupTime"`
	}

	p, err := principal(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req request
	if err := decode(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	order, err := h.Orders.CreateOrder(r.Context(), p.AccountID, req.Items, req.PickupTime)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func (h *Handler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	orders, err := h.Orders.ListForAccount(r.Context(), p.AccountID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, nonNilOrders(orders))
}

func (h *Handler) ListAllOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.Orders.ListAll(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, nonNilOrders(orders))
}

func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	type request struct {
		Status models.OrderStatus `json:"status"`
	}

	orderID, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req request
	if err := decode(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	order, err := h.Orders.SetStatus(r.Context(), orderID, req.Status)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	orderID, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	if err := h.Orders.Delete(r.Context(), orderID, p.AccountID); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, messageResponse{Message: "order deleted"})
}

func nonNilOrders(orders []models.Order) []models.Order {
	if orders == nil {
		return []models.Order{}
	}
	return orders
}
