package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ray-remotestate/preorder/catalog"
	"github.com/ray-remotestate/preorder/models"
)

type menuItemRequest struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Price       models.Money `json:"price"`
	Date        string       `json:"date"`
}

func (req menuItemRequest) input() catalog.ItemInput {
	return catalog.ItemInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Date:        req.Date,
	}
}

func (h *Handler) DailyMenu(w http.ResponseWriter, r *http.Request) {
	items, err := h.Menu.Daily(r.Context(), mux.Vars(r)["date"])
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, nonNilItems(items))
}

func (h *Handler) ListOwnMenu(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	items, err := h.Menu.ListOwn(r.Context(), p.AccountID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, nonNilItems(items))
}

func (h *Handler) CreateMenuItem(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req menuItemRequest
	if err := decode(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	item, err := h.Menu.Create(r.Context(), p.AccountID, req.input())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

func (h *Handler) UpdateMenuItem(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	itemID, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req menuItemRequest
	if err := decode(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	item, err := h.Menu.Update(r.Context(), p.AccountID, itemID, req.input())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

func (h *Handler) DeleteMenuItem(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	itemID, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	if err := h.Menu.Delete(r.Context(), p.AccountID, itemID); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, messageResponse{Message: "menu item deleted"})
}

func nonNilItems(items []models.MenuItem) []models.MenuItem {
	if items == nil {
		return []models.MenuItem{}
	}
	return items
}
