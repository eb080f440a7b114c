package handlers

import (
	"net/http"
	"time"

	"github.com/ray-remotestate/preorder/models"
	"github.com/ray-remotestate/preorder/payment"
)

func (h *Handler) PaymentKey(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"key": h.Gateway.PublicKey()})
}

// CreatePaymentIntent opens a gateway intent for an amount in major units.
func (h *Handler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	type request struct {
		Amount models.Money `json:"amount"`
	}

	var req request
	if err := decode(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	intent, err := h.Gateway.CreateIntent(r.Context(), req.Amount)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"intentId":         intent.ID,
		"amountMinorUnits": intent.AmountMinorUnits(),
		"currency":         intent.Currency,
	})
}

func (h *Handler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	type request struct {
		IntentID   string             `json:"intentId"`
		PaymentID  string             `json:"paymentId"`
		Signature  string             `json:"signature"`
		Items      []models.LineEntry `json:"items"`
		PickupTime time.Time          `json:"pickupTime"`
		Total      models.Money       `json:"total"`
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

	order, err := h.Verifier.Verify(r.Context(), p.AccountID, payment.Confirmation{
		IntentID:   req.IntentID,
		PaymentID:  req.PaymentID,
		Signature:  req.Signature,
		Lines:      req.Items,
		PickupTime: req.PickupTime,
		Total:      req.Total,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "payment verified",
		"order":   order,
	})
}
